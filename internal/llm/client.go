package llm

import (
	"context"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/logger"
)

// CompletionRequest 一次对话补全请求
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	ForceJSON   bool
}

// Client 对话补全客户端抽象，生成器通过它调用模型
type Client interface {
	// Complete 执行一次补全并返回文本内容
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Ready() bool
}

// OpenAIClient 基于OpenAI聊天接口的补全客户端
type OpenAIClient struct {
	client *openai.Client
	model  string
	mu     sync.Mutex
	logger *zap.Logger
}

// OpenAIClientOptions OpenAI客户端配置
type OpenAIClientOptions struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIClient 创建OpenAI补全客户端
func NewOpenAIClient(opts OpenAIClientOptions) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, apperrors.ErrorTypeValidation, "openai api key is required")
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  opts.Model,
		logger: logger.GetLogger(),
	}, nil
}

// Complete 执行一次补全。请求串行化，避免并发打爆配额
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.ForceJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", apperrors.NewGenerationError("chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewGenerationError("empty chat completion response", nil)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("chat completion finished",
		zap.String("model", c.model),
		zap.Int("prompt_chars", len(req.Prompt)),
		zap.Int("completion_chars", len(content)))

	return content, nil
}

// Ready 客户端是否可用
func (c *OpenAIClient) Ready() bool {
	return c.client != nil
}
