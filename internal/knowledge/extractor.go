package knowledge

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

// DocumentType 支持的文档类型枚举
type DocumentType string

const (
	DocTypeMarkdown DocumentType = "md"
	DocTypeText     DocumentType = "txt"
	DocTypeJSON     DocumentType = "json"
	DocTypePDF      DocumentType = "pdf"
	DocTypeHTML     DocumentType = "html"
)

// Valid 检查类型是否在支持枚举内
func (t DocumentType) Valid() bool {
	switch t {
	case DocTypeMarkdown, DocTypeText, DocTypeJSON, DocTypePDF, DocTypeHTML:
		return true
	}
	return false
}

// ParseDocumentType 从扩展名或声明的类型字符串解析文档类型
func ParseDocumentType(value string) (DocumentType, error) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))
	switch normalized {
	case "md", "markdown":
		return DocTypeMarkdown, nil
	case "txt", "text":
		return DocTypeText, nil
	case "json":
		return DocTypeJSON, nil
	case "pdf":
		return DocTypePDF, nil
	case "html", "htm":
		return DocTypeHTML, nil
	}
	return "", apperrors.NewUnsupportedType(value)
}

// Extractor 按文档类型提取纯文本
type Extractor struct{}

// NewExtractor 创建文本提取器
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 提取文档纯文本内容
func (e *Extractor) Extract(content []byte, fileType DocumentType) (string, error) {
	switch fileType {
	case DocTypeMarkdown:
		return e.extractMarkdown(content)
	case DocTypeText:
		return string(content), nil
	case DocTypeJSON:
		return canonicalizeJSON(content), nil
	case DocTypePDF:
		return e.extractPDF(content)
	case DocTypeHTML:
		return e.extractHTML(string(content))
	}
	return "", apperrors.NewUnsupportedType(string(fileType))
}

// extractMarkdown 先渲染为HTML再提取可见文本，保留块级换行
func (e *Extractor) extractMarkdown(content []byte) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(content, &buf); err != nil {
		return "", apperrors.NewExtractionError("render markdown failed", err)
	}
	return e.extractHTML(buf.String())
}

// extractHTML 去除script/style后提取可见文本，折叠空白并去掉空行
func (e *Extractor) extractHTML(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", apperrors.NewExtractionError("parse html failed", err)
	}

	doc.Find("script, style").Remove()

	var builder strings.Builder
	for _, node := range doc.Selection.Nodes {
		writeVisibleText(node, &builder)
	}

	return collapseLines(builder.String()), nil
}

// 块级标签结束后补换行，模拟浏览器的文本流
var blockLevelTags = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "th": true, "td": true,
	"ul": true, "ol": true, "table": true, "blockquote": true, "pre": true,
	"header": true, "footer": true, "main": true, "section": true, "article": true,
	"title": true,
}

func writeVisibleText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.TextNode {
		builder.WriteString(n.Data)
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		writeVisibleText(child, builder)
	}
	if n.Type == html.ElementNode && blockLevelTags[n.Data] {
		builder.WriteString("\n")
	}
}

// collapseLines 行内空白折叠为单个空格，移除空行
func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}

// extractPDF 逐页提取文本，页之间以空行分隔
func (e *Extractor) extractPDF(content []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(content))
	if err != nil {
		return "", apperrors.NewExtractionError("parse pdf failed", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", apperrors.NewExtractionError("read pdf page count failed", err)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), nil
}

// canonicalizeJSON 重新序列化JSON；解析失败时原样返回，不让整个流水线失败
func canonicalizeJSON(content []byte) string {
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return string(content)
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return string(content)
	}
	return string(out)
}
