package knowledge

import (
	"go.uber.org/zap"

	apperrors "github.com/qaagent/backend-go/internal/errors"
	"github.com/qaagent/backend-go/internal/logger"
)

// Document 待入库的原始文档，仅在入库过程中存在
type Document struct {
	Content  []byte
	Filename string
	FileType DocumentType
}

// Chunk 带来源信息的文本分块，索引的基本单位
type Chunk struct {
	Text        string       `json:"text"`
	Source      string       `json:"source"`
	FileType    DocumentType `json:"file_type"`
	ChunkIndex  int          `json:"chunk_index"`
	TotalChunks int          `json:"total_chunks"`
}

// Processor 文档处理器：提取文本并分块，附带来源元数据
type Processor struct {
	extractor *Extractor
	chunker   *Chunker
	logger    *zap.Logger
}

// NewProcessor 创建文档处理器
func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{
		extractor: NewExtractor(),
		chunker:   NewChunker(chunkSize, chunkOverlap),
		logger:    logger.GetLogger(),
	}
}

// Process 处理单个文档：类型校验 → 文本提取 → 分块编号
func (p *Processor) Process(content []byte, filename string, fileType DocumentType) ([]Chunk, error) {
	if !fileType.Valid() {
		return nil, apperrors.NewUnsupportedType(string(fileType))
	}

	text, err := p.extractor.Extract(content, fileType)
	if err != nil {
		return nil, err
	}

	pieces := p.chunker.Split(text)
	chunks := make([]Chunk, 0, len(pieces))
	for idx, piece := range pieces {
		chunks = append(chunks, Chunk{
			Text:        piece,
			Source:      filename,
			FileType:    fileType,
			ChunkIndex:  idx,
			TotalChunks: len(pieces),
		})
	}

	p.logger.Info("document processed",
		zap.String("filename", filename),
		zap.String("file_type", string(fileType)),
		zap.Int("chunks", len(chunks)))

	return chunks, nil
}

// ProcessMultiple 顺序处理多个文档并拍平结果；
// chunk_index/total_chunks始终按单个文档计算，与批次无关
func (p *Processor) ProcessMultiple(docs []Document) ([]Chunk, error) {
	var all []Chunk
	for _, doc := range docs {
		chunks, err := p.Process(doc.Content, doc.Filename, doc.FileType)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}

	p.logger.Info("batch processed",
		zap.Int("documents", len(docs)),
		zap.Int("total_chunks", len(all)))

	return all, nil
}
