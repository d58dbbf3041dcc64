package knowledge

import (
	"strings"
)

// 切分边界按优先级递减：段落 > 行 > 句子 > 单词
var chunkSeparators = []string{"\n\n", "\n", ". ", " "}

// Chunker 文本分块器
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将文本切分为多个片段，相邻片段之间保留配置的重叠区
func (c *Chunker) Split(text string) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	runes := []rune(clean)
	if len(runes) <= c.chunkSize {
		return []string{clean}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			piece := strings.TrimSpace(string(runes[start:]))
			if piece != "" {
				pieces = append(pieces, piece)
			}
			break
		}

		cut := c.findCut(runes, start, end)
		piece := strings.TrimSpace(string(runes[start:cut]))
		if piece != "" {
			pieces = append(pieces, piece)
		}

		next := cut - c.chunkOverlap
		if next <= start {
			// 重叠不能吞掉已有进度
			next = cut
		}
		start = next
	}

	return pieces
}

// findCut 在(start, end]内寻找最靠后的切分点，优先级高的边界优先；
// 窗口内没有任何边界时在end处硬切
func (c *Chunker) findCut(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range chunkSeparators {
		idx := strings.LastIndex(window, sep)
		if idx <= 0 {
			continue
		}
		// 切分点落在分隔符之后，分隔符归属左侧片段
		return start + len([]rune(window[:idx+len(sep)]))
	}
	return end
}
