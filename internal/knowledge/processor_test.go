package knowledge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

func TestProcessor_ChunkProvenance(t *testing.T) {
	p := NewProcessor(100, 20)
	text := strings.Repeat("the checkout flow validates the cart before payment. ", 10)

	chunks, err := p.Process([]byte(text), "checkout.txt", DocTypeText)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// chunk_index从0开始且连续；total_chunks对同一文档恒定
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, len(chunks), chunk.TotalChunks)
		assert.Equal(t, "checkout.txt", chunk.Source)
		assert.Equal(t, DocTypeText, chunk.FileType)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestProcessor_UnsupportedType(t *testing.T) {
	p := NewProcessor(1000, 200)
	_, err := p.Process([]byte("x"), "file.docx", DocumentType("docx"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnsupportedType))
}

func TestProcessMultiple_PerDocumentNumbering(t *testing.T) {
	p := NewProcessor(60, 10)

	docs := []Document{
		{Content: []byte(strings.Repeat("first document sentence. ", 8)), Filename: "a.txt", FileType: DocTypeText},
		{Content: []byte(strings.Repeat("second document sentence. ", 8)), Filename: "b.txt", FileType: DocTypeText},
	}

	chunks, err := p.ProcessMultiple(docs)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// 编号按文档独立，不受批次影响
	perDoc := map[string][]Chunk{}
	for _, chunk := range chunks {
		perDoc[chunk.Source] = append(perDoc[chunk.Source], chunk)
	}
	require.Len(t, perDoc, 2)

	for source, docChunks := range perDoc {
		for i, chunk := range docChunks {
			assert.Equal(t, i, chunk.ChunkIndex, fmt.Sprintf("%s chunk %d", source, i))
			assert.Equal(t, len(docChunks), chunk.TotalChunks, source)
		}
	}
}

func TestProcessMultiple_AbortsOnFirstError(t *testing.T) {
	p := NewProcessor(1000, 200)

	docs := []Document{
		{Content: []byte("ok"), Filename: "a.txt", FileType: DocTypeText},
		{Content: []byte("not a pdf"), Filename: "b.pdf", FileType: DocTypePDF},
	}

	_, err := p.ProcessMultiple(docs)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExtraction))
}

func TestProcessor_EmptyDocumentProducesNoChunks(t *testing.T) {
	p := NewProcessor(1000, 200)
	chunks, err := p.Process([]byte("   "), "empty.txt", DocTypeText)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
