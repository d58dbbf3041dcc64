package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/qaagent/backend-go/internal/knowledge"
	"github.com/qaagent/backend-go/internal/logger"
)

// DocumentController 文档上传入库
type DocumentController struct {
	BaseController
}

// UploadDocuments 批量上传文档并入库。
// 整批原子：任一文档处理失败，整个请求失败且不落盘
func (c *DocumentController) UploadDocuments() {
	if err := c.Ctx.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSONError(http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	headers := c.Ctx.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		c.JSONError(http.StatusBadRequest, "no files provided")
		return
	}

	docs := make([]knowledge.Document, 0, len(headers))
	for _, header := range headers {
		doc, err := readUpload(header)
		if err != nil {
			c.JSONError(http.StatusBadRequest, err.Error())
			return
		}
		docs = append(docs, doc)
	}

	result, err := deps.Knowledge.IngestDocuments(c.Ctx.Request.Context(), docs)
	if err != nil {
		logger.Error("document upload failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("Successfully processed %d documents", result.DocumentCount),
		"document_count": result.DocumentCount,
		"chunks_created": result.ChunksCreated,
	})
}

// UploadHTML 上传单个HTML页面并入库。
// 页面内容不做进程级暂存，脚本生成时由调用方随请求再次提供
func (c *DocumentController) UploadHTML() {
	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := deps.Knowledge.IngestDocuments(c.Ctx.Request.Context(), []knowledge.Document{
		{
			Content:  content,
			Filename: header.Filename,
			FileType: knowledge.DocTypeHTML,
		},
	})
	if err != nil {
		logger.Error("html upload failed", zap.Error(err), zap.String("filename", header.Filename))
		c.JSONAppError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        fmt.Sprintf("HTML file %s uploaded successfully", header.Filename),
		"chunks_created": result.ChunksCreated,
	})
}

func readUpload(header *multipart.FileHeader) (knowledge.Document, error) {
	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	fileType, err := knowledge.ParseDocumentType(ext)
	if err != nil {
		return knowledge.Document{}, err
	}

	file, err := header.Open()
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("read %s: %w", header.Filename, err)
	}

	return knowledge.Document{
		Content:  content,
		Filename: header.Filename,
		FileType: fileType,
	}, nil
}
