package controllers

import (
	"errors"
	"net/http"

	"github.com/beego/beego/v2/server/web"

	apperrors "github.com/qaagent/backend-go/internal/errors"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按错误码映射HTTP状态并输出错误信息
func (c *BaseController) JSONAppError(err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSONError(http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.ErrCodeUnsupportedType, apperrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.ErrCodeExtraction, apperrors.ErrCodeParse:
		status = http.StatusUnprocessableEntity
	case apperrors.ErrCodeEmbedding, apperrors.ErrCodeIndexWrite,
		apperrors.ErrCodeIndexQuery, apperrors.ErrCodeGeneration:
		status = http.StatusBadGateway
	}

	c.JSON(status, map[string]interface{}{
		"success": false,
		"code":    string(appErr.Code),
		"error":   appErr.Message,
	})
}
