package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"req-pool/internal/service"
	"req-pool/pkg/response"
)

// 允许的上传 Content-Type，浏览器对 csv 的判定并不统一
var allowedUploadTypes = map[string]bool{
	"":                         true,
	"text/csv":                 true,
	"text/plain":               true,
	"application/csv":          true,
	"application/octet-stream": true,
	"application/vnd.ms-excel": true,
	xlsxContentType:            true,
}

// ImportHandler CSV/XLSX 批量导入
type ImportHandler struct {
	importSvc service.ImportService
	maxSize   int64
}

// NewImportHandler 创建 ImportHandler，maxSize 为单个文件上限（字节）
func NewImportHandler(importSvc service.ImportService, maxSize int64) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxSize: maxSize}
}

// Requirements 批量导入需求，任一行不合法则全部不导入
// POST /api/requirements/import
func (h *ImportHandler) Requirements(c *gin.Context) {
	file, header, err := h.openUpload(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer file.Close()

	result, err := h.importSvc.ImportRequirements(c.Request.Context(), header.Filename, file)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// Users 批量导入用户，不合法行跳过
// POST /api/users/import
func (h *ImportHandler) Users(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	file, header, err := h.openUpload(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer file.Close()

	result, err := h.importSvc.ImportUsers(c.Request.Context(), header.Filename, file, role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// openUpload 读取 multipart 字段 file，校验大小、扩展名与类型
func (h *ImportHandler) openUpload(c *gin.Context) (multipart.File, *multipart.FileHeader, error) {
	// 预留 multipart 边界与表单字段的开销
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+64<<10)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, nil, service.ErrImportTooLarge
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return nil, nil, service.ErrImportFileMissing
		default:
			return nil, nil, service.ErrImportFileMissing.WithDetail("%v", err)
		}
	}
	if header.Size > h.maxSize {
		return nil, nil, service.ErrImportTooLarge
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv", ".xlsx":
	default:
		return nil, nil, service.ErrImportBadFormat
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
	if !allowedUploadTypes[contentType] {
		return nil, nil, service.ErrImportBadFormat
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, service.ErrImportParseFailed.WithDetail("%v", err)
	}
	return file, header, nil
}
