package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"req-pool/internal/dto"
	"req-pool/internal/service"
	"req-pool/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出与模板下载
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Requirements 按列表筛选条件导出需求
// GET /api/requirements/export
func (h *ExportHandler) Requirements(c *gin.Context) {
	var req dto.RequirementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportRequirements(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	sendXLSX(c, buf, filename)
}

// UserTemplate 用户导入模板
// GET /api/users/template
func (h *ExportHandler) UserTemplate(c *gin.Context) {
	buf, filename, err := h.exportSvc.UserTemplate(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	sendXLSX(c, buf, filename)
}

func sendXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
