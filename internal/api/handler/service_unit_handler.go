package handler

import (
	"github.com/gin-gonic/gin"

	"req-pool/internal/dto"
	"req-pool/internal/service"
	"req-pool/pkg/response"
)

// ServiceUnitHandler 服务单元 HTTP 处理器
type ServiceUnitHandler struct {
	unitSvc service.ServiceUnitService
}

// NewServiceUnitHandler 创建 ServiceUnitHandler
func NewServiceUnitHandler(unitSvc service.ServiceUnitService) *ServiceUnitHandler {
	return &ServiceUnitHandler{unitSvc: unitSvc}
}

// List 服务单元列表
// GET /api/service-units
func (h *ServiceUnitHandler) List(c *gin.Context) {
	units, err := h.unitSvc.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, units)
}

// Get 服务单元详情
// GET /api/service-units/:id
func (h *ServiceUnitHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	unit, err := h.unitSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, unit)
}

// Create 创建服务单元
// POST /api/service-units
func (h *ServiceUnitHandler) Create(c *gin.Context) {
	var req dto.ServiceUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	unit, err := h.unitSvc.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, unit)
}

// Update 更新服务单元，成员全量替换
// PUT /api/service-units/:id
func (h *ServiceUnitHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ServiceUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	unit, err := h.unitSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, unit)
}

// Delete 删除服务单元并释放成员
// DELETE /api/service-units/:id
func (h *ServiceUnitHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.unitSvc.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Deleted(c)
}

// UnassignedUsers 未加入任何服务单元的用户
// GET /api/unassigned-users
func (h *ServiceUnitHandler) UnassignedUsers(c *gin.Context) {
	users, err := h.unitSvc.ListUnassignedUsers(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, users)
}
