package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

type SystemLogHandler struct {
	service *services.SystemLogService
}

func NewSystemLogHandler(db *gorm.DB) *SystemLogHandler {
	return &SystemLogHandler{
		service: services.NewSystemLogService(db),
	}
}

// List handles GET /api/system/logs
func (h *SystemLogHandler) List(c *gin.Context) {
	var req services.SystemLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.List(&req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetModules handles GET /api/system/logs/modules
func (h *SystemLogHandler) GetModules(c *gin.Context) {
	modules, err := h.service.GetModules()
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, modules)
}

// Cleanup handles POST /api/system/logs/cleanup (admin only)
func (h *SystemLogHandler) Cleanup(c *gin.Context) {
	deleted, err := h.service.CleanupOldLogs(h.service.GetRetentionDays())
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}
