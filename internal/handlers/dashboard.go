package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	service *services.DashboardService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		service: services.NewDashboardService(db),
	}
}

// GetStats handles GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	var req services.DashboardStatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	stats, err := h.service.GetStats(&req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, stats)
}
