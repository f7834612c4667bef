package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	service *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		service: services.NewSystemConfigService(db),
	}
}

// List handles GET /api/system/configs?group=plagiarism
func (h *SystemConfigHandler) List(c *gin.Context) {
	configs, err := h.service.GetByGroup(c.Query("group"))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, configs)
}

// UpdateConfigRequest sets one configuration key.
type UpdateConfigRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// Update handles PUT /api/system/configs (admin only)
func (h *SystemConfigHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Set(req.Key, req.Value); err != nil {
		serviceError(c, err)
		return
	}

	services.Audit("info", "system", "config_update", "Updated "+req.Key, &userID, c.ClientIP(),
		gin.H{"key": req.Key, "value": req.Value})

	response.Success(c, gin.H{"key": req.Key, "value": req.Value})
}
