package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/config"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

type PlagiarismHandler struct {
	plagiarism *services.PlagiarismService
	queue      services.TaskQueue
}

func NewPlagiarismHandler(db *gorm.DB, cfg *config.Config, queue services.TaskQueue) *PlagiarismHandler {
	return &PlagiarismHandler{
		plagiarism: services.NewPlagiarismService(db, &cfg.Plagiarism),
		queue:      queue,
	}
}

// List handles GET /api/assignments/:id/plagiarism?status=active
func (h *PlagiarismHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reports, err := h.plagiarism.ListByAssignment(id, c.Query("status"))
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, reports)
}

// Scan handles POST /api/assignments/:id/plagiarism/scan. The scan runs in
// the background; results appear in the report list.
func (h *PlagiarismHandler) Scan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.queue.Enqueue(&services.Task{
		Type:         services.TaskTypePlagiarism,
		AssignmentID: id,
	}); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "scan queued", "assignment_id": id})
}

// DismissRequest carries the optional note for a dismissal.
type DismissRequest struct {
	Notes string `json:"notes"`
}

// Dismiss handles POST /api/plagiarism/:id/dismiss
func (h *PlagiarismHandler) Dismiss(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req DismissRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	if err := h.plagiarism.Dismiss(id, userID, req.Notes); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"report_id": id})
}
