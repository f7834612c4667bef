package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

// FeedbackHandler exposes the instructor review queue and the approval
// state machine.
type FeedbackHandler struct {
	reviews *services.ReviewService
}

func NewFeedbackHandler(db *gorm.DB) *FeedbackHandler {
	return &FeedbackHandler{
		reviews: services.NewReviewService(db),
	}
}

// ListPending handles GET /api/assignments/:id/feedback/pending
func (h *FeedbackHandler) ListPending(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	feedbacks, err := h.reviews.ListPending(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, feedbacks)
}

// ListForSubmission handles GET /api/submissions/:id/feedback/all
func (h *FeedbackHandler) ListForSubmission(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	feedbacks, err := h.reviews.ListForSubmission(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, feedbacks)
}

// Approve handles POST /api/feedback/:id/approve
func (h *FeedbackHandler) Approve(c *gin.Context) {
	h.decide(c, h.reviews.Approve)
}

// Reject handles POST /api/feedback/:id/reject
func (h *FeedbackHandler) Reject(c *gin.Context) {
	h.decide(c, h.reviews.Reject)
}

func (h *FeedbackHandler) decide(c *gin.Context, fn func(feedbackID, actorID uint) error) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := fn(id, userID); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"feedback_id": id})
}

// EditFeedbackRequest carries the replacement message for an edit decision.
type EditFeedbackRequest struct {
	Message string `json:"message" binding:"required"`
	Notes   string `json:"notes"`
}

// Edit handles POST /api/feedback/:id/edit
func (h *FeedbackHandler) Edit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req EditFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.reviews.Edit(id, userID, req.Message, req.Notes); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"feedback_id": id})
}

// BulkApproveRequest lists the feedback ids to approve in one call.
type BulkApproveRequest struct {
	FeedbackIDs []uint `json:"feedback_ids" binding:"required,min=1"`
}

// BulkApprove handles POST /api/feedback/bulk-approve. The response always
// carries one result per requested id; partial failure is not an error.
func (h *FeedbackHandler) BulkApprove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	results := h.reviews.BulkApprove(req.FeedbackIDs, userID)
	response.Success(c, gin.H{"results": results})
}
