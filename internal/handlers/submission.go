package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

// Submissions are capped at 1 MiB of source. Anything larger is not a
// single-file classroom exercise.
const maxSubmissionSize = 1 << 20

type SubmissionHandler struct {
	submissions *services.SubmissionService
	reviews     *services.ReviewService
}

func NewSubmissionHandler(db *gorm.DB, queue services.TaskQueue) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: services.NewSubmissionService(db, queue),
		reviews:     services.NewReviewService(db),
	}
}

// Create handles POST /api/submissions. The source file arrives as
// multipart form data under "file".
func (h *SubmissionHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var form struct {
		AssignmentID uint   `form:"assignment_id" binding:"required"`
		Language     string `form:"language" binding:"required"`
	}
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing source file")
		return
	}
	if fileHeader.Size > maxSubmissionSize {
		response.BadRequest(c, "source file exceeds 1 MiB limit")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxSubmissionSize+1))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	if len(content) > maxSubmissionSize {
		response.BadRequest(c, "source file exceeds 1 MiB limit")
		return
	}

	submission, err := h.submissions.Submit(&services.SubmitRequest{
		AssignmentID: form.AssignmentID,
		StudentID:    userID,
		Language:     form.Language,
		Filename:     fileHeader.Filename,
		Content:      content,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, submission)
}

// Get handles GET /api/submissions/:id
func (h *SubmissionHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	submission, err := h.submissions.GetByID(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, submission)
}

// ListByAssignment handles GET /api/assignments/:id/submissions
func (h *SubmissionHandler) ListByAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	submissions, err := h.submissions.ListByAssignment(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, submissions)
}

// History handles GET /api/assignments/:id/history. Students see their own
// attempt history for one assignment.
func (h *SubmissionHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	submissions, err := h.submissions.History(id, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, submissions)
}

// StudentFeedback handles GET /api/submissions/:id/feedback. Only approved
// and edited feedback is visible to the submitting student.
func (h *SubmissionHandler) StudentFeedback(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	submission, err := h.submissions.GetByID(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if submission.StudentID != userID {
		response.Forbidden(c, "not your submission")
		return
	}

	feedbacks, err := h.reviews.ListForStudent(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, feedbacks)
}
