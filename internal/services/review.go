package services

import (
	"fmt"
	"time"

	"github.com/hfeng/codegrader/internal/models"
	"github.com/hfeng/codegrader/pkg/logger"
	"gorm.io/gorm"
)

// ReviewService is the instructor-facing coordinator over the feedback
// store. It owns the approval state machine: pending -> approved | rejected
// | edited, each transition terminal and mutually exclusive. Transitions use
// an optimistic precondition (status must still be pending) instead of
// locking; of two concurrent decisions exactly one wins and the loser gets
// ErrConflict.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Approve marks a pending feedback as approved.
func (s *ReviewService) Approve(feedbackID, actorID uint) error {
	return s.decide(feedbackID, actorID, models.FeedbackApproved, nil)
}

// Reject marks a pending feedback as rejected. Rejected rows are retained
// for audit but never shown to the student.
func (s *ReviewService) Reject(feedbackID, actorID uint) error {
	return s.decide(feedbackID, actorID, models.FeedbackRejected, nil)
}

// Edit replaces the message of a pending feedback and marks it edited.
// Edited feedback is shown to the student like approved feedback, flagged as
// instructor-modified; the original message is kept.
func (s *ReviewService) Edit(feedbackID, actorID uint, newMessage, notes string) error {
	if newMessage == "" {
		return fmt.Errorf("edit requires a replacement message")
	}
	return s.decide(feedbackID, actorID, models.FeedbackEdited, func(current *models.Feedback) map[string]interface{} {
		return map[string]interface{}{
			"original_message": current.Message,
			"message":          newMessage,
			"instructor_notes": notes,
		}
	})
}

// decide performs one terminal transition out of pending. extra, when set,
// derives additional column updates from the current row.
func (s *ReviewService) decide(feedbackID, actorID uint, newStatus string, extra func(*models.Feedback) map[string]interface{}) error {
	var current models.Feedback
	if err := s.db.First(&current, feedbackID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: feedback %d", ErrNotFound, feedbackID)
		}
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     newStatus,
		"decided_by": actorID,
		"decided_at": now,
	}
	if extra != nil {
		for k, v := range extra(&current) {
			updates[k] = v
		}
	}

	res := s.db.Model(&models.Feedback{}).
		Where("id = ? AND status = ?", feedbackID, models.FeedbackPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// The row exists but already left pending: someone else decided first.
		return fmt.Errorf("%w: feedback %d is already %s", ErrConflict, feedbackID, current.Status)
	}

	logger.Infof("[Review] Feedback %d -> %s by user %d", feedbackID, newStatus, actorID)
	return nil
}

// BulkResult is the per-id outcome of a bulk operation.
type BulkResult struct {
	FeedbackID uint   `json:"feedback_id"`
	Succeeded  bool   `json:"succeeded"`
	Error      string `json:"error,omitempty"`
}

// BulkApprove applies Approve independently per id. The batch is never
// atomic: one already-decided item reports its failure without blocking the
// rest.
func (s *ReviewService) BulkApprove(feedbackIDs []uint, actorID uint) []BulkResult {
	results := make([]BulkResult, 0, len(feedbackIDs))
	for _, id := range feedbackIDs {
		result := BulkResult{FeedbackID: id, Succeeded: true}
		if err := s.Approve(id, actorID); err != nil {
			result.Succeeded = false
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// ListPending returns all pending feedback for an assignment, for the
// instructor review queue. Ordered by submission then line number.
func (s *ReviewService) ListPending(assignmentID uint) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	err := s.db.
		Joins("JOIN submissions ON submissions.id = feedbacks.submission_id").
		Where("submissions.assignment_id = ? AND feedbacks.status = ?", assignmentID, models.FeedbackPending).
		Preload("Submission").
		Order("feedbacks.submission_id ASC, feedbacks.line_number ASC").
		Find(&feedbacks).Error
	return feedbacks, err
}

// ListForSubmission returns all feedback rows of one submission regardless
// of status, for the instructor detail view.
func (s *ReviewService) ListForSubmission(submissionID uint) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	err := s.db.Where("submission_id = ?", submissionID).
		Order("line_number ASC, id ASC").
		Find(&feedbacks).Error
	return feedbacks, err
}

// ListForStudent returns only the feedback a student may see: approved and
// edited rows, ordered by line.
func (s *ReviewService) ListForStudent(submissionID uint) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	err := s.db.Where("submission_id = ? AND status IN ?", submissionID,
		[]string{models.FeedbackApproved, models.FeedbackEdited}).
		Order("line_number ASC, id ASC").
		Find(&feedbacks).Error
	return feedbacks, err
}
