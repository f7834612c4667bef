package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hfeng/codegrader/internal/models"
	"github.com/hfeng/codegrader/pkg/logger"
	"gorm.io/gorm"
)

// SubmissionService owns submission ingest. Upload transport and size or
// extension validation happen before Submit is called; this layer validates
// the language, assigns the attempt number and hands the submission off to
// the analysis queue.
type SubmissionService struct {
	db    *gorm.DB
	queue TaskQueue
}

func NewSubmissionService(db *gorm.DB, queue TaskQueue) *SubmissionService {
	return &SubmissionService{db: db, queue: queue}
}

// SubmitRequest carries one upload from the ingest layer.
type SubmitRequest struct {
	AssignmentID uint
	StudentID    uint
	Language     string
	Filename     string
	Content      []byte
}

// Submit validates and persists a new submission attempt and enqueues its
// analysis. Attempt numbers are unique per student+assignment and increase
// monotonically; re-submission never overwrites an earlier attempt.
func (s *SubmissionService) Submit(req *SubmitRequest) (*models.Submission, error) {
	var assignment models.Assignment
	if err := s.db.First(&assignment, req.AssignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: assignment %d", ErrNotFound, req.AssignmentID)
		}
		return nil, err
	}

	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if !SupportedLanguage(lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}
	if assignment.Language != "" && assignment.Language != lang {
		return nil, fmt.Errorf("%w: assignment expects %s, got %s", ErrUnsupportedLanguage, assignment.Language, lang)
	}

	// Normalization is cheap and validates the content up front, so a
	// submission that cannot be analyzed is rejected at ingest.
	src, err := Normalize(req.Content, lang)
	if err != nil {
		return nil, err
	}

	var submission *models.Submission
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var lastAttempt int
		row := tx.Model(&models.Submission{}).
			Where("assignment_id = ? AND student_id = ?", req.AssignmentID, req.StudentID).
			Select("COALESCE(MAX(attempt_number), 0)")
		if err := row.Scan(&lastAttempt).Error; err != nil {
			return err
		}

		if assignment.MaxAttempts > 0 && lastAttempt >= assignment.MaxAttempts {
			return fmt.Errorf("%w: %d of %d used", ErrMaxAttempts, lastAttempt, assignment.MaxAttempts)
		}

		submission = &models.Submission{
			PublicID:      uuid.New().String(),
			AssignmentID:  req.AssignmentID,
			StudentID:     req.StudentID,
			AttemptNumber: lastAttempt + 1,
			Language:      lang,
			Filename:      req.Filename,
			Content:       string(req.Content),
			LineCount:     src.LineCount(),
			Status:        models.SubmissionUploaded,
			SubmittedAt:   time.Now(),
		}
		return tx.Create(submission).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("[Submission] Student %d submitted attempt %d for assignment %d (%s, %d lines)",
		req.StudentID, submission.AttemptNumber, req.AssignmentID, lang, submission.LineCount)

	if s.queue != nil {
		if err := s.queue.Enqueue(&Task{Type: TaskTypeAnalyze, SubmissionID: submission.ID}); err != nil {
			logger.Errorf("[Submission] Failed to enqueue analysis for submission %d: %v", submission.ID, err)
		}
	}

	return submission, nil
}

// GetByID returns a submission by its internal id.
func (s *SubmissionService) GetByID(id uint) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.Preload("Assignment").Preload("Student").First(&submission, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: submission %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &submission, nil
}

// ListByAssignment lists all submissions for an assignment, newest first.
func (s *SubmissionService) ListByAssignment(assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.Where("assignment_id = ?", assignmentID).
		Preload("Student").
		Order("submitted_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// History returns a student's attempts for one assignment, oldest first.
func (s *SubmissionService) History(assignmentID, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := s.db.Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("attempt_number ASC").
		Find(&submissions).Error
	return submissions, err
}
