package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hfeng/codegrader/internal/models"
	"gorm.io/gorm"
)

// ExportService produces the per-assignment results sheet instructors
// download for grading. One row per submission, latest attempts included
// with their lateness status.
type ExportService struct {
	db        *gorm.DB
	deadlines *DeadlineService
}

func NewExportService(db *gorm.DB, deadlines *DeadlineService) *ExportService {
	return &ExportService{db: db, deadlines: deadlines}
}

var exportHeader = []string{
	"student_no", "username", "attempt", "status", "language",
	"line_count", "approved_feedback", "edited_feedback",
	"late", "business_days_late", "submitted_at",
}

// WriteAssignmentCSV streams the results of one assignment as CSV.
func (s *ExportService) WriteAssignmentCSV(w io.Writer, assignmentID uint) error {
	var assignment models.Assignment
	if err := s.db.First(&assignment, assignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
		}
		return err
	}

	var submissions []models.Submission
	if err := s.db.Where("assignment_id = ?", assignmentID).
		Preload("Student").
		Order("student_id ASC, attempt_number ASC").
		Find(&submissions).Error; err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for i := range submissions {
		sub := &submissions[i]

		var approved, edited int64
		s.db.Model(&models.Feedback{}).
			Where("submission_id = ? AND status = ?", sub.ID, models.FeedbackApproved).Count(&approved)
		s.db.Model(&models.Feedback{}).
			Where("submission_id = ? AND status = ?", sub.ID, models.FeedbackEdited).Count(&edited)

		late := s.deadlines.Evaluate(assignment.DueDate, sub.SubmittedAt)

		studentNo, username := "", ""
		if sub.Student != nil {
			studentNo = sub.Student.StudentNo
			username = sub.Student.Username
		}

		row := []string{
			studentNo,
			username,
			strconv.Itoa(sub.AttemptNumber),
			sub.Status,
			sub.Language,
			strconv.Itoa(sub.LineCount),
			strconv.FormatInt(approved, 10),
			strconv.FormatInt(edited, 10),
			strconv.FormatBool(late.Late),
			strconv.Itoa(late.BusinessDaysLate),
			sub.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
