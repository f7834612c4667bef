package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission statuses. Transitions are owned by the analysis pipeline:
// uploaded -> analyzing -> feedback_ready | failed.
const (
	SubmissionUploaded      = "uploaded"
	SubmissionAnalyzing     = "analyzing"
	SubmissionFeedbackReady = "feedback_ready"
	SubmissionFailed        = "failed"
)

// Supported submission languages.
const (
	LangPython = "python"
	LangJava   = "java"
	LangCpp    = "cpp"
)

// Submission represents a student's code submission for an assignment.
// AttemptNumber is unique per student+assignment and monotonically increasing.
type Submission struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	PublicID      string         `gorm:"uniqueIndex;size:36" json:"public_id"`
	AssignmentID  uint           `gorm:"index:idx_subm_attempt,unique;not null" json:"assignment_id"`
	Assignment    *Assignment    `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	StudentID     uint           `gorm:"index:idx_subm_attempt,unique;not null" json:"student_id"`
	Student       *User          `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	AttemptNumber int            `gorm:"index:idx_subm_attempt,unique;not null" json:"attempt_number"`
	Language      string         `gorm:"size:20;not null" json:"language"` // python, java, cpp
	Filename      string         `gorm:"size:255" json:"filename"`
	Content       string         `gorm:"type:text" json:"-"`
	LineCount     int            `json:"line_count"`
	Status        string         `gorm:"size:30;default:uploaded;index" json:"status"`
	ErrorMessage  string         `gorm:"type:text" json:"error_message,omitempty"`
	SubmittedAt   time.Time      `gorm:"index" json:"submitted_at"`
	AnalyzedAt    *time.Time     `json:"analyzed_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Submission) TableName() string { return "submissions" }
