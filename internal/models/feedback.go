package models

import "time"

// Feedback statuses. pending has exactly three outgoing transitions
// (approved, rejected, edited), all terminal. edited behaves like approved
// in the student view but carries an instructor-replaced message.
const (
	FeedbackPending  = "pending"
	FeedbackApproved = "approved"
	FeedbackRejected = "rejected"
	FeedbackEdited   = "edited"
)

// Feedback severities, ordered critical > warning > suggestion.
const (
	SeverityCritical   = "critical"
	SeverityWarning    = "warning"
	SeveritySuggestion = "suggestion"
)

// Feedback sources.
const (
	SourceRemote = "remote"
	SourceRules  = "rules"
)

// Feedback represents a single line-level feedback item produced by the
// analysis engine. Rows are created only by the engine, mutated only by the
// review coordinator, and never deleted (retained for audit).
type Feedback struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	SubmissionID    uint        `gorm:"index;not null" json:"submission_id"`
	Submission      *Submission `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
	LineNumber      int         `gorm:"not null" json:"line_number"` // 1-based, clamped to [1, LineCount]
	Severity        string      `gorm:"size:20;not null" json:"severity"`
	Category        string      `gorm:"size:50" json:"category"`
	Message         string      `gorm:"type:text;not null" json:"message"`
	OriginalMessage string      `gorm:"type:text" json:"original_message,omitempty"` // set when status=edited
	InstructorNotes string      `gorm:"type:text" json:"instructor_notes,omitempty"`
	Source          string      `gorm:"size:20;default:rules" json:"source"` // remote, rules
	Status          string      `gorm:"size:20;default:pending;index" json:"status"`
	DecidedBy       *uint       `json:"decided_by"`
	DecidedAt       *time.Time  `json:"decided_at"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (Feedback) TableName() string { return "feedbacks" }

// SeverityRank returns the sort rank of a severity, lower is more severe.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeveritySuggestion:
		return 2
	default:
		return 3
	}
}

// ValidSeverity reports whether s is one of the known severities.
func ValidSeverity(s string) bool {
	return SeverityRank(s) < 3
}
