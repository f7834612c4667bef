package models

import "time"

// Plagiarism report statuses. The detector only creates/updates active
// reports; dismissal is an instructor action and is never undone by the
// detector.
const (
	ReportActive    = "active"
	ReportDismissed = "dismissed"
)

// PlagiarismReport records the similarity between one unordered pair of
// submissions within an assignment. The pair is normalized on write so that
// Submission1ID < Submission2ID, which makes the unique index cover both
// orderings.
type PlagiarismReport struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	AssignmentID    uint        `gorm:"index:idx_report_pair,unique;not null" json:"assignment_id"`
	Submission1ID   uint        `gorm:"index:idx_report_pair,unique;not null" json:"submission1_id"`
	Submission1     *Submission `gorm:"foreignKey:Submission1ID" json:"submission1,omitempty"`
	Submission2ID   uint        `gorm:"index:idx_report_pair,unique;not null" json:"submission2_id"`
	Submission2     *Submission `gorm:"foreignKey:Submission2ID" json:"submission2,omitempty"`
	SimilarityScore float64     `gorm:"not null" json:"similarity_score"` // [0,1]
	Status          string      `gorm:"size:20;default:active;index" json:"status"`
	DismissedBy     *uint       `json:"dismissed_by"`
	DismissedAt     *time.Time  `json:"dismissed_at"`
	InstructorNotes string      `gorm:"type:text" json:"instructor_notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (PlagiarismReport) TableName() string { return "plagiarism_reports" }

// NormalizePair returns the pair ordered so the smaller submission ID comes first.
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}
