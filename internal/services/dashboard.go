package services

import (
	"time"

	"github.com/hfeng/codegrader/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type DashboardStats struct {
	TotalSubmissions int64 `json:"total_submissions"`
	ActiveStudents   int64 `json:"active_students"`
	PendingFeedback  int64 `json:"pending_feedback"`
	ActiveReports    int64 `json:"active_reports"`
	FailedAnalyses   int64 `json:"failed_analyses"`
}

type AssignmentStats struct {
	AssignmentID    uint   `json:"assignment_id"`
	AssignmentTitle string `json:"assignment_title"`
	SubmissionCount int64  `json:"submission_count"`
	StudentCount    int64  `json:"student_count"`
	PendingCount    int64  `json:"pending_count"`
}

type StatusBreakdown struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DashboardResponse struct {
	Stats           DashboardStats    `json:"stats"`
	AssignmentStats []AssignmentStats `json:"assignment_stats"`
	StatusBreakdown []StatusBreakdown `json:"status_breakdown"`
}

// GetStats aggregates activity over a date window, defaulting to the last
// seven days. The pending and active-report counters ignore the window:
// they measure the instructor's current backlog.
func (s *DashboardService) GetStats(req *DashboardStatsRequest) (*DashboardResponse, error) {
	var startDate, endDate time.Time
	var err error

	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			startDate = time.Now().AddDate(0, 0, -7)
		}
	} else {
		startDate = time.Now().AddDate(0, 0, -7)
	}

	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			endDate = time.Now()
		}
		endDate = endDate.Add(24*time.Hour - time.Second)
	} else {
		endDate = time.Now()
	}

	var stats DashboardStats

	s.db.Model(&models.Submission{}).
		Where("submitted_at BETWEEN ? AND ?", startDate, endDate).
		Count(&stats.TotalSubmissions)

	s.db.Model(&models.Submission{}).
		Where("submitted_at BETWEEN ? AND ?", startDate, endDate).
		Distinct("student_id").
		Count(&stats.ActiveStudents)

	s.db.Model(&models.Feedback{}).
		Where("status = ?", models.FeedbackPending).
		Count(&stats.PendingFeedback)

	s.db.Model(&models.PlagiarismReport{}).
		Where("status = ?", models.ReportActive).
		Count(&stats.ActiveReports)

	s.db.Model(&models.Submission{}).
		Where("submitted_at BETWEEN ? AND ? AND status = ?", startDate, endDate, models.SubmissionFailed).
		Count(&stats.FailedAnalyses)

	var assignmentStats []AssignmentStats
	s.db.Model(&models.Submission{}).
		Select("assignment_id, COUNT(*) as submission_count, COUNT(DISTINCT student_id) as student_count").
		Where("submitted_at BETWEEN ? AND ?", startDate, endDate).
		Group("assignment_id").
		Order("submission_count DESC").
		Limit(10).
		Scan(&assignmentStats)

	for i := range assignmentStats {
		var assignment models.Assignment
		if err := s.db.First(&assignment, assignmentStats[i].AssignmentID).Error; err == nil {
			assignmentStats[i].AssignmentTitle = assignment.Title
		}
		s.db.Model(&models.Feedback{}).
			Joins("JOIN submissions ON submissions.id = feedbacks.submission_id").
			Where("submissions.assignment_id = ? AND feedbacks.status = ?",
				assignmentStats[i].AssignmentID, models.FeedbackPending).
			Count(&assignmentStats[i].PendingCount)
	}

	var breakdown []StatusBreakdown
	s.db.Model(&models.Submission{}).
		Select("status, COUNT(*) as count").
		Where("submitted_at BETWEEN ? AND ?", startDate, endDate).
		Group("status").
		Scan(&breakdown)

	return &DashboardResponse{
		Stats:           stats,
		AssignmentStats: assignmentStats,
		StatusBreakdown: breakdown,
	}, nil
}
