package services

import (
	"strings"
	"time"

	"github.com/hfeng/codegrader/pkg/logger"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"gorm.io/gorm"
)

// DeadlineService evaluates whether a submission is late and by how many
// business days. Weekends and US academic holidays do not count against the
// student; instructors can add extra closure dates through the
// late_holidays system config (comma-separated YYYY-MM-DD).
type DeadlineService struct {
	calendar *cal.BusinessCalendar
}

func NewDeadlineService(db *gorm.DB) *DeadlineService {
	c := cal.NewBusinessCalendar()
	c.Name = "Academic calendar"
	c.AddHoliday(us.Holidays...)

	configs := NewSystemConfigService(db)
	for _, raw := range strings.Split(configs.GetWithDefault("late_holidays", ""), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			logger.Warnf("[Deadline] Ignoring malformed holiday %q: %v", raw, err)
			continue
		}
		c.AddHoliday(&cal.Holiday{
			Name:      "Closure " + raw,
			Month:     day.Month(),
			Day:       day.Day(),
			StartYear: day.Year(),
			EndYear:   day.Year(),
			Func:      cal.CalcDayOfMonth,
		})
	}

	return &DeadlineService{calendar: c}
}

// LateInfo describes how a submission relates to its assignment deadline.
type LateInfo struct {
	Late             bool `json:"late"`
	BusinessDaysLate int  `json:"business_days_late"`
}

// Evaluate compares a submission time against the due date. A nil due date
// means the assignment has no deadline. Lateness is counted in business
// days: weekend and holiday days between the deadline and the submission
// are free.
func (s *DeadlineService) Evaluate(dueDate *time.Time, submittedAt time.Time) LateInfo {
	if dueDate == nil || !submittedAt.After(*dueDate) {
		return LateInfo{}
	}

	days := 0
	day := dueDate.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	end := submittedAt.Truncate(24 * time.Hour)
	for !day.After(end) {
		if s.calendar.IsWorkday(day) {
			days++
		}
		day = day.AddDate(0, 0, 1)
	}

	// A submission late within the deadline day itself still counts as one.
	if days == 0 {
		days = 1
	}
	return LateInfo{Late: true, BusinessDaysLate: days}
}
