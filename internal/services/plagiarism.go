package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hfeng/codegrader/internal/config"
	"github.com/hfeng/codegrader/internal/models"
	"github.com/hfeng/codegrader/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// PlagiarismService computes pairwise similarity between submissions of an
// assignment using k-shingles over the normalized token stream and the
// Jaccard coefficient. Runs are idempotent: re-running on an unchanged
// assignment leaves the report set unchanged, and a report dismissed by an
// instructor is never reactivated by the detector.
type PlagiarismService struct {
	db      *gorm.DB
	configs *SystemConfigService
	cfg     *config.PlagiarismConfig
}

func NewPlagiarismService(db *gorm.DB, cfg *config.PlagiarismConfig) *PlagiarismService {
	return &PlagiarismService{
		db:      db,
		configs: NewSystemConfigService(db),
		cfg:     cfg,
	}
}

// shingleSet builds the set of k-grams over tokens. A stream shorter than k
// but non-empty yields a single shingle covering the whole stream, so tiny
// files still compare as equal to their copies.
func shingleSet(tokens []string, k int) map[string]struct{} {
	set := make(map[string]struct{})
	if len(tokens) == 0 {
		return set
	}
	if k < 1 {
		k = 1
	}
	if len(tokens) < k {
		set[strings.Join(tokens, "\x1f")] = struct{}{}
		return set
	}
	for i := 0; i+k <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+k], "\x1f")] = struct{}{}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0: an empty file
// carries no evidence of copying.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// threshold and shingleSize prefer the database override, then the file
// config, then the built-in default.
func (s *PlagiarismService) threshold() float64 {
	def := 0.6
	if s.cfg != nil && s.cfg.Threshold > 0 {
		def = s.cfg.Threshold
	}
	return s.configs.GetFloat("plagiarism_threshold", def)
}

func (s *PlagiarismService) shingleSize() int {
	def := 5
	if s.cfg != nil && s.cfg.ShingleSize > 0 {
		def = s.cfg.ShingleSize
	}
	return s.configs.GetInt("plagiarism_shingle_size", def)
}

// Run scans one assignment. Only the latest attempt of each student enters
// the comparison set; earlier attempts are ignored so a student is never
// flagged against their own history. Pairs are formed within a language
// only.
func (s *PlagiarismService) Run(ctx context.Context, assignmentID uint) error {
	var assignment models.Assignment
	if err := s.db.First(&assignment, assignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
		}
		return err
	}

	latest := s.db.Model(&models.Submission{}).
		Select("MAX(id)").
		Where("assignment_id = ?", assignmentID).
		Group("student_id")

	var submissions []models.Submission
	if err := s.db.Where("assignment_id = ? AND id IN (?)", assignmentID, latest).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return err
	}
	if len(submissions) < 2 {
		return nil
	}

	k := s.shingleSize()
	threshold := s.threshold()

	shingles := make(map[uint]map[string]struct{}, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		src, err := Normalize([]byte(sub.Content), sub.Language)
		if err != nil {
			logger.Warnf("[Plagiarism] Skipping submission %d: %v", sub.ID, err)
			continue
		}
		shingles[sub.ID] = shingleSet(src.Tokens, k)
	}

	flagged := 0
	for i := 0; i < len(submissions); i++ {
		for j := i + 1; j < len(submissions); j++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Tokens from different languages are not comparable.
			if submissions[i].Language != submissions[j].Language {
				continue
			}
			a, okA := shingles[submissions[i].ID]
			b, okB := shingles[submissions[j].ID]
			if !okA || !okB {
				continue
			}
			score := jaccard(a, b)
			if score < threshold {
				continue
			}
			if err := s.upsertReport(assignmentID, submissions[i].ID, submissions[j].ID, score); err != nil {
				return err
			}
			flagged++
		}
	}

	if flagged > 0 {
		logger.Infof("[Plagiarism] Assignment %d: %d pair(s) at or above %.2f", assignmentID, flagged, threshold)
	}
	return nil
}

// upsertReport creates or refreshes the report for one pair. Dismissed
// reports are left untouched.
func (s *PlagiarismService) upsertReport(assignmentID, subA, subB uint, score float64) error {
	first, second := models.NormalizePair(subA, subB)

	var report models.PlagiarismReport
	err := s.db.Where("assignment_id = ? AND submission1_id = ? AND submission2_id = ?",
		assignmentID, first, second).First(&report).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&models.PlagiarismReport{
			AssignmentID:    assignmentID,
			Submission1ID:   first,
			Submission2ID:   second,
			SimilarityScore: score,
			Status:          models.ReportActive,
		}).Error
	}
	if err != nil {
		return err
	}
	if report.Status == models.ReportDismissed {
		return nil
	}
	return s.db.Model(&report).Update("similarity_score", score).Error
}

// Dismiss marks a report as reviewed and harmless. Terminal: subsequent
// detector runs will not bring it back.
func (s *PlagiarismService) Dismiss(reportID, actorID uint, notes string) error {
	var report models.PlagiarismReport
	if err := s.db.First(&report, reportID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: plagiarism report %d", ErrNotFound, reportID)
		}
		return err
	}
	if report.Status == models.ReportDismissed {
		return fmt.Errorf("%w: report %d is already dismissed", ErrConflict, reportID)
	}

	now := time.Now()
	return s.db.Model(&report).Updates(map[string]interface{}{
		"status":           models.ReportDismissed,
		"dismissed_by":     actorID,
		"dismissed_at":     now,
		"instructor_notes": notes,
	}).Error
}

// ListByAssignment returns reports for an assignment, optionally filtered
// by status, highest similarity first.
func (s *PlagiarismService) ListByAssignment(assignmentID uint, status string) ([]models.PlagiarismReport, error) {
	var reports []models.PlagiarismReport
	q := s.db.Where("assignment_id = ?", assignmentID).
		Preload("Submission1").
		Preload("Submission2").
		Order("similarity_score DESC, id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&reports).Error
	return reports, err
}

// PlagiarismScheduler sweeps every assignment with submissions on a cron
// schedule, catching pairs missed by the per-submission triggers.
type PlagiarismScheduler struct {
	service  *PlagiarismService
	db       *gorm.DB
	schedule string
	cron     *cron.Cron
}

func NewPlagiarismScheduler(db *gorm.DB, service *PlagiarismService, schedule string) *PlagiarismScheduler {
	if schedule == "" {
		schedule = "*/30 * * * *"
	}
	return &PlagiarismScheduler{
		service:  service,
		db:       db,
		schedule: schedule,
	}
}

func (p *PlagiarismScheduler) Start() error {
	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.schedule, p.sweep); err != nil {
		return fmt.Errorf("invalid plagiarism schedule %q: %w", p.schedule, err)
	}
	p.cron.Start()
	logger.Infof("[Plagiarism] Sweep scheduled: %s", p.schedule)
	return nil
}

func (p *PlagiarismScheduler) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

func (p *PlagiarismScheduler) sweep() {
	var assignmentIDs []uint
	if err := p.db.Model(&models.Submission{}).
		Distinct("assignment_id").
		Pluck("assignment_id", &assignmentIDs).Error; err != nil {
		logger.Errorf("[Plagiarism] Sweep query failed: %v", err)
		return
	}

	ctx := context.Background()
	for _, id := range assignmentIDs {
		if err := p.service.Run(ctx, id); err != nil {
			logger.Errorf("[Plagiarism] Sweep of assignment %d failed: %v", id, err)
		}
	}
}
