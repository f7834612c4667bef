package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hfeng/codegrader/internal/config"
	"github.com/hfeng/codegrader/internal/models"
	"github.com/hfeng/codegrader/pkg/logger"
	"gorm.io/gorm"
)

// Strategy produces ordered feedback candidates from normalized source.
// The engine tries strategies in order and falls back on failure.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, src *NormalizedSource) ([]FeedbackCandidate, error)
}

// AnalysisEngine runs a submission through the strategy chain and persists
// the outcome. Each submission is processed independently; the only shared
// state is the database.
type AnalysisEngine struct {
	db    *gorm.DB
	chain []Strategy
	queue TaskQueue
}

// NewAnalysisEngine builds the strategy chain for this configuration:
// remote first when a credential is present, rule-based always last.
func NewAnalysisEngine(db *gorm.DB, aiCfg *config.AIConfig) *AnalysisEngine {
	e := &AnalysisEngine{db: db}
	if remote := NewRemoteStrategy(aiCfg); remote.Enabled() {
		e.chain = append(e.chain, remote)
	}
	e.chain = append(e.chain, NewRuleStrategy())
	return e
}

// SetQueue wires the task queue used to trigger the plagiarism pass after a
// successful analysis.
func (e *AnalysisEngine) SetQueue(queue TaskQueue) {
	e.queue = queue
}

// SetStrategies replaces the strategy chain.
func (e *AnalysisEngine) SetStrategies(chain ...Strategy) {
	e.chain = chain
}

func (e *AnalysisEngine) strategies() []Strategy {
	return e.chain
}

// Analyze runs the strategy chain and returns the final ordered candidate
// list plus the name of the strategy that produced it. Remote failures are
// logged and absorbed; only a failure of every strategy is returned.
func (e *AnalysisEngine) Analyze(ctx context.Context, src *NormalizedSource) ([]FeedbackCandidate, string, error) {
	var lastErr error
	for _, strategy := range e.strategies() {
		candidates, err := strategy.Analyze(ctx, src)
		if err != nil {
			lastErr = err
			logger.Warnf("[Analyzer] Strategy %s failed, falling back: %v", strategy.Name(), err)
			continue
		}
		return finalizeCandidates(candidates, src.LineCount()), strategy.Name(), nil
	}
	return nil, "", fmt.Errorf("all analysis strategies failed: %w", lastErr)
}

// finalizeCandidates clamps line numbers into [1, lineCount] and orders by
// ascending line, then severity rank (critical > warning > suggestion). The
// sort is stable so equal keys keep their strategy order.
func finalizeCandidates(candidates []FeedbackCandidate, lineCount int) []FeedbackCandidate {
	if lineCount < 1 {
		lineCount = 1
	}
	out := make([]FeedbackCandidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		if out[i].LineNumber < 1 {
			out[i].LineNumber = 1
		}
		if out[i].LineNumber > lineCount {
			out[i].LineNumber = lineCount
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LineNumber != out[j].LineNumber {
			return out[i].LineNumber < out[j].LineNumber
		}
		return models.SeverityRank(out[i].Severity) < models.SeverityRank(out[j].Severity)
	})

	return out
}

// ProcessSubmission drives one submission through the full pipeline:
// uploaded -> analyzing -> feedback_ready | failed. All feedback rows are
// written and the status flipped in a single transaction, so a partially
// analyzed submission is never visible.
func (e *AnalysisEngine) ProcessSubmission(ctx context.Context, submissionID uint) error {
	var submission models.Submission
	if err := e.db.First(&submission, submissionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: submission %d", ErrNotFound, submissionID)
		}
		return err
	}

	switch submission.Status {
	case models.SubmissionUploaded, models.SubmissionAnalyzing, models.SubmissionFailed:
		// analyzable; failed submissions may be retried
	default:
		logger.Infof("[Analyzer] Submission %d already %s, skipping", submission.ID, submission.Status)
		return nil
	}

	if err := e.db.Model(&submission).Update("status", models.SubmissionAnalyzing).Error; err != nil {
		return err
	}

	src, err := Normalize([]byte(submission.Content), submission.Language)
	if err != nil {
		e.markFailed(&submission, err)
		return err
	}

	candidates, source, err := e.Analyze(ctx, src)
	if err != nil {
		e.markFailed(&submission, err)
		return err
	}

	now := time.Now()
	err = e.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range candidates {
			feedback := models.Feedback{
				SubmissionID: submission.ID,
				LineNumber:   c.LineNumber,
				Severity:     c.Severity,
				Category:     c.Category,
				Message:      c.Message,
				Source:       sourceFromStrategy(source),
				Status:       models.FeedbackPending,
			}
			if err := tx.Create(&feedback).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Submission{}).
			Where("id = ?", submission.ID).
			Updates(map[string]interface{}{
				"status":      models.SubmissionFeedbackReady,
				"analyzed_at": now,
			}).Error
	})
	if err != nil {
		e.markFailed(&submission, err)
		return err
	}

	logger.Infof("[Analyzer] Submission %d analyzed via %s: %d feedback items", submission.ID, source, len(candidates))

	if e.queue != nil {
		if err := e.queue.Enqueue(&Task{
			Type:         TaskTypePlagiarism,
			AssignmentID: submission.AssignmentID,
		}); err != nil {
			logger.Warnf("[Analyzer] Failed to enqueue plagiarism pass for assignment %d: %v", submission.AssignmentID, err)
		}
	}

	return nil
}

func (e *AnalysisEngine) markFailed(submission *models.Submission, cause error) {
	logger.Errorf("[Analyzer] Submission %d failed: %v", submission.ID, cause)
	e.db.Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Updates(map[string]interface{}{
			"status":        models.SubmissionFailed,
			"error_message": cause.Error(),
		})
}

func sourceFromStrategy(name string) string {
	if name == "remote" {
		return models.SourceRemote
	}
	return models.SourceRules
}
