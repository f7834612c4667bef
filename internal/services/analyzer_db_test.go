package services

import (
	"context"
	"testing"

	"github.com/hfeng/codegrader/internal/config"
	"github.com/hfeng/codegrader/internal/models"
)

func TestProcessSubmission_FullPipeline(t *testing.T) {
	db := testDB(t)
	engine := NewAnalysisEngine(db, &config.AIConfig{Provider: "openai"})

	sub := seedSubmission(t, db, 1, 1, "python", "result = eval(data)\nprint(result)\n")

	if err := engine.ProcessSubmission(context.Background(), sub.ID); err != nil {
		t.Fatalf("ProcessSubmission failed: %v", err)
	}

	var got models.Submission
	db.First(&got, sub.ID)
	if got.Status != models.SubmissionFeedbackReady {
		t.Errorf("status = %q, expected feedback_ready", got.Status)
	}
	if got.AnalyzedAt == nil {
		t.Error("AnalyzedAt should be set")
	}

	var feedbacks []models.Feedback
	db.Where("submission_id = ?", sub.ID).Order("line_number ASC").Find(&feedbacks)
	if len(feedbacks) == 0 {
		t.Fatal("expected feedback rows")
	}
	for _, fb := range feedbacks {
		if fb.Status != models.FeedbackPending {
			t.Errorf("new feedback must be pending, got %q", fb.Status)
		}
		if fb.Source != models.SourceRules {
			t.Errorf("source = %q, expected rules", fb.Source)
		}
		if fb.LineNumber < 1 || fb.LineNumber > got.LineCount {
			t.Errorf("line %d outside [1,%d]", fb.LineNumber, got.LineCount)
		}
	}
}

func TestProcessSubmission_RemoteFailureFallsBackToRules(t *testing.T) {
	db := testDB(t)
	engine := NewAnalysisEngine(db, &config.AIConfig{Provider: "openai"})
	engine.SetStrategies(brokenStrategy{}, NewRuleStrategy())

	sub := seedSubmission(t, db, 1, 1, "python", "x = 1\n")

	if err := engine.ProcessSubmission(context.Background(), sub.ID); err != nil {
		t.Fatalf("ProcessSubmission failed: %v", err)
	}

	var got models.Submission
	db.First(&got, sub.ID)
	if got.Status != models.SubmissionFeedbackReady {
		t.Errorf("status = %q, a remote outage must never fail the submission", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error_message = %q, expected empty", got.ErrorMessage)
	}

	var feedbacks []models.Feedback
	db.Where("submission_id = ?", sub.ID).Find(&feedbacks)
	if len(feedbacks) == 0 {
		t.Fatal("expected fallback feedback rows")
	}
	for _, fb := range feedbacks {
		if fb.Source != models.SourceRules {
			t.Errorf("source = %q, expected rules after fallback", fb.Source)
		}
	}
}

func TestProcessSubmission_SkipsCompleted(t *testing.T) {
	db := testDB(t)
	engine := NewAnalysisEngine(db, &config.AIConfig{Provider: "openai"})

	sub := seedSubmission(t, db, 1, 1, "python", "x = 1\n")
	db.Model(&models.Submission{}).Where("id = ?", sub.ID).
		Update("status", models.SubmissionFeedbackReady)

	if err := engine.ProcessSubmission(context.Background(), sub.ID); err != nil {
		t.Fatalf("re-processing a completed submission should be a no-op: %v", err)
	}

	var count int64
	db.Model(&models.Feedback{}).Where("submission_id = ?", sub.ID).Count(&count)
	if count != 0 {
		t.Errorf("no feedback should be written for a completed submission, got %d", count)
	}
}

func TestProcessSubmission_RetriesFailed(t *testing.T) {
	db := testDB(t)
	engine := NewAnalysisEngine(db, &config.AIConfig{Provider: "openai"})

	sub := seedSubmission(t, db, 1, 1, "python", "x = 1\n")
	db.Model(&models.Submission{}).Where("id = ?", sub.ID).
		Update("status", models.SubmissionFailed)

	if err := engine.ProcessSubmission(context.Background(), sub.ID); err != nil {
		t.Fatalf("retrying a failed submission should work: %v", err)
	}

	var got models.Submission
	db.First(&got, sub.ID)
	if got.Status != models.SubmissionFeedbackReady {
		t.Errorf("status = %q, expected feedback_ready after retry", got.Status)
	}
}

func TestProcessSubmission_MissingSubmission(t *testing.T) {
	db := testDB(t)
	engine := NewAnalysisEngine(db, &config.AIConfig{Provider: "openai"})

	err := engine.ProcessSubmission(context.Background(), 9999)
	if err == nil {
		t.Error("expected an error for a missing submission")
	}
}
