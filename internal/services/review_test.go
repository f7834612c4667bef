package services

import (
	"errors"
	"testing"

	"github.com/hfeng/codegrader/internal/models"
)

func TestReviewService_ApprovePending(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)
	fb := seedSubmissionWithFeedback(t, db, models.FeedbackPending)

	if err := svc.Approve(fb.ID, 42); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	var got models.Feedback
	db.First(&got, fb.ID)
	if got.Status != models.FeedbackApproved {
		t.Errorf("status = %q, expected approved", got.Status)
	}
	if got.DecidedBy == nil || *got.DecidedBy != 42 {
		t.Errorf("DecidedBy = %v, expected 42", got.DecidedBy)
	}
	if got.DecidedAt == nil {
		t.Error("DecidedAt should be set")
	}
}

func TestReviewService_DecisionsAreTerminal(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)

	for _, initial := range []string{models.FeedbackApproved, models.FeedbackRejected, models.FeedbackEdited} {
		fb := seedSubmissionWithFeedback(t, db, initial)

		err := svc.Approve(fb.ID, 1)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("approving a %s feedback: err = %v, expected ErrConflict", initial, err)
		}
		err = svc.Reject(fb.ID, 1)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("rejecting a %s feedback: err = %v, expected ErrConflict", initial, err)
		}
		err = svc.Edit(fb.ID, 1, "new text", "")
		if !errors.Is(err, ErrConflict) {
			t.Errorf("editing a %s feedback: err = %v, expected ErrConflict", initial, err)
		}

		var got models.Feedback
		db.First(&got, fb.ID)
		if got.Status != initial {
			t.Errorf("terminal status changed from %q to %q", initial, got.Status)
		}
	}
}

func TestReviewService_MissingFeedbackIsNotFound(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)

	if err := svc.Approve(9999, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, expected ErrNotFound", err)
	}
}

func TestReviewService_EditKeepsOriginalMessage(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)
	fb := seedSubmissionWithFeedback(t, db, models.FeedbackPending)

	if err := svc.Edit(fb.ID, 7, "clearer wording", "softened tone"); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}

	var got models.Feedback
	db.First(&got, fb.ID)
	if got.Status != models.FeedbackEdited {
		t.Errorf("status = %q, expected edited", got.Status)
	}
	if got.Message != "clearer wording" {
		t.Errorf("Message = %q, expected the replacement", got.Message)
	}
	if got.OriginalMessage != "original message" {
		t.Errorf("OriginalMessage = %q, expected the pre-edit text", got.OriginalMessage)
	}
	if got.InstructorNotes != "softened tone" {
		t.Errorf("InstructorNotes = %q", got.InstructorNotes)
	}
}

func TestReviewService_EditRequiresMessage(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)
	fb := seedSubmissionWithFeedback(t, db, models.FeedbackPending)

	if err := svc.Edit(fb.ID, 1, "", ""); err == nil {
		t.Error("Edit with empty message should fail")
	}
}

func TestReviewService_BulkApprovePartialFailure(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)

	pending1 := seedSubmissionWithFeedback(t, db, models.FeedbackPending)
	rejected := seedSubmissionWithFeedback(t, db, models.FeedbackRejected)
	pending2 := seedSubmissionWithFeedback(t, db, models.FeedbackPending)

	ids := []uint{pending1.ID, rejected.ID, pending2.ID, 9999}
	results := svc.BulkApprove(ids, 5)

	if len(results) != len(ids) {
		t.Fatalf("got %d results for %d ids", len(results), len(ids))
	}
	if !results[0].Succeeded || !results[2].Succeeded {
		t.Errorf("pending items should approve: %+v", results)
	}
	if results[1].Succeeded {
		t.Error("already-rejected item should fail")
	}
	if results[3].Succeeded {
		t.Error("missing id should fail")
	}
	if results[1].Error == "" || results[3].Error == "" {
		t.Errorf("failed results should carry a reason: %+v", results)
	}

	// The failures must not have blocked the successes.
	var got models.Feedback
	db.First(&got, pending2.ID)
	if got.Status != models.FeedbackApproved {
		t.Errorf("pending2 status = %q, expected approved", got.Status)
	}
}

func TestReviewService_ListForStudentFiltersStatuses(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)

	sub := seedSubmission(t, db, 1, 1, "python", "a = 1\nb = 2\nc = 3\nd = 4\n")
	rows := []models.Feedback{
		{SubmissionID: sub.ID, LineNumber: 3, Severity: "warning", Message: "approved", Status: models.FeedbackApproved},
		{SubmissionID: sub.ID, LineNumber: 1, Severity: "warning", Message: "edited", Status: models.FeedbackEdited},
		{SubmissionID: sub.ID, LineNumber: 2, Severity: "warning", Message: "pending", Status: models.FeedbackPending},
		{SubmissionID: sub.ID, LineNumber: 4, Severity: "warning", Message: "rejected", Status: models.FeedbackRejected},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	visible, err := svc.ListForStudent(sub.ID)
	if err != nil {
		t.Fatalf("ListForStudent failed: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("student should see 2 rows, got %d", len(visible))
	}
	if visible[0].Message != "edited" || visible[1].Message != "approved" {
		t.Errorf("rows not ordered by line: %+v", visible)
	}
}

func TestReviewService_ListPendingScopedToAssignment(t *testing.T) {
	db := testDB(t)
	svc := NewReviewService(db)

	subA := seedSubmission(t, db, 1, 1, "python", "x = 1\n")
	subB := seedSubmission(t, db, 2, 2, "python", "y = 2\n")
	db.Create(&models.Feedback{SubmissionID: subA.ID, LineNumber: 1, Severity: "warning", Message: "in scope", Status: models.FeedbackPending})
	db.Create(&models.Feedback{SubmissionID: subB.ID, LineNumber: 1, Severity: "warning", Message: "other assignment", Status: models.FeedbackPending})

	pending, err := svc.ListPending(1)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Message != "in scope" {
		t.Errorf("pending queue wrong: %+v", pending)
	}
}
