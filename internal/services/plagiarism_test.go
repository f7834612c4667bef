package services

import (
	"context"
	"math"
	"testing"

	"github.com/hfeng/codegrader/internal/config"
	"github.com/hfeng/codegrader/internal/models"
)

func TestShingleSet_Basic(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e"}
	set := shingleSet(tokens, 3)
	if len(set) != 3 {
		t.Errorf("5 tokens with k=3 should yield 3 shingles, got %d", len(set))
	}
}

func TestShingleSet_ShortStream(t *testing.T) {
	set := shingleSet([]string{"a", "b"}, 5)
	if len(set) != 1 {
		t.Errorf("stream shorter than k should yield one shingle, got %d", len(set))
	}
	if len(shingleSet(nil, 5)) != 0 {
		t.Error("empty stream should yield no shingles")
	}
}

func TestJaccard_Identity(t *testing.T) {
	set := shingleSet([]string{"x", "=", "1", ";", "y"}, 3)
	if sim := jaccard(set, set); sim != 1.0 {
		t.Errorf("jaccard(A, A) = %f, expected 1.0", sim)
	}
}

func TestJaccard_Symmetric(t *testing.T) {
	a := shingleSet([]string{"a", "b", "c", "d", "e"}, 3)
	b := shingleSet([]string{"c", "d", "e", "f", "g"}, 3)
	if jaccard(a, b) != jaccard(b, a) {
		t.Error("jaccard is not symmetric")
	}
}

func TestJaccard_KnownOverlap(t *testing.T) {
	// k=3 over [a..e] gives {abc,bcd,cde}; over [a..f] gives {abc,bcd,cde,def}.
	// Intersection 3, union 4.
	a := shingleSet([]string{"a", "b", "c", "d", "e"}, 3)
	b := shingleSet([]string{"a", "b", "c", "d", "e", "f"}, 3)
	sim := jaccard(a, b)
	if math.Abs(sim-0.75) > 1e-9 {
		t.Errorf("jaccard = %f, expected 0.75", sim)
	}
}

func TestJaccard_Disjoint(t *testing.T) {
	a := shingleSet([]string{"a", "b", "c"}, 3)
	b := shingleSet([]string{"x", "y", "z"}, 3)
	if sim := jaccard(a, b); sim != 0 {
		t.Errorf("disjoint sets: jaccard = %f, expected 0", sim)
	}
}

func TestJaccard_BothEmpty(t *testing.T) {
	if sim := jaccard(map[string]struct{}{}, map[string]struct{}{}); sim != 0 {
		t.Errorf("two empty sets: jaccard = %f, expected 0", sim)
	}
}

func TestPlagiarismRun_IdenticalSubmissionsFlagged(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	code := "def add(a, b):\n    total = a + b\n    return total\n"
	seedSubmission(t, db, 1, 1, "python", code)
	seedSubmission(t, db, 1, 2, "python", code)

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	reports, err := svc.ListByAssignment(1, models.ReportActive)
	if err != nil {
		t.Fatalf("ListByAssignment failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].SimilarityScore != 1.0 {
		t.Errorf("identical code score = %f, expected 1.0", reports[0].SimilarityScore)
	}
	if reports[0].Submission1ID > reports[0].Submission2ID {
		t.Error("pair not normalized: submission1_id should be the smaller id")
	}
}

func TestPlagiarismRun_CommentsDoNotHideCopying(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	seedSubmission(t, db, 1, 1, "python", "def add(a, b):\n    return a + b\n")
	seedSubmission(t, db, 1, 2, "python", "# my own work\ndef add(a, b):\n    return a + b  # sum\n")

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	reports, _ := svc.ListByAssignment(1, models.ReportActive)
	if len(reports) != 1 || reports[0].SimilarityScore != 1.0 {
		t.Errorf("comment-only differences should still score 1.0, got %+v", reports)
	}
}

func TestPlagiarismRun_DistinctCodeNotFlagged(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	seedSubmission(t, db, 1, 1, "python", "def add(a, b):\n    return a + b\n")
	seedSubmission(t, db, 1, 2, "python", "class Stack:\n    def __init__(self):\n        self.items = []\n    def push(self, v):\n        self.items.append(v)\n")

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	reports, _ := svc.ListByAssignment(1, "")
	if len(reports) != 0 {
		t.Errorf("unrelated code should produce no reports, got %+v", reports)
	}
}

func TestPlagiarismRun_OnlyComparesSameLanguage(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	// Identical token streams in different languages must not pair up.
	code := "total = a + b\nresult = total + c\n"
	py1 := seedSubmission(t, db, 1, 1, "python", code)
	seedSubmission(t, db, 1, 2, "cpp", code)

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	reports, _ := svc.ListByAssignment(1, "")
	if len(reports) != 0 {
		t.Fatalf("cross-language pair should not be compared, got %+v", reports)
	}

	py2 := seedSubmission(t, db, 1, 3, "python", code)

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	reports, _ = svc.ListByAssignment(1, models.ReportActive)
	if len(reports) != 1 {
		t.Fatalf("expected only the python pair flagged, got %d reports", len(reports))
	}
	first, second := models.NormalizePair(py1.ID, py2.ID)
	if reports[0].Submission1ID != first || reports[0].Submission2ID != second {
		t.Errorf("flagged pair (%d,%d), expected (%d,%d)",
			reports[0].Submission1ID, reports[0].Submission2ID, first, second)
	}
}

func TestPlagiarismRun_OnlyLatestAttemptCompared(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	copied := "def add(a, b):\n    return a + b\n"
	// Student 1's first attempt matches student 2, but their latest does not.
	seedSubmission(t, db, 1, 1, "python", copied)
	seedSubmission(t, db, 1, 1, "python", "def multiply(x, y):\n    product = x * y\n    return product\n")
	seedSubmission(t, db, 1, 2, "python", copied)

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	reports, _ := svc.ListByAssignment(1, "")
	if len(reports) != 0 {
		t.Errorf("superseded attempts must not be compared, got %+v", reports)
	}
}

func TestPlagiarismRun_Idempotent(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	code := "def add(a, b):\n    return a + b\n"
	seedSubmission(t, db, 1, 1, "python", code)
	seedSubmission(t, db, 1, 2, "python", code)

	for i := 0; i < 3; i++ {
		if err := svc.Run(context.Background(), 1); err != nil {
			t.Fatalf("Run #%d failed: %v", i+1, err)
		}
	}

	var count int64
	db.Model(&models.PlagiarismReport{}).Count(&count)
	if count != 1 {
		t.Errorf("re-running produced duplicate reports: count = %d", count)
	}
}

func TestPlagiarismRun_DismissedStaysDismissed(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	code := "def add(a, b):\n    return a + b\n"
	seedSubmission(t, db, 1, 1, "python", code)
	seedSubmission(t, db, 1, 2, "python", code)

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	reports, _ := svc.ListByAssignment(1, models.ReportActive)
	if len(reports) != 1 {
		t.Fatalf("expected 1 active report, got %d", len(reports))
	}

	if err := svc.Dismiss(reports[0].ID, 9, "pair-programming allowed"); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}

	if err := svc.Run(context.Background(), 1); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	var got models.PlagiarismReport
	db.First(&got, reports[0].ID)
	if got.Status != models.ReportDismissed {
		t.Errorf("detector reactivated a dismissed report: status = %q", got.Status)
	}
	if got.DismissedBy == nil || *got.DismissedBy != 9 {
		t.Errorf("DismissedBy = %v, expected 9", got.DismissedBy)
	}
}

func TestPlagiarismDismiss_Twice(t *testing.T) {
	db := testDB(t)
	svc := NewPlagiarismService(db, &config.PlagiarismConfig{ShingleSize: 5, Threshold: 0.6})

	code := "def add(a, b):\n    return a + b\n"
	seedSubmission(t, db, 1, 1, "python", code)
	seedSubmission(t, db, 1, 2, "python", code)
	svc.Run(context.Background(), 1)
	reports, _ := svc.ListByAssignment(1, "")

	if err := svc.Dismiss(reports[0].ID, 1, ""); err != nil {
		t.Fatalf("first Dismiss failed: %v", err)
	}
	if err := svc.Dismiss(reports[0].ID, 1, ""); err == nil {
		t.Error("second Dismiss should fail")
	}
}

func TestNormalizePair(t *testing.T) {
	a, b := models.NormalizePair(9, 4)
	if a != 4 || b != 9 {
		t.Errorf("NormalizePair(9, 4) = (%d, %d), expected (4, 9)", a, b)
	}
	a, b = models.NormalizePair(4, 9)
	if a != 4 || b != 9 {
		t.Errorf("NormalizePair(4, 9) = (%d, %d), expected (4, 9)", a, b)
	}
}
