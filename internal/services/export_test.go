package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/hfeng/codegrader/internal/models"
)

func TestWriteAssignmentCSV(t *testing.T) {
	db := testDB(t)

	student := &models.User{
		Username:  "alice",
		Password:  "x",
		Role:      models.RoleStudent,
		StudentNo: "S1001",
	}
	if err := db.Create(student).Error; err != nil {
		t.Fatalf("failed to seed student: %v", err)
	}

	sub := seedSubmission(t, db, 1, student.ID, "python", "x = 1\ny = 2\n")
	submitted := mustDate(t, "2026-01-12T09:00:00Z")
	due := mustDate(t, "2026-01-09T17:00:00Z")
	db.Model(&models.Submission{}).Where("id = ?", sub.ID).
		Update("submitted_at", submitted)
	db.Model(&models.Assignment{}).Where("id = ?", 1).
		Update("due_date", due)

	fb := &models.Feedback{
		SubmissionID: sub.ID,
		LineNumber:   1,
		Severity:     models.SeverityWarning,
		Category:     "style",
		Message:      "rename this",
		Source:       models.SourceRules,
		Status:       models.FeedbackApproved,
	}
	if err := db.Create(fb).Error; err != nil {
		t.Fatalf("failed to seed feedback: %v", err)
	}

	svc := NewExportService(db, NewDeadlineService(db))
	var buf bytes.Buffer
	if err := svc.WriteAssignmentCSV(&buf, 1); err != nil {
		t.Fatalf("WriteAssignmentCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("export produced invalid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "student_no" || rows[0][len(rows[0])-1] != "submitted_at" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	row := rows[1]
	want := map[int]string{
		0: "S1001",   // student_no
		1: "alice",   // username
		2: "1",       // attempt
		5: "2",       // line_count
		6: "1",       // approved_feedback
		7: "0",       // edited_feedback
		8: "true",    // late
		9: "1",       // business_days_late
	}
	for idx, expected := range want {
		if row[idx] != expected {
			t.Errorf("column %s = %q, expected %q", exportHeader[idx], row[idx], expected)
		}
	}
	if got, _ := time.Parse("2006-01-02 15:04:05", row[10]); !got.Equal(submitted) {
		t.Errorf("submitted_at = %q, expected %v", row[10], submitted)
	}
}

func TestWriteAssignmentCSV_MissingAssignment(t *testing.T) {
	db := testDB(t)
	svc := NewExportService(db, NewDeadlineService(db))

	var buf bytes.Buffer
	if err := svc.WriteAssignmentCSV(&buf, 404); err == nil {
		t.Error("expected an error for a missing assignment")
	}
}
