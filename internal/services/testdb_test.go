package services

import (
	"fmt"
	"testing"

	"github.com/hfeng/codegrader/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB opens an isolated in-memory database migrated with the full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Assignment{},
		&models.Submission{},
		&models.Feedback{},
		&models.PlagiarismReport{},
		&models.SystemConfig{},
		&models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedSubmissionWithFeedback creates the minimal graph one feedback row needs.
func seedSubmissionWithFeedback(t *testing.T, db *gorm.DB, status string) *models.Feedback {
	t.Helper()

	sub := seedSubmission(t, db, 1, 1, "python", "x = 1\n")
	fb := &models.Feedback{
		SubmissionID: sub.ID,
		LineNumber:   1,
		Severity:     models.SeverityWarning,
		Category:     "style",
		Message:      "original message",
		Source:       models.SourceRules,
		Status:       status,
	}
	if err := db.Create(fb).Error; err != nil {
		t.Fatalf("failed to seed feedback: %v", err)
	}
	return fb
}

var seedCounter int

// seedSubmission creates an assignment (if needed) and one submission.
func seedSubmission(t *testing.T, db *gorm.DB, assignmentID, studentID uint, language, content string) *models.Submission {
	t.Helper()

	var assignment models.Assignment
	if err := db.First(&assignment, assignmentID).Error; err != nil {
		assignment = models.Assignment{
			ID:           assignmentID,
			CourseID:     1,
			InstructorID: 1,
			Title:        fmt.Sprintf("Assignment %d", assignmentID),
			Language:     language,
			MaxAttempts:  3,
		}
		if err := db.Create(&assignment).Error; err != nil {
			t.Fatalf("failed to seed assignment: %v", err)
		}
	}

	var attempt int64
	db.Model(&models.Submission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&attempt)

	seedCounter++
	src, err := Normalize([]byte(content), language)
	if err != nil {
		t.Fatalf("failed to normalize seed content: %v", err)
	}

	sub := &models.Submission{
		PublicID:      fmt.Sprintf("test-%s-%d", t.Name(), seedCounter),
		AssignmentID:  assignmentID,
		StudentID:     studentID,
		AttemptNumber: int(attempt) + 1,
		Language:      language,
		Filename:      "main." + language,
		Content:       content,
		LineCount:     src.LineCount(),
		Status:        models.SubmissionUploaded,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return sub
}
