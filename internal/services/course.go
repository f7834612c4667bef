package services

import (
	"fmt"
	"time"

	"github.com/hfeng/codegrader/internal/models"
	"gorm.io/gorm"
)

// CourseService manages courses and their assignments.
type CourseService struct {
	db *gorm.DB
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db}
}

type CreateCourseRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

func (s *CourseService) Create(req *CreateCourseRequest, instructorID uint) (*models.Course, error) {
	var count int64
	s.db.Model(&models.Course{}).Where("code = ?", req.Code).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("%w: course code %q already exists", ErrConflict, req.Code)
	}

	course := models.Course{
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		InstructorID: instructorID,
		IsActive:     true,
	}
	if err := s.db.Create(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

type UpdateCourseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (s *CourseService) Update(id uint, req *UpdateCourseRequest) (*models.Course, error) {
	course, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return course, nil
	}
	if err := s.db.Model(course).Updates(updates).Error; err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := s.db.Preload("Instructor").First(&course, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: course %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &course, nil
}

func (s *CourseService) List(instructorID uint) ([]models.Course, error) {
	var courses []models.Course
	q := s.db.Order("code ASC")
	if instructorID != 0 {
		q = q.Where("instructor_id = ?", instructorID)
	}
	err := q.Find(&courses).Error
	return courses, err
}

func (s *CourseService) Delete(id uint) error {
	res := s.db.Delete(&models.Course{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: course %d", ErrNotFound, id)
	}
	return nil
}

type CreateAssignmentRequest struct {
	CourseID    uint       `json:"course_id" binding:"required"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Language    string     `json:"language" binding:"omitempty,oneof=python java cpp"`
	DueDate     *time.Time `json:"due_date"`
	MaxAttempts int        `json:"max_attempts" binding:"omitempty,min=1"`
}

func (s *CourseService) CreateAssignment(req *CreateAssignmentRequest, instructorID uint) (*models.Assignment, error) {
	if _, err := s.GetByID(req.CourseID); err != nil {
		return nil, err
	}
	if req.Language != "" && !SupportedLanguage(req.Language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}

	assignment := models.Assignment{
		CourseID:     req.CourseID,
		InstructorID: instructorID,
		Title:        req.Title,
		Description:  req.Description,
		Language:     req.Language,
		DueDate:      req.DueDate,
		MaxAttempts:  req.MaxAttempts,
	}
	if assignment.MaxAttempts <= 0 {
		assignment.MaxAttempts = 3
	}
	if err := s.db.Create(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

type UpdateAssignmentRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	MaxAttempts *int       `json:"max_attempts"`
}

func (s *CourseService) UpdateAssignment(id uint, req *UpdateAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.GetAssignment(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.MaxAttempts != nil && *req.MaxAttempts > 0 {
		updates["max_attempts"] = *req.MaxAttempts
	}
	if len(updates) == 0 {
		return assignment, nil
	}
	if err := s.db.Model(assignment).Updates(updates).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *CourseService) GetAssignment(id uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := s.db.Preload("Course").First(&assignment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: assignment %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &assignment, nil
}

func (s *CourseService) ListAssignments(courseID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	q := s.db.Order("due_date ASC, id ASC")
	if courseID != 0 {
		q = q.Where("course_id = ?", courseID)
	}
	err := q.Find(&assignments).Error
	return assignments, err
}

func (s *CourseService) DeleteAssignment(id uint) error {
	res := s.db.Delete(&models.Assignment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: assignment %d", ErrNotFound, id)
	}
	return nil
}
