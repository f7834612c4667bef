package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/pkg/response"
	"gorm.io/gorm"
)

type CourseHandler struct {
	courses *services.CourseService
	exports *services.ExportService
}

func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{
		courses: services.NewCourseService(db),
		exports: services.NewExportService(db, services.NewDeadlineService(db)),
	}
}

// Create handles POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	course, err := h.courses.Create(&req, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, course)
}

// List handles GET /api/courses
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(0)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, courses)
}

// Get handles GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	course, err := h.courses.GetByID(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, course)
}

// Update handles PUT /api/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	course, err := h.courses.Update(id, &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, course)
}

// Delete handles DELETE /api/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.courses.Delete(id); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "course deleted"})
}

// CreateAssignment handles POST /api/assignments
func (h *CourseHandler) CreateAssignment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.courses.CreateAssignment(&req, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Created(c, assignment)
}

// ListAssignments handles GET /api/assignments?course_id=N
func (h *CourseHandler) ListAssignments(c *gin.Context) {
	var query struct {
		CourseID uint `form:"course_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignments, err := h.courses.ListAssignments(query.CourseID)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, assignments)
}

// GetAssignment handles GET /api/assignments/:id
func (h *CourseHandler) GetAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	assignment, err := h.courses.GetAssignment(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, assignment)
}

// UpdateAssignment handles PUT /api/assignments/:id
func (h *CourseHandler) UpdateAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := h.courses.UpdateAssignment(id, &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, assignment)
}

// DeleteAssignment handles DELETE /api/assignments/:id
func (h *CourseHandler) DeleteAssignment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.courses.DeleteAssignment(id); err != nil {
		serviceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "assignment deleted"})
}

// ExportCSV handles GET /api/assignments/:id/export
func (h *CourseHandler) ExportCSV(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	filename := fmt.Sprintf("assignment_%d_%s.csv", id, time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := h.exports.WriteAssignmentCSV(c.Writer, id); err != nil {
		serviceError(c, err)
		return
	}
}
