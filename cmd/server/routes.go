package main

import (
	"github.com/gin-gonic/gin"
	"github.com/hfeng/codegrader/internal/handlers"
	"github.com/hfeng/codegrader/internal/middleware"
	"github.com/hfeng/codegrader/internal/models"
	"github.com/hfeng/codegrader/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	db := models.GetDB()

	// Rate limiters: one for unauthenticated routes, a tighter one for uploads
	publicLimiter := middleware.NewRateLimiter(10, 20)
	uploadLimiter := middleware.NewRateLimiter(2, 5)

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/health", healthHandler.Check)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", publicLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/register", svc.authHandler.Register)
		}

		// Protected routes (any authenticated user)
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Courses and assignments (read)
			courseHandler := handlers.NewCourseHandler(db)
			protected.GET("/courses", courseHandler.List)
			protected.GET("/courses/:id", courseHandler.Get)
			protected.GET("/assignments", courseHandler.ListAssignments)
			protected.GET("/assignments/:id", courseHandler.GetAssignment)

			// Submissions (students)
			submissionHandler := handlers.NewSubmissionHandler(db, svc.taskQueue)
			protected.POST("/submissions", uploadLimiter.Middleware(), submissionHandler.Create)
			protected.GET("/submissions/:id", submissionHandler.Get)
			protected.GET("/submissions/:id/feedback", submissionHandler.StudentFeedback)
			protected.GET("/assignments/:id/history", submissionHandler.History)
		}

		// Instructor routes (instructors and admins)
		instructor := api.Group("")
		instructor.Use(middleware.AuthRequired(), middleware.InstructorRequired(), middleware.AuditLog())
		{
			// Courses and assignments (write)
			courseHandler := handlers.NewCourseHandler(db)
			instructor.POST("/courses", courseHandler.Create)
			instructor.PUT("/courses/:id", courseHandler.Update)
			instructor.DELETE("/courses/:id", courseHandler.Delete)
			instructor.POST("/assignments", courseHandler.CreateAssignment)
			instructor.PUT("/assignments/:id", courseHandler.UpdateAssignment)
			instructor.DELETE("/assignments/:id", courseHandler.DeleteAssignment)
			instructor.GET("/assignments/:id/export", courseHandler.ExportCSV)

			// Submission review
			submissionHandler := handlers.NewSubmissionHandler(db, svc.taskQueue)
			instructor.GET("/assignments/:id/submissions", submissionHandler.ListByAssignment)

			// Feedback review queue and decisions
			feedbackHandler := handlers.NewFeedbackHandler(db)
			instructor.GET("/assignments/:id/feedback/pending", feedbackHandler.ListPending)
			instructor.GET("/submissions/:id/feedback/all", feedbackHandler.ListForSubmission)
			instructor.POST("/feedback/:id/approve", feedbackHandler.Approve)
			instructor.POST("/feedback/:id/reject", feedbackHandler.Reject)
			instructor.POST("/feedback/:id/edit", feedbackHandler.Edit)
			instructor.POST("/feedback/bulk-approve", feedbackHandler.BulkApprove)

			// Plagiarism reports
			plagiarismHandler := handlers.NewPlagiarismHandler(db, svc.cfg, svc.taskQueue)
			instructor.GET("/assignments/:id/plagiarism", plagiarismHandler.List)
			instructor.POST("/assignments/:id/plagiarism/scan", plagiarismHandler.Scan)
			instructor.POST("/plagiarism/:id/dismiss", plagiarismHandler.Dismiss)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(db)
			instructor.GET("/dashboard/stats", dashboardHandler.GetStats)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.POST("/users", svc.authHandler.CreateUser)

			// System Config
			systemConfigHandler := handlers.NewSystemConfigHandler(db)
			admin.GET("/system/configs", systemConfigHandler.List)
			admin.PUT("/system/configs", systemConfigHandler.Update)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(db)
			admin.GET("/system/logs", systemLogHandler.List)
			admin.GET("/system/logs/modules", systemLogHandler.GetModules)
			admin.POST("/system/logs/cleanup", systemLogHandler.Cleanup)
		}
	}
}
