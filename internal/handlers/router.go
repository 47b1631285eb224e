package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/aptitude-portal/timing-analytics-service/internal/services"
	"github.com/aptitude-portal/timing-analytics-service/internal/utils"
)

type HandlerManager struct {
	responseHandler *ResponseHandler
	analysisHandler *AnalysisHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		responseHandler: NewResponseHandler(serviceManager.Response(), logger),
		analysisHandler: NewAnalysisHandler(
			serviceManager.Analysis(),
			serviceManager.Scoring(),
			serviceManager.Export(),
			logger,
		),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Response ledger routes
		responses := v1.Group("/responses")
		{
			responses.POST("", hm.responseHandler.RecordResponse)
		}

		// Student routes
		students := v1.Group("/students")
		{
			students.GET("/:student_id/responses", hm.responseHandler.GetStudentResponses)
		}

		// Timing analysis routes
		analysis := v1.Group("/timing-analysis")
		{
			analysis.GET("/visualization", hm.analysisHandler.GetPopulationVisualization)
			analysis.GET("/suspicious", hm.analysisHandler.GetSuspiciousResponses)
			analysis.GET("/performance", hm.analysisHandler.GetPerformanceTable)
			analysis.GET("/leaderboard", hm.analysisHandler.GetLeaderboard)
			analysis.GET("/students", hm.analysisHandler.GetStudents)
			analysis.GET("/categories", hm.analysisHandler.GetCategories)
			analysis.GET("/students/:student_id/visualization", hm.analysisHandler.GetStudentVisualization)
			analysis.GET("/students/:student_id/score", hm.analysisHandler.GetStudentScore)

			// Spreadsheet downloads
			analysis.GET("/export/performance", hm.analysisHandler.ExportPerformance)
			analysis.GET("/export/suspicious", hm.analysisHandler.ExportSuspicious)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "timing-analytics-service",
		})
	})
}
