package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aptitude-portal/timing-analytics-service/internal/services"
	"github.com/aptitude-portal/timing-analytics-service/internal/utils"
)

type AnalysisHandler struct {
	BaseHandler
	analysisService services.AnalysisService
	scoringService  services.ScoringService
	exportService   services.ExportService
}

func NewAnalysisHandler(
	analysisService services.AnalysisService,
	scoringService services.ScoringService,
	exportService services.ExportService,
	logger utils.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		BaseHandler:     NewBaseHandler(logger),
		analysisService: analysisService,
		scoringService:  scoringService,
		exportService:   exportService,
	}
}

// GetStudentVisualization returns the dashboard bundle for one student
// @Summary Get student visualization
// @Description Returns venn, category, and time-distribution data for one student
// @Tags timing-analysis
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.VisualizationBundle
// @Failure 503 {object} ErrorResponse
// @Router /timing-analysis/students/{student_id}/visualization [get]
func (h *AnalysisHandler) GetStudentVisualization(c *gin.Context) {
	studentID := ParseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	bundle, err := h.analysisService.StudentVisualization(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// GetPopulationVisualization returns the dashboard bundle across all students
// @Summary Get population visualization
// @Tags timing-analysis
// @Produce json
// @Success 200 {object} services.VisualizationBundle
// @Router /timing-analysis/visualization [get]
func (h *AnalysisHandler) GetPopulationVisualization(c *gin.Context) {
	bundle, err := h.analysisService.PopulationVisualization(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, bundle)
}

// GetSuspiciousResponses returns the flagged-answer review queue
// @Summary List suspicious responses
// @Description Returns flagged answers ordered most suspicious first, capped at 100
// @Tags timing-analysis
// @Produce json
// @Param limit query int false "Maximum rows (default and cap 100)"
// @Success 200 {object} SuccessResponse
// @Router /timing-analysis/suspicious [get]
func (h *AnalysisHandler) GetSuspiciousResponses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	rows, err := h.analysisService.SuspiciousList(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "suspicious responses retrieved",
		Data:    rows,
	})
}

// GetPerformanceTable returns the ranked student table
// @Summary Get performance table
// @Description Returns every student's performance summary sorted by an allowlisted column
// @Tags timing-analysis
// @Produce json
// @Param sort_by query string false "Sort column (default score)"
// @Param sort_order query string false "asc or desc (default desc)"
// @Success 200 {object} SuccessResponse
// @Router /timing-analysis/performance [get]
func (h *AnalysisHandler) GetPerformanceTable(c *gin.Context) {
	sortBy := c.DefaultQuery("sort_by", "score")
	sortOrder := c.DefaultQuery("sort_order", "desc")

	summaries, err := h.analysisService.StudentPerformanceTable(c.Request.Context(), sortBy, sortOrder)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "performance table retrieved",
		Data:    summaries,
	})
}

// GetLeaderboard returns students ranked by composite score
// @Summary Get leaderboard
// @Tags timing-analysis
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /timing-analysis/leaderboard [get]
func (h *AnalysisHandler) GetLeaderboard(c *gin.Context) {
	board, err := h.scoringService.Leaderboard(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "leaderboard retrieved",
		Data:    board,
	})
}

// GetStudentScore returns one student's performance summary
// @Summary Get student score
// @Tags timing-analysis
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} models.StudentPerformanceSummary
// @Failure 404 {object} ErrorResponse
// @Router /timing-analysis/students/{student_id}/score [get]
func (h *AnalysisHandler) GetStudentScore(c *gin.Context) {
	studentID := ParseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	summary, err := h.scoringService.ComputeStudentScore(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetStudents lists students selectable in the analysis UI
// @Summary List students with timing data
// @Description Lists students with recorded responses, falling back to the full roster
// @Tags timing-analysis
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /timing-analysis/students [get]
func (h *AnalysisHandler) GetStudents(c *gin.Context) {
	students, err := h.analysisService.StudentsWithTimingData(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "students retrieved",
		Data:    students,
	})
}

// GetCategories lists question categories
// @Summary List question categories
// @Tags timing-analysis
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /timing-analysis/categories [get]
func (h *AnalysisHandler) GetCategories(c *gin.Context) {
	categories, err := h.analysisService.Categories(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "categories retrieved",
		Data:    categories,
	})
}

// ExportPerformance downloads the performance table as xlsx
// @Summary Export performance table
// @Tags timing-analysis
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param sort_by query string false "Sort column (default score)"
// @Param sort_order query string false "asc or desc (default desc)"
// @Success 200 {file} binary
// @Router /timing-analysis/export/performance [get]
func (h *AnalysisHandler) ExportPerformance(c *gin.Context) {
	sortBy := c.DefaultQuery("sort_by", "score")
	sortOrder := c.DefaultQuery("sort_order", "desc")

	h.LogRequest(c, "Exporting performance table", "sort_by", sortBy)

	data, err := h.exportService.ExportPerformanceTable(c.Request.Context(), sortBy, sortOrder)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendWorkbook(c, "performance", data)
}

// ExportSuspicious downloads the suspicious list as xlsx
// @Summary Export suspicious responses
// @Tags timing-analysis
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param limit query int false "Maximum rows (default and cap 100)"
// @Success 200 {file} binary
// @Router /timing-analysis/export/suspicious [get]
func (h *AnalysisHandler) ExportSuspicious(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	data, err := h.exportService.ExportSuspiciousList(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.sendWorkbook(c, "suspicious-responses", data)
}

func (h *AnalysisHandler) sendWorkbook(c *gin.Context, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
