package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aptitude-portal/timing-analytics-service/internal/services"
	"github.com/aptitude-portal/timing-analytics-service/internal/utils"
)

type ResponseHandler struct {
	BaseHandler
	responseService services.ResponseService
}

func NewResponseHandler(
	responseService services.ResponseService,
	logger utils.Logger,
) *ResponseHandler {
	return &ResponseHandler{
		BaseHandler:     NewBaseHandler(logger),
		responseService: responseService,
	}
}

// RecordResponse records a student's answer and returns its timing verdict
// @Summary Record response
// @Description Records a single answer, marks correctness, and classifies its timing
// @Tags responses
// @Accept json
// @Produce json
// @Param response body services.RecordResponseRequest true "Response data"
// @Success 201 {object} services.RecordResponseResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /responses [post]
func (h *ResponseHandler) RecordResponse(c *gin.Context) {
	var req services.RecordResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Recording response",
		"student_id", req.StudentID,
		"question_id", req.QuestionID)

	result, err := h.responseService.RecordResponse(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetStudentResponses returns a student's full result sheet
// @Summary Get student responses
// @Description Returns every recorded answer for a student with live timing classifications
// @Tags responses
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{student_id}/responses [get]
func (h *ResponseHandler) GetStudentResponses(c *gin.Context) {
	studentID := ParseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}

	rows, err := h.responseService.StudentResponses(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "responses retrieved",
		Data:    rows,
	})
}
