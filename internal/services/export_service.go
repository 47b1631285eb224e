package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportService produces downloadable spreadsheet reports for the
// admin screens.
type ExportService interface {
	ExportPerformanceTable(ctx context.Context, sortBy, sortOrder string) ([]byte, error)
	ExportSuspiciousList(ctx context.Context, limit int) ([]byte, error)
}

type exportService struct {
	analysis AnalysisService
}

func NewExportService(analysis AnalysisService) ExportService {
	return &exportService{analysis: analysis}
}

// ExportPerformanceTable renders the ranked student table as an xlsx
// workbook, honoring the same sort allowlist as the table endpoint.
func (s *exportService) ExportPerformanceTable(ctx context.Context, sortBy, sortOrder string) ([]byte, error) {
	summaries, err := s.analysis.StudentPerformanceTable(ctx, sortBy, sortOrder)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Performance"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Student ID", "Username", "Total Questions", "Correct Answers",
		"Score (%)", "Avg Time Deviation (s)", "Composite Score",
		"Total Time Taken (s)", "Last Activity",
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, summary := range summaries {
		row := []interface{}{
			summary.StudentID,
			summary.Username,
			summary.TotalQuestions,
			summary.CorrectAnswers,
			summary.Score,
			summary.AvgTimeDeviation,
			summary.CompositeScore,
			summary.TotalTimeTaken,
		}

		if summary.LastActivityAt != nil {
			row = append(row, summary.LastActivityAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportSuspiciousList renders the flagged-answer review queue as an
// xlsx workbook.
func (s *exportService) ExportSuspiciousList(ctx context.Context, limit int) ([]byte, error) {
	rows, err := s.analysis.SuspiciousList(ctx, limit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Suspicious Responses"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Student ID", "Username", "Question ID", "Category",
		"Time Taken (s)", "Ideal Time (s)", "Time Ratio",
		"Suspicion Level", "Answered At",
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, row := range rows {
		values := []interface{}{
			row.StudentID,
			row.Username,
			row.QuestionID,
			row.Category,
			row.TimeTaken,
			row.IdealTime,
			row.TimeRatio,
			string(row.SuspicionLevel),
			row.AnsweredAt.Format("2006-01-02 15:04:05"),
		}

		for colIndex, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}
