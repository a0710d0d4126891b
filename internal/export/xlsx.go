// Package export renders exam results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mcqexam/internal/results"
)

const timeLayout = "2006-01-02 15:04:05"

var header = []interface{}{"#", "Student code", "Student name", "Score", "Correct", "Questions", "Started", "Finished", "Duration (min)"}

// WriteExamResults writes one row per result, in listing order, below a
// bold header row.
func WriteExamResults(w io.Writer, er results.ExamResults) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("export: style: %w", err)
	}

	for i, r := range er.Results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			i + 1,
			r.StudentCode,
			r.StudentName,
			r.Score,
			r.CorrectCount,
			r.TotalQuestions,
			r.StartedAt.UTC().Format(timeLayout),
			r.FinishedAt.UTC().Format(timeLayout),
			minutes(r.FinishedAt.Sub(r.StartedAt)),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(sheet, "B", "C", 24)
	_ = f.SetColWidth(sheet, "G", "H", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

// FileName is a download name for the exam's export.
func FileName(er results.ExamResults) string {
	return fmt.Sprintf("exam-%d-results.xlsx", er.ExamID)
}

func minutes(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(int64(d.Minutes()*100+0.5)) / 100
}
