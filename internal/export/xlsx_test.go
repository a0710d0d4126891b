package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mcqexam/internal/results"
)

func TestWriteExamResults(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	er := results.ExamResults{ExamID: 3, ExamTitle: "Midterm", Results: []results.StudentRecord{
		{Record: results.Record{ID: 1, Score: 7.5, CorrectCount: 3, TotalQuestions: 4, StartedAt: start, FinishedAt: start.Add(45 * time.Minute)},
			StudentName: "Lan Nguyen", StudentCode: "S01"},
		{Record: results.Record{ID: 2, Score: 10, CorrectCount: 4, TotalQuestions: 4, StartedAt: start, FinishedAt: start.Add(30 * time.Minute)},
			StudentName: "Minh Tran", StudentCode: "S02"},
	}}

	var buf bytes.Buffer
	if err := WriteExamResults(&buf, er); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open written workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][1] != "Student code" {
		t.Fatalf("header = %v", rows[0])
	}
	first := rows[1]
	if first[1] != "S01" || first[2] != "Lan Nguyen" || first[3] != "7.5" || first[6] != "2026-05-04 09:00:00" || first[8] != "45" {
		t.Fatalf("first row = %v", first)
	}
	if rows[2][3] != "10" {
		t.Fatalf("second row = %v", rows[2])
	}

	if FileName(er) != "exam-3-results.xlsx" {
		t.Fatalf("file name = %s", FileName(er))
	}
}

func TestWriteExamResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExamResults(&buf, results.ExamResults{ExamID: 1}); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want header only", len(rows))
	}
}
