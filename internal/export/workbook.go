// Package export строит .xlsx-выгрузки истории курса и отчёта по лекции.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/query"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type Workbook struct {
	File *excelize.File
}

// NewWorkbook — по листу на каждый SheetSpec, заголовок в первой строке.
func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()
	if err := fillSheets(f, sheets); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Workbook{File: f}, nil
}

func fillSheets(f *excelize.File, sheets []SheetSpec) error {
	for i, s := range sheets {
		name := sheetName(s.Title)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet: %w", err)
		}

		if err := f.SetSheetRow(name, "A1", &s.Header); err != nil {
			return fmt.Errorf("header %s: %w", name, err)
		}
		for r, row := range s.Rows {
			cell := fmt.Sprintf("A%d", r+2)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("set row %s: %w", cell, err)
			}
		}
		if err := ApplyDefaultExcelFormatting(f, name); err != nil {
			return fmt.Errorf("format %s: %w", name, err)
		}
	}
	return nil
}

func (w *Workbook) WriteTo(out io.Writer) (int64, error) { return w.File.WriteTo(out) }

func (w *Workbook) Close() error { return w.File.Close() }

func percent(p float64) string { return strconv.FormatFloat(p, 'f', 1, 64) }

// CourseHistoryWorkbook — таблица «студенты × даты»: P — был, A — не был, пусто — нет записи.
func CourseHistoryWorkbook(h query.History) (*Workbook, error) {
	header := []string{"Roll Number", "Student"}
	for _, d := range h.Dates {
		header = append(header, d.String())
	}
	header = append(header, "Present", "Total", "Attendance %")

	rows := make([][]string, 0, len(h.Rows))
	for _, r := range h.Rows {
		row := []string{r.Student.RollNumber, r.Student.Name}
		for _, c := range r.Cells {
			switch {
			case c == nil:
				row = append(row, "")
			case *c:
				row = append(row, "P")
			default:
				row = append(row, "A")
			}
		}
		row = append(row, strconv.Itoa(r.Present), strconv.Itoa(r.Total), percent(r.Percentage))
		rows = append(rows, row)
	}
	return NewWorkbook([]SheetSpec{{Title: h.Course.CourseCode, Header: header, Rows: rows}})
}

// ReportWorkbook — отчёт по лекции: лист со строками отчёта и лист-сводка.
func ReportWorkbook(r models.AttendanceReport) (*Workbook, error) {
	rows := make([][]string, 0, len(r.Attendance))
	for _, row := range r.Attendance {
		status := "Absent"
		if row.IsPresent {
			status = "Present"
		}
		rows = append(rows, []string{row.RollNumber, row.StudentName, status})
	}
	present := r.PresentCount()
	pct := 0.0
	if len(r.Attendance) > 0 {
		pct = 100 * float64(present) / float64(len(r.Attendance))
	}
	summary := [][]string{
		{"Course", r.CourseName},
		{"Course Code", r.CourseCode},
		{"Class", r.Class},
		{"Date", r.Date.String()},
		{"Time Slot", r.TimeSlot},
		{"Present", strconv.Itoa(present)},
		{"Total", strconv.Itoa(len(r.Attendance))},
		{"Attendance %", percent(pct)},
	}
	return NewWorkbook([]SheetSpec{
		{Title: "Attendance", Header: []string{"Roll Number", "Student", "Status"}, Rows: rows},
		{Title: "Summary", Header: []string{"Field", "Value"}, Rows: summary},
	})
}
