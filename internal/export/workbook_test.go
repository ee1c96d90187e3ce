package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/query"
)

func reopen(t *testing.T, w *Workbook) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestCourseHistoryWorkbook(t *testing.T) {
	yes, no := true, false
	h := query.History{
		Course: models.Course{ID: "c1", CourseCode: "CS201", Name: "Data Structures"},
		Dates:  []models.Date{models.MustParseDate("2024-05-02"), models.MustParseDate("2024-05-01")},
		Rows: []query.HistoryRow{
			{Student: models.Student{RollNumber: "01", Name: "Alice"}, Cells: []*bool{&yes, &no}, Present: 1, Total: 2, Percentage: 50},
			{Student: models.Student{RollNumber: "02", Name: "Bob"}, Cells: []*bool{nil, &yes}, Present: 1, Total: 1, Percentage: 100},
		},
	}
	w, err := CourseHistoryWorkbook(h)
	if err != nil {
		t.Fatal(err)
	}
	f := reopen(t, w)
	rows, err := f.GetRows("CS201")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("ожидали заголовок и 2 строки, получили %d", len(rows))
	}
	if rows[0][2] != "2024-05-02" || rows[0][5] != "Total" {
		t.Fatalf("неверный заголовок: %v", rows[0])
	}
	if rows[1][2] != "P" || rows[1][3] != "A" || rows[1][6] != "50.0" {
		t.Fatalf("неверная строка Alice: %v", rows[1])
	}
	if rows[2][2] != "" || rows[2][3] != "P" {
		t.Fatalf("пустая ячейка должна остаться пустой: %v", rows[2])
	}
}

func TestReportWorkbook(t *testing.T) {
	rep := models.AttendanceReport{
		CourseName: "Networks", CourseCode: "CS301", Class: "TY CSE A",
		Date: models.MustParseDate("2024-05-01"), TimeSlot: "10:15 - 11:15",
		Attendance: []models.ReportRow{
			{RollNumber: "01", StudentName: "S1", IsPresent: true},
			{RollNumber: "02", StudentName: "S2"},
		},
	}
	w, err := ReportWorkbook(rep)
	if err != nil {
		t.Fatal(err)
	}
	f := reopen(t, w)
	if got := f.GetSheetList(); len(got) != 2 || got[0] != "Attendance" || got[1] != "Summary" {
		t.Fatalf("ожидали листы Attendance и Summary, получили %v", got)
	}
	rows, _ := f.GetRows("Attendance")
	if len(rows) != 3 || rows[1][2] != "Present" || rows[2][2] != "Absent" {
		t.Fatalf("неверные строки отчёта: %v", rows)
	}
	summary, _ := f.GetRows("Summary")
	if summary[len(summary)-1][1] != "50.0" {
		t.Fatalf("ожидали 50.0%%, получили %v", summary[len(summary)-1])
	}
	if v, _ := f.GetCellValue("Attendance", "A1"); v != "Roll Number" {
		t.Fatalf("неверный заголовок: %q", v)
	}
}

func TestHelpers(t *testing.T) {
	if colName(1) != "A" || colName(27) != "AA" {
		t.Fatal("неверное имя колонки")
	}
	if got := sheetName("CS/201: [lab]"); got != "CS_201_ _lab_" {
		t.Fatalf("неверное имя листа: %q", got)
	}
	if got := sheetName(""); got != "Sheet1" {
		t.Fatalf("пустое имя листа: %q", got)
	}
	name := BuildReportFilename(models.AttendanceReport{CourseCode: "CS301", Class: "TY", Date: models.MustParseDate("2024-05-01"), TimeSlot: "10:15 - 11:15"})
	if name != "Report — CS301 — TY — 2024-05-01 — 10_15 - 11_15.xlsx" {
		t.Fatalf("неверное имя файла: %q", name)
	}
}

func TestNewWorkbook_InvalidSheetName(t *testing.T) {
	w, err := NewWorkbook([]SheetSpec{{Title: "'quoted'", Header: []string{"A"}}})
	if err == nil || w != nil {
		t.Fatalf("ожидали ошибку имени листа, получили %v, %v", w, err)
	}
}
