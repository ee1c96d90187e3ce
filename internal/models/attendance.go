package models

import "time"

// AttendanceRecord — отметка одного студента за один день по одному курсу.
// Уникальность (course, student, date) не проверяется: повторные отметки добавляются.
type AttendanceRecord struct {
	ID        string `json:"id"`
	CourseID  string `json:"courseId"`
	StudentID string `json:"studentId"`
	Date      Date   `json:"date"`
	IsPresent bool   `json:"isPresent"`
	Class     string `json:"class,omitempty"`
}

// ReportRow хранит имя и номер студента на момент отметки.
// Последующие изменения списка курса на отчёт не влияют.
type ReportRow struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	RollNumber  string `json:"rollNumber"`
	IsPresent   bool   `json:"isPresent"`
}

type AttendanceReport struct {
	ID         string      `json:"id"`
	CourseID   string      `json:"courseId"`
	CourseName string      `json:"courseName"`
	CourseCode string      `json:"courseCode"`
	Class      string      `json:"class"`
	Date       Date        `json:"date"`
	TimeSlot   string      `json:"timeSlot"`
	Attendance []ReportRow `json:"attendance"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// PresentCount — число присутствовавших в отчёте.
func (r AttendanceReport) PresentCount() int {
	n := 0
	for _, row := range r.Attendance {
		if row.IsPresent {
			n++
		}
	}
	return n
}
