// Package query — представления только для чтения поверх хранилища:
// посещаемость студента и курса, проценты, история, отчёты.
package query

import (
	"slices"
	"sort"

	"github.com/Spok95/attendance-tracker/internal/models"
)

// Source — чтения хранилища, которые нужны движку. Каждое возвращает копию.
type Source interface {
	ListUsers() []models.User
	ListCourses() []models.Course
	Rosters() map[string][]models.Student
	ListAttendance() []models.AttendanceRecord
	ListReports() []models.AttendanceReport
}

type Engine struct {
	src Source
}

func New(src Source) *Engine { return &Engine{src: src} }

type CourseAttendance struct {
	Course  models.Course             `json:"course"`
	Records []models.AttendanceRecord `json:"records"`
}

type Absence struct {
	CourseID   string      `json:"courseId"`
	CourseName string      `json:"courseName"`
	Date       models.Date `json:"date"`
}

// AttendancePercentage = 100 * present / total; для пустого набора ровно 0.
func AttendancePercentage(records []models.AttendanceRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	present := 0
	for _, r := range records {
		if r.IsPresent {
			present++
		}
	}
	return 100 * float64(present) / float64(len(records))
}

// UniqueSortedDates — различные даты набора, от новых к старым.
func UniqueSortedDates(records []models.AttendanceRecord) []models.Date {
	seen := make(map[models.Date]struct{}, len(records))
	out := make([]models.Date, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		out = append(out, r.Date)
	}
	slices.SortFunc(out, func(a, b models.Date) int { return b.Compare(a) })
	return out
}

func (e *Engine) user(id string) (models.User, bool) {
	for _, u := range e.src.ListUsers() {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// studentCourses — курсы, в чьём списке есть студент или чьи классы включают класс студента.
func (e *Engine) studentCourses(studentID string) []models.Course {
	class := ""
	if u, ok := e.user(studentID); ok {
		class = u.Class
	}
	rosters := e.src.Rosters()
	var out []models.Course
	for _, c := range e.src.ListCourses() {
		if (class != "" && c.ServesClass(class)) || inRoster(rosters[c.ID], studentID) {
			out = append(out, c)
		}
	}
	return out
}

func inRoster(roster []models.Student, studentID string) bool {
	for _, s := range roster {
		if s.ID == studentID {
			return true
		}
	}
	return false
}

// StudentAttendance — записи студента по каждому его курсу. Порядок записей не гарантируется.
func (e *Engine) StudentAttendance(studentID string) []CourseAttendance {
	all := e.src.ListAttendance()
	courses := e.studentCourses(studentID)
	out := make([]CourseAttendance, 0, len(courses))
	for _, c := range courses {
		ca := CourseAttendance{Course: c, Records: []models.AttendanceRecord{}}
		for _, r := range all {
			if r.CourseID == c.ID && r.StudentID == studentID {
				ca.Records = append(ca.Records, r)
			}
		}
		out = append(out, ca)
	}
	return out
}

// CourseAttendance — все записи курса по всем студентам и датам.
func (e *Engine) CourseAttendance(courseID string) []models.AttendanceRecord {
	out := []models.AttendanceRecord{}
	for _, r := range e.src.ListAttendance() {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	return out
}

// LastAbsence — самый поздний пропуск студента по всем его курсам.
// Сортировка стабильная: при равных датах побеждает запись, встретившаяся раньше.
func (e *Engine) LastAbsence(studentID string) (Absence, bool) {
	var absences []Absence
	for _, ca := range e.StudentAttendance(studentID) {
		for _, r := range ca.Records {
			if !r.IsPresent {
				absences = append(absences, Absence{CourseID: ca.Course.ID, CourseName: ca.Course.Name, Date: r.Date})
			}
		}
	}
	if len(absences) == 0 {
		return Absence{}, false
	}
	sort.SliceStable(absences, func(i, j int) bool { return absences[i].Date.After(absences[j].Date) })
	return absences[0], true
}

type CourseSummary struct {
	CourseID   string  `json:"courseId"`
	CourseName string  `json:"courseName"`
	CourseCode string  `json:"courseCode"`
	Present    int     `json:"present"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// StudentSummary — посещаемость студента по курсам для панели студента.
func (e *Engine) StudentSummary(studentID string) []CourseSummary {
	list := e.StudentAttendance(studentID)
	out := make([]CourseSummary, 0, len(list))
	for _, ca := range list {
		s := CourseSummary{
			CourseID:   ca.Course.ID,
			CourseName: ca.Course.Name,
			CourseCode: ca.Course.CourseCode,
			Total:      len(ca.Records),
			Percentage: AttendancePercentage(ca.Records),
		}
		for _, r := range ca.Records {
			if r.IsPresent {
				s.Present++
			}
		}
		out = append(out, s)
	}
	return out
}

// Reports — отчёты от новых к старым; при непустом facultyID только по курсам преподавателя.
func (e *Engine) Reports(facultyID string) []models.AttendanceReport {
	reports := e.src.ListReports()
	if facultyID != "" {
		own := map[string]struct{}{}
		for _, c := range e.src.ListCourses() {
			if c.FacultyID == facultyID {
				own[c.ID] = struct{}{}
			}
		}
		reports = slices.DeleteFunc(reports, func(r models.AttendanceReport) bool {
			_, ok := own[r.CourseID]
			return !ok
		})
	}
	if reports == nil {
		reports = []models.AttendanceReport{}
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Date.After(reports[j].Date) })
	return reports
}

type Overview struct {
	Courses   int      `json:"courses"`
	Theory    int      `json:"theory"`
	Practical int      `json:"practical"`
	Classes   []string `json:"classes"`
	Students  int      `json:"students"`
}

// FacultyOverview — сводка панели преподавателя. Students — сумма длин списков его курсов.
func (e *Engine) FacultyOverview(facultyID string) Overview {
	rosters := e.src.Rosters()
	ov := Overview{Classes: []string{}}
	seen := map[string]struct{}{}
	for _, c := range e.src.ListCourses() {
		if c.FacultyID != facultyID {
			continue
		}
		ov.Courses++
		switch c.Type {
		case models.Theory:
			ov.Theory++
		case models.Practical:
			ov.Practical++
		}
		for _, cl := range c.Classes {
			if _, ok := seen[cl]; !ok {
				seen[cl] = struct{}{}
				ov.Classes = append(ov.Classes, cl)
			}
		}
		ov.Students += len(rosters[c.ID])
	}
	sort.Strings(ov.Classes)
	return ov
}
