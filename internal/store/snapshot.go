package store

import (
	"encoding/json"
	"fmt"

	"github.com/Spok95/attendance-tracker/internal/models"
)

// SchemaVersion — версия формата снимка. Снимки без версии (0) читаются как legacy.
const SchemaVersion = 1

// Ключи верхнего уровня в key-value хранилище.
const (
	KeyUsers          = "users"
	KeyCourses        = "courses"
	KeyCourseStudents = "courseStudents"
	KeyAttendance     = "attendance"
	KeyReports        = "attendanceReports"
	KeyNotifications  = "notifications"
	KeySchemaVersion  = "schemaVersion"
)

// Keys — все ключи снимка в порядке записи.
var Keys = []string{
	KeySchemaVersion, KeyUsers, KeyCourses, KeyCourseStudents,
	KeyAttendance, KeyReports, KeyNotifications,
}

// Snapshot — полный набор коллекций. Сохраняется и читается целиком.
type Snapshot struct {
	SchemaVersion  int
	Users          []models.User
	Courses        []models.Course
	CourseStudents map[string][]models.Student
	Attendance     []models.AttendanceRecord
	Reports        []models.AttendanceReport
	Notifications  []models.Notification
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		SchemaVersion:  SchemaVersion,
		CourseStudents: make(map[string][]models.Student),
	}
}

// Empty — ни пользователей, ни курсов: хранилище пустое, нужен сид.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Users) == 0 && len(s.Courses) == 0)
}

// Encode раскладывает снимок по ключам, каждое значение — JSON.
func (s *Snapshot) Encode() (map[string][]byte, error) {
	values := map[string]any{
		KeySchemaVersion:  SchemaVersion,
		KeyUsers:          nonNil(s.Users),
		KeyCourses:        nonNil(s.Courses),
		KeyCourseStudents: s.CourseStudents,
		KeyAttendance:     nonNil(s.Attendance),
		KeyReports:        nonNil(s.Reports),
		KeyNotifications:  nonNil(s.Notifications),
	}
	if s.CourseStudents == nil {
		values[KeyCourseStudents] = map[string][]models.Student{}
	}
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

// DecodeSnapshot собирает снимок из записей. Отсутствующие ключи — пустые коллекции.
// Возвращает nil, nil, если записей нет совсем.
func DecodeSnapshot(entries map[string][]byte) (*Snapshot, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	s := NewSnapshot()
	s.SchemaVersion = 0
	targets := map[string]any{
		KeySchemaVersion:  &s.SchemaVersion,
		KeyUsers:          &s.Users,
		KeyCourses:        &s.Courses,
		KeyCourseStudents: &s.CourseStudents,
		KeyAttendance:     &s.Attendance,
		KeyReports:        &s.Reports,
		KeyNotifications:  &s.Notifications,
	}
	for k, dst := range targets {
		raw, ok := entries[k]
		if !ok || len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
	}
	if s.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("snapshot schema version %d is newer than supported %d", s.SchemaVersion, SchemaVersion)
	}
	if s.CourseStudents == nil {
		s.CourseStudents = make(map[string][]models.Student)
	}
	s.SchemaVersion = SchemaVersion
	return s, nil
}

// Clone — глубокая копия: наружу и в бэкенд уходят только копии.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		SchemaVersion:  s.SchemaVersion,
		Users:          append([]models.User(nil), s.Users...),
		Courses:        cloneCourses(s.Courses),
		CourseStudents: make(map[string][]models.Student, len(s.CourseStudents)),
		Attendance:     append([]models.AttendanceRecord(nil), s.Attendance...),
		Reports:        cloneReports(s.Reports),
		Notifications:  cloneNotifications(s.Notifications),
	}
	for id, roster := range s.CourseStudents {
		c.CourseStudents[id] = append([]models.Student(nil), roster...)
	}
	return c
}

func cloneCourses(in []models.Course) []models.Course {
	if in == nil {
		return nil
	}
	out := make([]models.Course, len(in))
	for i, c := range in {
		c.Classes = append([]string(nil), c.Classes...)
		out[i] = c
	}
	return out
}

func cloneReports(in []models.AttendanceReport) []models.AttendanceReport {
	if in == nil {
		return nil
	}
	out := make([]models.AttendanceReport, len(in))
	for i, r := range in {
		r.Attendance = append([]models.ReportRow(nil), r.Attendance...)
		out[i] = r
	}
	return out
}

func cloneNotifications(in []models.Notification) []models.Notification {
	if in == nil {
		return nil
	}
	out := make([]models.Notification, len(in))
	for i, n := range in {
		n.Payload = append([]byte(nil), n.Payload...)
		out[i] = n
	}
	return out
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
