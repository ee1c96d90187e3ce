// Package recorder собирает отметки одной лекции и превращает их в отчёт и записи посещаемости.
package recorder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/apperr"
	"github.com/Spok95/attendance-tracker/internal/metrics"
	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/store"
)

type State int

const (
	StateEmpty State = iota
	StateEditing
	StateValidated
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidated:
		return "validated"
	case StateSubmitted:
		return "submitted"
	default:
		return "empty"
	}
}

// LectureStore — то, что нужно сессии от хранилища: атомарная запись отчёта и записей.
type LectureStore interface {
	AppendLecture(ctx context.Context, r models.AttendanceReport, recs []models.AttendanceRecord) error
}

// Session — отметки одной лекции до отправки. Не потокобезопасна:
// принадлежит одному преподавателю.
type Session struct {
	course models.Course
	roster []models.Student
	class  string
	date   models.Date
	slot   string
	marks  map[string]bool
	state  State

	now   func() time.Time
	newID func() string
	log   *zap.Logger
}

type Option func(*Session)

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }

func NewSession(course models.Course, roster []models.Student, opts ...Option) *Session {
	s := &Session{
		course: course,
		roster: append([]models.Student(nil), roster...),
		marks:  map[string]bool{},
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		log:    zap.NewNop(),
	}
	if len(course.Classes) > 0 {
		s.class = course.Classes[0]
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State { return s.state }

func (s *Session) Class() string { return s.class }

func (s *Session) Date() models.Date { return s.date }

func (s *Session) TimeSlot() string { return s.slot }

// Marked — отметка студента; ok=false, если студент ещё не отмечен.
func (s *Session) Marked(studentID string) (present, ok bool) {
	present, ok = s.marks[studentID]
	return present, ok
}

func (s *Session) inRoster(studentID string) bool {
	for _, st := range s.roster {
		if st.ID == studentID {
			return true
		}
	}
	return false
}

func (s *Session) touch() { s.state = StateEditing }

func (s *Session) Mark(studentID string, present bool) error {
	if !s.inRoster(studentID) {
		return apperr.Validation("student", "student %q is not in the roster of %s", studentID, s.course.ID)
	}
	s.marks[studentID] = present
	s.touch()
	return nil
}

// MarkAll — «выбрать всех»: одинаковая отметка каждому студенту списка.
func (s *Session) MarkAll(present bool) {
	for _, st := range s.roster {
		s.marks[st.ID] = present
	}
	s.touch()
}

func (s *Session) Unmark(studentID string) {
	delete(s.marks, studentID)
	s.touch()
}

func (s *Session) SetDate(d models.Date) {
	s.date = d
	s.touch()
}

func (s *Session) SetTimeSlot(slot string) {
	s.slot = slot
	s.touch()
}

func (s *Session) SetClass(class string) {
	s.class = class
	s.touch()
}

// Validate проверяет дату, окно и список. При ошибке состояние не меняется.
func (s *Session) Validate() error {
	if s.date.IsZero() {
		return apperr.Validation("date", "lecture date is required")
	}
	if s.slot == "" {
		return apperr.Validation("timeSlot", "time slot is required")
	}
	if !validSlot(s.course.Type, s.slot) {
		return apperr.Validation("timeSlot", "%q is not a %s slot", s.slot, s.course.Type)
	}
	if !s.course.ServesClass(s.class) {
		return apperr.Validation("class", "course %s is not taught to class %q", s.course.CourseCode, s.class)
	}
	if len(s.roster) == 0 {
		return apperr.Validation("roster", "no students in course %s", s.course.ID)
	}
	s.state = StateValidated
	return nil
}

// Build строит отчёт и записи без сохранения. Неотмеченный студент считается отсутствующим.
func (s *Session) Build() (models.AttendanceReport, []models.AttendanceRecord) {
	now := s.now()
	rep := models.AttendanceReport{
		ID:         nextReportID(now),
		CourseID:   s.course.ID,
		CourseName: s.course.Name,
		CourseCode: s.course.CourseCode,
		Class:      s.class,
		Date:       s.date,
		TimeSlot:   s.slot,
		Attendance: make([]models.ReportRow, 0, len(s.roster)),
		CreatedAt:  now.UTC(),
	}
	recs := make([]models.AttendanceRecord, 0, len(s.roster))
	for _, st := range s.roster {
		present := s.marks[st.ID]
		rep.Attendance = append(rep.Attendance, models.ReportRow{
			StudentID:   st.ID,
			StudentName: st.Name,
			RollNumber:  st.RollNumber,
			IsPresent:   present,
		})
		recs = append(recs, models.AttendanceRecord{
			ID:        s.newID(),
			CourseID:  s.course.ID,
			StudentID: st.ID,
			Date:      s.date,
			IsPresent: present,
			Class:     s.class,
		})
	}
	return rep, recs
}

// Submit проверяет сессию и одной операцией пишет отчёт и записи.
// После записи сессия сбрасывается. Ошибка сохранения снимка не откатывает
// данные в памяти: отчёт возвращается вместе с ошибкой.
func (s *Session) Submit(ctx context.Context, st LectureStore) (models.AttendanceReport, error) {
	if s.state != StateValidated {
		if err := s.Validate(); err != nil {
			return models.AttendanceReport{}, err
		}
	}
	rep, recs := s.Build()
	err := st.AppendLecture(ctx, rep, recs)
	if err != nil && !store.IsPersistence(err) {
		return models.AttendanceReport{}, err
	}
	metrics.LecturesSubmitted.Inc()
	metrics.RecordsWritten.Add(float64(len(recs)))
	s.log.Info("лекция отмечена",
		zap.String("course", rep.CourseID),
		zap.String("report", rep.ID),
		zap.String("date", rep.Date.String()),
		zap.Int("present", rep.PresentCount()),
		zap.Int("total", len(rep.Attendance)))

	s.reset()
	return rep, err
}

var lastReportNanos atomic.Int64

// nextReportID — "report-<unix nanos>"; строго возрастает внутри процесса.
func nextReportID(now time.Time) string {
	for {
		last := lastReportNanos.Load()
		n := now.UnixNano()
		if n <= last {
			n = last + 1
		}
		if lastReportNanos.CompareAndSwap(last, n) {
			return fmt.Sprintf("report-%d", n)
		}
	}
}

func (s *Session) reset() {
	s.date = models.Date{}
	s.slot = ""
	s.marks = map[string]bool{}
	s.state = StateEmpty
}
