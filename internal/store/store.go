// Package store — кэш всех коллекций в памяти поверх сменного бэкенда.
// Чтения идут только из кэша; каждая мутация сохраняет полный снимок.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/apperr"
	"github.com/Spok95/attendance-tracker/internal/ctxutil"
	"github.com/Spok95/attendance-tracker/internal/metrics"
	"github.com/Spok95/attendance-tracker/internal/models"
)

type Store struct {
	mu          sync.RWMutex
	backend     Backend
	seed        SeedFunc
	log         *zap.Logger
	initialized bool
	initErr     error
	data        *Snapshot
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

func WithSeed(f SeedFunc) Option { return func(s *Store) { s.seed = f } }

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		seed:    DemoSeed,
		log:     zap.NewNop(),
		data:    NewSnapshot(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init загружает снимок из бэкенда, а для пустого хранилища — сидит демо-набор.
// Повторный вызов после успеха ничего не делает, после ошибки загрузки повторяет её.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Store) initLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	snap, err := s.backend.Load(dctx)
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues("load").Inc()
		s.log.Error("не удалось загрузить снимок", zap.Error(err))
		s.initErr = apperr.Persistence("load", err)
		return s.initErr
	}
	s.initialized = true
	s.initErr = nil
	if !snap.Empty() {
		s.data = snap
		s.log.Info("снимок загружен",
			zap.Int("users", len(snap.Users)),
			zap.Int("courses", len(snap.Courses)),
			zap.Int("attendance", len(snap.Attendance)))
		return nil
	}
	s.data = s.seed()
	s.log.Info("хранилище пустое, загружен сид", zap.Int("users", len(s.data.Users)))
	return s.persistLocked(ctx, "seed")
}

// Reset сбрасывает все коллекции к сиду и сохраняет результат.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	s.initErr = nil
	s.data = s.seed()
	return s.persistLocked(ctx, "reset")
}

// ensure — ленивая инициализация при первом обращении.
// После неудачной загрузки бэкенд не перечитывается до явного Init.
func (s *Store) ensure(ctx context.Context) error {
	s.mu.RLock()
	ok, initErr := s.initialized, s.initErr
	s.mu.RUnlock()
	if ok {
		return nil
	}
	if initErr != nil {
		return initErr
	}
	return s.Init(ctx)
}

// Err — ошибка последней загрузки снимка, nil после успешной инициализации.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initErr
}

func (s *Store) read(fn func(d *Snapshot)) {
	if err := s.ensure(context.Background()); err != nil {
		s.log.Warn("чтение из неинициализированного хранилища", zap.Error(err))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// mutate применяет fn под эксклюзивной блокировкой и сохраняет снимок.
// При ошибке сохранения изменения в памяти остаются: копия в памяти главная.
func (s *Store) mutate(ctx context.Context, op string, fn func(d *Snapshot) error) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.data); err != nil {
		return err
	}
	return s.persistLocked(ctx, op)
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	dctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := s.backend.Save(dctx, s.data.Clone())
	metrics.ObserveSnapshotSave(time.Since(start))
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues(op).Inc()
		s.log.Error("не удалось сохранить снимок", zap.String("op", op), zap.Error(err))
		return apperr.Persistence(op, err)
	}
	return nil
}

// Ping проверяет внешний бэкенд и результат загрузки снимка.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.Err(); err != nil {
		return err
	}
	p, ok := s.backend.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Snapshot — копия текущих данных.
func (s *Store) Snapshot() *Snapshot {
	var out *Snapshot
	s.read(func(d *Snapshot) { out = d.Clone() })
	return out
}

func (s *Store) ListUsers() []models.User {
	var out []models.User
	s.read(func(d *Snapshot) { out = append([]models.User(nil), d.Users...) })
	return out
}

// ReplaceUsers заменяет коллекцию целиком (без слияния).
func (s *Store) ReplaceUsers(ctx context.Context, users []models.User) error {
	return s.mutate(ctx, "replace_users", func(d *Snapshot) error {
		d.Users = append([]models.User(nil), users...)
		return nil
	})
}

// UpdateUsers — чтение, проверка и замена пользователей под одной блокировкой.
func (s *Store) UpdateUsers(ctx context.Context, fn func(current []models.User) ([]models.User, error)) error {
	return s.mutate(ctx, "update_users", func(d *Snapshot) error {
		next, err := fn(append([]models.User(nil), d.Users...))
		if err != nil {
			return err
		}
		d.Users = next
		return nil
	})
}

func (s *Store) ListCourses() []models.Course {
	var out []models.Course
	s.read(func(d *Snapshot) { out = cloneCourses(d.Courses) })
	return out
}

func (s *Store) Course(id string) (models.Course, bool) {
	var (
		out   models.Course
		found bool
	)
	s.read(func(d *Snapshot) {
		for _, c := range d.Courses {
			if c.ID == id {
				out, found = cloneCourses([]models.Course{c})[0], true
				return
			}
		}
	})
	return out, found
}

func (s *Store) ReplaceCourses(ctx context.Context, courses []models.Course) error {
	return s.mutate(ctx, "replace_courses", func(d *Snapshot) error {
		d.Courses = cloneCourses(courses)
		return nil
	})
}

// AddCourse добавляет курс вместе с начальным списком. Повтор id — ValidationError.
func (s *Store) AddCourse(ctx context.Context, c models.Course, roster []models.Student) error {
	return s.mutate(ctx, "add_course", func(d *Snapshot) error {
		for _, existing := range d.Courses {
			if existing.ID == c.ID {
				return apperr.Validation("course", "course %q already exists", c.ID)
			}
		}
		d.Courses = append(d.Courses, cloneCourses([]models.Course{c})...)
		d.CourseStudents[c.ID] = append([]models.Student{}, roster...)
		return nil
	})
}

// Roster — список курса. Для неизвестного курса — пустой список, не ошибка.
func (s *Store) Roster(courseID string) []models.Student {
	out := []models.Student{}
	s.read(func(d *Snapshot) { out = append(out, d.CourseStudents[courseID]...) })
	return out
}

// Rosters — копия всех списков.
func (s *Store) Rosters() map[string][]models.Student {
	out := map[string][]models.Student{}
	s.read(func(d *Snapshot) {
		for id, r := range d.CourseStudents {
			out[id] = append([]models.Student(nil), r...)
		}
	})
	return out
}

// SetRoster заменяет список одного курса, порядок сохраняется.
func (s *Store) SetRoster(ctx context.Context, courseID string, students []models.Student) error {
	return s.mutate(ctx, "set_roster", func(d *Snapshot) error {
		d.CourseStudents[courseID] = append([]models.Student(nil), students...)
		return nil
	})
}

// UpdateRoster — чтение-изменение-запись списка под одной блокировкой.
// fn получает копию текущего списка; ошибка fn отменяет запись.
func (s *Store) UpdateRoster(ctx context.Context, courseID string, fn func(current []models.Student) ([]models.Student, error)) error {
	return s.mutate(ctx, "update_roster", func(d *Snapshot) error {
		next, err := fn(append([]models.Student(nil), d.CourseStudents[courseID]...))
		if err != nil {
			return err
		}
		d.CourseStudents[courseID] = next
		return nil
	})
}

func (s *Store) ListAttendance() []models.AttendanceRecord {
	var out []models.AttendanceRecord
	s.read(func(d *Snapshot) { out = append([]models.AttendanceRecord(nil), d.Attendance...) })
	return out
}

// AppendAttendance только добавляет; дубликаты не отсекаются.
func (s *Store) AppendAttendance(ctx context.Context, recs []models.AttendanceRecord) error {
	return s.mutate(ctx, "append_attendance", func(d *Snapshot) error {
		d.Attendance = append(d.Attendance, recs...)
		return nil
	})
}

// UpdateAttendance — правка преподавателем одной отметки.
func (s *Store) UpdateAttendance(ctx context.Context, recordID string, present bool) (models.AttendanceRecord, error) {
	var out models.AttendanceRecord
	err := s.mutate(ctx, "update_attendance", func(d *Snapshot) error {
		for i := range d.Attendance {
			if d.Attendance[i].ID == recordID {
				d.Attendance[i].IsPresent = present
				out = d.Attendance[i]
				return nil
			}
		}
		return apperr.NotFound("attendance record", recordID)
	})
	return out, err
}

func (s *Store) ListReports() []models.AttendanceReport {
	var out []models.AttendanceReport
	s.read(func(d *Snapshot) { out = cloneReports(d.Reports) })
	return out
}

func (s *Store) AppendReport(ctx context.Context, r models.AttendanceReport) error {
	return s.mutate(ctx, "append_report", func(d *Snapshot) error {
		d.Reports = append(d.Reports, cloneReports([]models.AttendanceReport{r})...)
		return nil
	})
}

// AppendLecture добавляет отчёт и его отметки одной записью снимка.
// Читатели видят либо оба изменения, либо ни одного.
func (s *Store) AppendLecture(ctx context.Context, r models.AttendanceReport, recs []models.AttendanceRecord) error {
	return s.mutate(ctx, "append_lecture", func(d *Snapshot) error {
		for _, existing := range d.Reports {
			if existing.ID == r.ID {
				return apperr.Validation("report", "report %q already exists", r.ID)
			}
		}
		d.Reports = append(d.Reports, cloneReports([]models.AttendanceReport{r})...)
		d.Attendance = append(d.Attendance, recs...)
		return nil
	})
}

// Report — единственный запрос, который явно возвращает NotFound.
func (s *Store) Report(id string) (models.AttendanceReport, error) {
	var (
		out   models.AttendanceReport
		found bool
	)
	s.read(func(d *Snapshot) {
		for _, r := range d.Reports {
			if r.ID == id {
				out, found = cloneReports([]models.AttendanceReport{r})[0], true
				return
			}
		}
	})
	if !found {
		return models.AttendanceReport{}, apperr.NotFound("report", id)
	}
	return out, nil
}

func (s *Store) ListNotifications() []models.Notification {
	var out []models.Notification
	s.read(func(d *Snapshot) { out = cloneNotifications(d.Notifications) })
	return out
}

func (s *Store) NotificationsFor(studentID string) []models.Notification {
	var out []models.Notification
	s.read(func(d *Snapshot) {
		for _, n := range d.Notifications {
			if n.StudentID == studentID {
				out = append(out, n)
			}
		}
		out = cloneNotifications(out)
	})
	return out
}

func (s *Store) AppendNotifications(ctx context.Context, notes []models.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	return s.mutate(ctx, "append_notifications", func(d *Snapshot) error {
		d.Notifications = append(d.Notifications, cloneNotifications(notes)...)
		return nil
	})
}

// IsPersistence — удобная проверка для вызывающих: данные в памяти есть, но не сохранены.
func IsPersistence(err error) bool {
	return errors.Is(err, apperr.ErrPersistence)
}
