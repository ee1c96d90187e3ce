// Package app — командная и запросная поверхность ядра посещаемости для UI.
package app

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/apperr"
	"github.com/Spok95/attendance-tracker/internal/ctxutil"
	"github.com/Spok95/attendance-tracker/internal/export"
	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/notify"
	"github.com/Spok95/attendance-tracker/internal/observability"
	"github.com/Spok95/attendance-tracker/internal/query"
	"github.com/Spok95/attendance-tracker/internal/recorder"
	"github.com/Spok95/attendance-tracker/internal/roster"
	"github.com/Spok95/attendance-tracker/internal/store"
)

const defaultAvatar = "https://placehold.co/100x100.png"

type Service struct {
	store    *store.Store
	roster   *roster.Resolver
	query    *query.Engine
	detector *notify.Detector
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithDetector(d *notify.Detector) Option { return func(s *Service) { s.detector = d } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st *store.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:  st,
		roster: roster.NewResolver(st, log.Named("roster")),
		query:  query.New(st),
		log:    log,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.detector == nil {
		s.detector = notify.NewDetector(st, notify.WithClock(s.now), notify.WithLogger(log.Named("notify")))
	}
	return s
}

// fail логирует ошибку команды и отправляет системные ошибки в Sentry.
// fail логирует ошибку команды с операцией и актором из ctx.
func (s *Service) fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	op, ok := ctxutil.Op(ctx)
	if !ok {
		op = "unknown"
	}
	actor, _ := ctxutil.Actor(ctx)
	if observability.IsSystemErr(err) {
		s.log.Error("команда завершилась ошибкой", zap.String("op", op), zap.String("actor", actor), zap.Error(err))
		observability.CaptureOp(op, err)
	} else {
		s.log.Debug("команда отклонена", zap.String("op", op), zap.String("actor", actor), zap.Error(err))
	}
	return err
}

// ---- команды ----

// CreateUser регистрирует пользователя. Email сравнивается с учётом регистра.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (models.User, error) {
	ctx = ctxutil.WithOp(ctx, "create_user")
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Class = strings.TrimSpace(in.Class)
	if err := validateStruct(in); err != nil {
		return models.User{}, s.fail(ctx, err)
	}
	u := models.User{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Email:      in.Email,
		Password:   in.Password,
		Role:       in.Role,
		Department: in.Department,
		Class:      in.Class,
		RollNumber: strings.TrimSpace(in.RollNumber),
		AvatarURL:  defaultAvatar,
	}
	err := s.store.UpdateUsers(ctx, func(cur []models.User) ([]models.User, error) {
		for _, existing := range cur {
			if existing.Email == u.Email {
				return nil, apperr.Validation("email", "an account with email %s already exists", u.Email)
			}
		}
		return append(cur, u), nil
	})
	if err != nil && !store.IsPersistence(err) {
		return models.User{}, s.fail(ctx, err)
	}
	s.log.Info("пользователь создан", zap.String("user", u.ID), zap.String("role", string(u.Role)))
	return u, s.fail(ctx, err)
}

// CreateCourse создаёт курс преподавателя. Начальный список — студенты из его классов.
func (s *Service) CreateCourse(ctx context.Context, in CreateCourseInput) (models.Course, error) {
	ctx = ctxutil.WithOp(ctx, "create_course")
	in.Name = strings.TrimSpace(in.Name)
	in.CourseCode = strings.TrimSpace(in.CourseCode)
	classes := make([]string, len(in.Classes))
	for i, cl := range in.Classes {
		classes[i] = strings.TrimSpace(cl)
	}
	in.Classes = classes
	if err := validateStruct(in); err != nil {
		return models.Course{}, s.fail(ctx, err)
	}

	var faculty *models.User
	users := s.store.ListUsers()
	for i := range users {
		if users[i].ID == in.FacultyID {
			faculty = &users[i]
			break
		}
	}
	if faculty == nil {
		return models.Course{}, s.fail(ctx, apperr.NotFound("faculty", in.FacultyID))
	}
	if faculty.Role != models.RoleFaculty {
		return models.Course{}, s.fail(ctx, apperr.Validation("facultyId", "user %s is not a faculty member", faculty.ID))
	}

	c := models.Course{
		ID:            uuid.NewString(),
		Name:          in.Name,
		CourseCode:    in.CourseCode,
		FacultyID:     faculty.ID,
		FacultyName:   faculty.Name,
		Classes:       in.Classes,
		TotalLectures: in.TotalLectures,
		Description:   in.Description,
		Type:          in.Type,
	}
	students, skipped := store.RosterFromUsers(c, users)
	for _, u := range skipped {
		s.log.Warn("студент пропущен: номер уже занят", zap.String("course", c.ID),
			zap.String("user", u.ID), zap.String("roll", u.RollNumber))
	}
	err := s.store.AddCourse(ctx, c, students)
	if err != nil && !store.IsPersistence(err) {
		return models.Course{}, s.fail(ctx, err)
	}
	s.log.Info("курс создан", zap.String("course", c.ID), zap.String("code", c.CourseCode))
	return c, s.fail(ctx, err)
}

// ImportRoster добавляет студентов в список курса в заданном режиме.
func (s *Service) ImportRoster(ctx context.Context, courseID string, entries []roster.Entry, mode roster.Mode) (roster.Result, error) {
	ctx = ctxutil.WithOp(ctx, "import_roster")
	res, err := s.roster.Import(ctx, courseID, entries, mode)
	return res, s.fail(ctx, err)
}

// ImportRosterText — ручная вставка строк «номер имя».
func (s *Service) ImportRosterText(ctx context.Context, courseID, text string) (roster.Result, error) {
	ctx = ctxutil.WithOp(ctx, "import_roster")
	res, err := s.roster.ImportText(ctx, courseID, text)
	return res, s.fail(ctx, err)
}

// ImportRosterSheet — импорт из .xlsx.
func (s *Service) ImportRosterSheet(ctx context.Context, courseID string, r io.Reader) (roster.Result, error) {
	ctx = ctxutil.WithOp(ctx, "import_roster")
	sheet, err := roster.ParseSpreadsheet(r)
	if err != nil {
		return roster.Result{}, s.fail(ctx, err)
	}
	res, err := s.roster.ImportSheet(ctx, courseID, sheet)
	return res, s.fail(ctx, err)
}

type SubmitLectureInput struct {
	CourseID string
	Class    string // пусто — первый класс курса
	Date     models.Date
	TimeSlot string
	Marks    map[string]bool // studentID -> присутствовал; без отметки — отсутствовал
}

// SubmitLecture отмечает одну лекцию: отчёт и записи по каждому студенту списка.
func (s *Service) SubmitLecture(ctx context.Context, in SubmitLectureInput) (models.AttendanceReport, error) {
	ctx = ctxutil.WithOp(ctx, "submit_lecture")
	course, ok := s.store.Course(in.CourseID)
	if !ok {
		return models.AttendanceReport{}, s.fail(ctx, apperr.NotFound("course", in.CourseID))
	}
	sess := recorder.NewSession(course, s.store.Roster(course.ID),
		recorder.WithClock(s.now), recorder.WithLogger(s.log.Named("recorder")))
	if in.Class != "" {
		sess.SetClass(in.Class)
	}
	sess.SetDate(in.Date)
	sess.SetTimeSlot(in.TimeSlot)
	for id, present := range in.Marks {
		if err := sess.Mark(id, present); err != nil {
			return models.AttendanceReport{}, s.fail(ctx, err)
		}
	}
	rep, err := sess.Submit(ctx, s.store)
	return rep, s.fail(ctx, err)
}

// EditAttendance правит одну запись. Отчёт лекции — снимок и не меняется.
func (s *Service) EditAttendance(ctx context.Context, recordID string, present bool) (models.AttendanceRecord, error) {
	ctx = ctxutil.WithOp(ctx, "edit_attendance")
	rec, err := s.store.UpdateAttendance(ctx, recordID, present)
	return rec, s.fail(ctx, err)
}

func (s *Service) ScanLowAttendance(ctx context.Context) ([]models.Notification, error) {
	ctx = ctxutil.WithOp(ctx, "scan_low_attendance")
	notes, err := s.detector.Scan(ctx)
	return notes, s.fail(ctx, err)
}

// ---- запросы ----

func (s *Service) Courses() []models.Course { return s.store.ListCourses() }

// FacultyCourses — курсы преподавателя.
func (s *Service) FacultyCourses(facultyID string) []models.Course {
	out := []models.Course{}
	for _, c := range s.store.ListCourses() {
		if c.FacultyID == facultyID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) Roster(courseID string) []models.Student { return s.store.Roster(courseID) }

func (s *Service) StudentAttendance(studentID string) []query.CourseAttendance {
	return s.query.StudentAttendance(studentID)
}

func (s *Service) CourseAttendance(courseID string) []models.AttendanceRecord {
	return s.query.CourseAttendance(courseID)
}

// Reports — отчёты от новых к старым; facultyID="" — все.
func (s *Service) Reports(facultyID string) []models.AttendanceReport {
	return s.query.Reports(facultyID)
}

func (s *Service) Report(id string) (models.AttendanceReport, error) { return s.store.Report(id) }

func (s *Service) StudentSummary(studentID string) []query.CourseSummary {
	return s.query.StudentSummary(studentID)
}

func (s *Service) CourseHistory(courseID string) (query.History, error) {
	h, ok := s.query.CourseHistory(courseID)
	if !ok {
		return query.History{}, apperr.NotFound("course", courseID)
	}
	return h, nil
}

func (s *Service) LastAbsence(studentID string) (query.Absence, bool) {
	return s.query.LastAbsence(studentID)
}

func (s *Service) FacultyOverview(facultyID string) query.Overview {
	return s.query.FacultyOverview(facultyID)
}

func (s *Service) Notifications(studentID string) []models.Notification {
	return s.store.NotificationsFor(studentID)
}

// ---- выгрузки ----

// CourseHistoryExport — .xlsx истории курса и имя файла.
func (s *Service) CourseHistoryExport(courseID string) (*export.Workbook, string, error) {
	h, err := s.CourseHistory(courseID)
	if err != nil {
		return nil, "", err
	}
	wb, err := export.CourseHistoryWorkbook(h)
	if err != nil {
		return nil, "", s.fail(ctxutil.WithOp(context.Background(), "export_course_history"), err)
	}
	return wb, export.BuildCourseHistoryFilename(h.Course), nil
}

func (s *Service) ReportExport(reportID string) (*export.Workbook, string, error) {
	rep, err := s.store.Report(reportID)
	if err != nil {
		return nil, "", err
	}
	wb, err := export.ReportWorkbook(rep)
	if err != nil {
		return nil, "", s.fail(ctxutil.WithOp(context.Background(), "export_report"), err)
	}
	return wb, export.BuildReportFilename(rep), nil
}
