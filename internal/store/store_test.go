package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Spok95/attendance-tracker/internal/apperr"
	"github.com/Spok95/attendance-tracker/internal/models"
)

type flakyBackend struct {
	MemoryBackend
	saveErr error
	loadErr error
	saves   int
	loads   int
}

func (f *flakyBackend) Load(ctx context.Context) (*Snapshot, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryBackend.Load(ctx)
}

func (f *flakyBackend) Save(ctx context.Context, s *Snapshot) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryBackend.Save(ctx, s)
}

func TestInit_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend())
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if got := len(st.ListUsers()); got != 4 {
		t.Fatalf("ожидали 4 пользователя сида, получили %d", got)
	}
	if got := len(st.ListCourses()); got != 1 {
		t.Fatalf("ожидали 1 курс, получили %d", got)
	}
	roster := st.Roster(DemoCourseID)
	if len(roster) != 3 || roster[0].RollNumber != "S01" {
		t.Fatalf("список курса выведен неверно: %+v", roster)
	}
}

func TestInit_LoadsExistingSnapshot(t *testing.T) {
	ctx := context.Background()
	be := NewMemoryBackend()
	first := New(be, WithSeed(EmptySeed))
	if err := first.ReplaceUsers(ctx, []models.User{{ID: "u1", Name: "Only", Role: models.RoleFaculty}}); err != nil {
		t.Fatal(err)
	}

	second := New(be)
	if err := second.Init(ctx); err != nil {
		t.Fatal(err)
	}
	users := second.ListUsers()
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("ожидали снимок из бэкенда, а не сид: %+v", users)
	}
}

func TestLazyInitOnFirstRead(t *testing.T) {
	st := New(NewMemoryBackend())
	if got := len(st.ListCourses()); got != 1 {
		t.Fatalf("первое чтение должно засидить хранилище, курсов: %d", got)
	}
}

func TestRoster_RoundTripAndUnknown(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend(), WithSeed(EmptySeed))

	if r := st.Roster("missing"); r == nil || len(r) != 0 {
		t.Fatalf("ожидали пустой не-nil список, получили %#v", r)
	}

	in := []models.Student{
		{ID: "b", RollNumber: "02", Name: "Second"},
		{ID: "a", RollNumber: "01", Name: "First"},
	}
	if err := st.SetRoster(ctx, "c1", in); err != nil {
		t.Fatal(err)
	}
	got := st.Roster("c1")
	if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Fatalf("порядок не сохранён: %+v", got)
	}
	in[0].Name = "mutated"
	if st.Roster("c1")[0].Name != "Second" {
		t.Fatal("хранилище не должно разделять срез с вызывающим")
	}
}

func TestAppendAttendance_NoDedup(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend(), WithSeed(EmptySeed))
	rec := models.AttendanceRecord{ID: "r1", CourseID: "c1", StudentID: "s1", Date: models.MustParseDate("2024-01-01")}
	if err := st.AppendAttendance(ctx, []models.AttendanceRecord{rec}); err != nil {
		t.Fatal(err)
	}
	rec.ID = "r2"
	if err := st.AppendAttendance(ctx, []models.AttendanceRecord{rec}); err != nil {
		t.Fatal(err)
	}
	if got := len(st.ListAttendance()); got != 2 {
		t.Fatalf("ожидали 2 записи (без дедупликации), получили %d", got)
	}
}

func TestUpdateAttendance(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend(), WithSeed(EmptySeed))
	_ = st.AppendAttendance(ctx, []models.AttendanceRecord{{ID: "r1", IsPresent: false}})

	rec, err := st.UpdateAttendance(ctx, "r1", true)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsPresent || !st.ListAttendance()[0].IsPresent {
		t.Fatal("отметка не обновилась")
	}
	if _, err := st.UpdateAttendance(ctx, "nope", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("ожидали NotFound, получили %v", err)
	}
}

func TestReport_LookupAndLecture(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend(), WithSeed(EmptySeed))
	if _, err := st.Report("r1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("ожидали NotFound, получили %v", err)
	}

	rep := models.AttendanceReport{ID: "r1", CourseID: "c1", Attendance: []models.ReportRow{{StudentID: "s1", IsPresent: true}}}
	recs := []models.AttendanceRecord{{ID: "a1", CourseID: "c1", StudentID: "s1", IsPresent: true}}
	if err := st.AppendLecture(ctx, rep, recs); err != nil {
		t.Fatal(err)
	}
	got, err := st.Report("r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Attendance) != 1 || len(st.ListAttendance()) != 1 {
		t.Fatalf("отчёт и отметки должны появиться вместе: %+v", got)
	}
	if err := st.AppendLecture(ctx, rep, recs); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("повторный id отчёта должен отклоняться, получили %v", err)
	}
	if len(st.ListAttendance()) != 1 {
		t.Fatal("отклонённая запись не должна менять отметки")
	}
}

func TestPersistenceError_KeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	be := &flakyBackend{}
	st := New(be, WithSeed(EmptySeed))
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}

	be.saveErr = errors.New("quota exceeded")
	err := st.ReplaceUsers(ctx, []models.User{{ID: "u1"}})
	if !errors.Is(err, apperr.ErrPersistence) || !IsPersistence(err) {
		t.Fatalf("ожидали PersistenceError, получили %v", err)
	}
	if got := len(st.ListUsers()); got != 1 {
		t.Fatalf("в памяти изменения должны остаться, пользователей: %d", got)
	}
}

func TestInit_LoadError(t *testing.T) {
	be := &flakyBackend{loadErr: errors.New("corrupt json")}
	st := New(be)
	if err := st.Init(context.Background()); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("ожидали PersistenceError, получили %v", err)
	}
	if be.saves != 0 {
		t.Fatal("при ошибке чтения сид не должен сохраняться поверх данных")
	}
}

func TestInit_LoadErrorIsSticky(t *testing.T) {
	ctx := context.Background()
	be := &flakyBackend{loadErr: errors.New("connection refused")}
	st := New(be)
	if err := st.Init(ctx); err == nil {
		t.Fatal("ожидали ошибку загрузки")
	}
	_ = st.ListUsers()
	_ = st.ListCourses()
	if be.loads != 1 {
		t.Fatalf("чтения не должны перечитывать бэкенд, загрузок: %d", be.loads)
	}
	if !errors.Is(st.Err(), apperr.ErrPersistence) || !errors.Is(st.Ping(ctx), apperr.ErrPersistence) {
		t.Fatalf("ожидали ошибку загрузки в Err и Ping: %v / %v", st.Err(), st.Ping(ctx))
	}
	if err := st.ReplaceUsers(ctx, nil); !errors.Is(err, apperr.ErrPersistence) || be.saves != 0 {
		t.Fatalf("запись без загруженного снимка: ожидали отказ, получили %v (saves=%d)", err, be.saves)
	}

	be.loadErr = nil
	if err := st.Init(ctx); err != nil {
		t.Fatalf("повторный Init: %v", err)
	}
	if st.Err() != nil || len(st.ListUsers()) != 4 {
		t.Fatal("после успешного Init ожидали сид и пустую ошибку")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend())
	_ = st.AppendAttendance(ctx, []models.AttendanceRecord{{ID: "x"}})
	if err := st.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if len(st.ListAttendance()) != 0 || len(st.ListUsers()) != 4 {
		t.Fatal("Reset должен вернуть сид")
	}
}

func TestReadsReturnCopies(t *testing.T) {
	st := New(NewMemoryBackend())
	cs := st.ListCourses()
	cs[0].Classes[0] = "changed"
	if c, _ := st.Course(DemoCourseID); c.Classes[0] != DemoClass {
		t.Fatal("изменение копии повлияло на хранилище")
	}
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	st := New(NewMemoryBackend(), WithSeed(EmptySeed))
	if err := st.AppendNotifications(ctx, nil); err != nil {
		t.Fatal(err)
	}
	_ = st.AppendNotifications(ctx, []models.Notification{
		{ID: "n1", StudentID: "s1", Payload: []byte(`{}`)},
		{ID: "n2", StudentID: "s2", Payload: []byte(`{}`)},
	})
	if got := st.NotificationsFor("s1"); len(got) != 1 || got[0].ID != "n1" {
		t.Fatalf("ожидали n1, получили %+v", got)
	}
	if len(st.ListNotifications()) != 2 {
		t.Fatal("ожидали 2 уведомления")
	}
}

func TestUpdateUsersAndAddCourse(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend(), WithSeed(EmptySeed))

	boom := errors.New("stop")
	if err := s.UpdateUsers(ctx, func(cur []models.User) ([]models.User, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("ожидали ошибку fn, получили %v", err)
	}
	err := s.UpdateUsers(ctx, func(cur []models.User) ([]models.User, error) {
		return append(cur, models.User{ID: "u1", Name: "A"}), nil
	})
	if err != nil || len(s.ListUsers()) != 1 {
		t.Fatalf("ожидали одного пользователя: %v", err)
	}

	c := models.Course{ID: "c1", Name: "Networks", Classes: []string{"TY"}}
	if err := s.AddCourse(ctx, c, []models.Student{{ID: "s1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCourse(ctx, c, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("повтор id: ожидали ValidationError, получили %v", err)
	}
	if got := s.Roster("c1"); len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("неверный список: %+v", got)
	}
}

func TestRosterFromUsers_UniqueRollNumbers(t *testing.T) {
	c := models.Course{ID: "c1", Classes: []string{"A"}}
	users := []models.User{
		{ID: "u1", Role: models.RoleStudent, Class: "A"},
		{ID: "u2", Role: models.RoleStudent, Class: "A", RollNumber: "S01"},
		{ID: "u3", Role: models.RoleStudent, Class: "A"},
		{ID: "u4", Role: models.RoleStudent, Class: "A", RollNumber: "S01"},
		{ID: "u5", Role: models.RoleStudent, Class: "B"},
		{ID: "f1", Role: models.RoleFaculty, Class: "A"},
	}
	got, skipped := RosterFromUsers(c, users)

	seen := make(map[string]string)
	for _, st := range got {
		if prev, ok := seen[st.RollNumber]; ok {
			t.Fatalf("номер %s повторяется: %s и %s", st.RollNumber, prev, st.ID)
		}
		seen[st.RollNumber] = st.ID
	}
	if len(got) != 3 {
		t.Fatalf("ожидали 3 студентов, получили %+v", got)
	}
	if seen["S01"] != "u2" || seen["S02"] != "u1" || seen["S03"] != "u3" {
		t.Fatalf("неверная раздача номеров: %v", seen)
	}
	if len(skipped) != 1 || skipped[0].ID != "u4" {
		t.Fatalf("ожидали пропуск u4, получили %+v", skipped)
	}
}
