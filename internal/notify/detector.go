// Package notify находит студентов с низкой посещаемостью и складывает уведомления в хранилище.
// Доставки нет: уведомления только читаются через фасад.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/metrics"
	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/query"
)

const KindLowAttendance = "low_attendance"

const (
	DefaultThreshold   = 75.0
	DefaultMinLectures = 3
)

type Store interface {
	query.Source
	ListNotifications() []models.Notification
	AppendNotifications(ctx context.Context, notes []models.Notification) error
}

// LowAttendance — полезная нагрузка уведомления.
type LowAttendance struct {
	Kind       string  `json:"kind"`
	CourseID   string  `json:"courseId"`
	Percentage float64 `json:"percentage"`
}

type Detector struct {
	store       Store
	engine      *query.Engine
	threshold   float64
	minLectures int
	loc         *time.Location
	now         func() time.Time
	log         *zap.Logger
}

type Option func(*Detector)

func WithThreshold(p float64) Option { return func(d *Detector) { d.threshold = p } }

func WithMinLectures(n int) Option { return func(d *Detector) { d.minLectures = n } }

// WithLocation — зона, в которой считается «сегодня» для дедупликации.
func WithLocation(loc *time.Location) Option { return func(d *Detector) { d.loc = loc } }

func WithClock(now func() time.Time) Option { return func(d *Detector) { d.now = now } }

func WithLogger(l *zap.Logger) Option { return func(d *Detector) { d.log = l } }

func NewDetector(st Store, opts ...Option) *Detector {
	d := &Detector{
		store:       st,
		engine:      query.New(st),
		threshold:   DefaultThreshold,
		minLectures: DefaultMinLectures,
		loc:         time.UTC,
		now:         time.Now,
		log:         zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// students — все известные студенты: пользователи с ролью student и записи списков.
func (d *Detector) students() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, u := range d.store.ListUsers() {
		if u.Role == models.RoleStudent {
			add(u.ID)
		}
	}
	for _, c := range d.store.ListCourses() {
		for _, s := range d.store.Rosters()[c.ID] {
			add(s.ID)
		}
	}
	return out
}

func dedupKey(studentID, courseID string, day models.Date) string {
	return fmt.Sprintf("%s|%s|%s", studentID, courseID, day)
}

// Scan создаёт уведомление, если процент по курсу ниже порога и записей не меньше minLectures.
// По паре (студент, курс) — не больше одного уведомления в день.
func (d *Detector) Scan(ctx context.Context) ([]models.Notification, error) {
	now := d.now()
	today := models.DateOf(now.In(d.loc))

	sent := map[string]struct{}{}
	for _, n := range d.store.ListNotifications() {
		var p LowAttendance
		if err := json.Unmarshal(n.Payload, &p); err != nil || p.Kind != KindLowAttendance {
			continue
		}
		sent[dedupKey(n.StudentID, p.CourseID, models.DateOf(n.Timestamp.In(d.loc)))] = struct{}{}
	}

	var out []models.Notification
	for _, sid := range d.students() {
		for _, s := range d.engine.StudentSummary(sid) {
			if s.Total < d.minLectures || s.Percentage >= d.threshold {
				continue
			}
			key := dedupKey(sid, s.CourseID, today)
			if _, ok := sent[key]; ok {
				continue
			}
			payload, err := json.Marshal(LowAttendance{Kind: KindLowAttendance, CourseID: s.CourseID, Percentage: s.Percentage})
			if err != nil {
				return nil, fmt.Errorf("marshal payload: %w", err)
			}
			sent[key] = struct{}{}
			out = append(out, models.Notification{
				ID:        uuid.NewString(),
				StudentID: sid,
				Timestamp: now.UTC(),
				Payload:   payload,
			})
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	err := d.store.AppendNotifications(ctx, out)
	metrics.NotificationsCreated.Add(float64(len(out)))
	d.log.Info("уведомления о низкой посещаемости", zap.Int("count", len(out)), zap.Error(err))
	return out, err
}
