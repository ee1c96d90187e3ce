// Package roster сверяет список курса с пакетом входящих студентов.
package roster

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/attendance-tracker/internal/apperr"
	"github.com/Spok95/attendance-tracker/internal/metrics"
	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/store"
)

// Mode — режим ввода. Политика дубликатов у режимов разная:
// ручная вставка отклоняет весь пакет, импорт пропускает дубликат и идёт дальше.
type Mode int

const (
	ModeManual Mode = iota
	ModeImport
)

func (m Mode) String() string {
	if m == ModeImport {
		return "import"
	}
	return "manual"
}

type Result struct {
	Added        []models.Student
	Skipped      int
	SkippedRolls []string
}

type Resolver struct {
	store *store.Store
	log   *zap.Logger
}

func NewResolver(st *store.Store, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: st, log: log}
}

// StudentID — стабильный id студента в курсе: повторный импорт даёт тот же id.
func StudentID(courseID, rollNumber string) string {
	return fmt.Sprintf("student-%s-%s", courseID, rollNumber)
}

// Import добавляет студентов в конец текущего списка курса.
// Проверка и запись идут под одной блокировкой хранилища.
func (r *Resolver) Import(ctx context.Context, courseID string, entries []Entry, mode Mode) (Result, error) {
	course, ok := r.store.Course(courseID)
	if !ok {
		return Result{}, apperr.NotFound("course", courseID)
	}
	class := ""
	if len(course.Classes) > 0 {
		class = course.Classes[0]
	}

	var res Result
	err := r.store.UpdateRoster(ctx, courseID, func(current []models.Student) ([]models.Student, error) {
		res = Result{}
		seen := make(map[string]struct{}, len(current)+len(entries))
		for _, s := range current {
			seen[s.RollNumber] = struct{}{}
		}
		for _, e := range entries {
			roll, name := strings.TrimSpace(e.RollNumber), strings.TrimSpace(e.Name)
			if roll == "" || name == "" {
				if mode == ModeManual {
					return nil, apperr.Validation(lineField(e), "roll number and name are required")
				}
				res.Skipped++
				continue
			}
			if _, dup := seen[roll]; dup {
				if mode == ModeManual {
					return nil, apperr.Validation(lineField(e),
						"student with roll number %s is already in this course", roll)
				}
				res.Skipped++
				res.SkippedRolls = append(res.SkippedRolls, roll)
				continue
			}
			seen[roll] = struct{}{}
			res.Added = append(res.Added, models.Student{
				ID:         StudentID(courseID, roll),
				RollNumber: roll,
				Name:       name,
				Class:      class,
			})
		}
		return append(current, res.Added...), nil
	})
	if err != nil && !store.IsPersistence(err) {
		return Result{}, err
	}

	metrics.RosterStudents.WithLabelValues("added").Add(float64(len(res.Added)))
	metrics.RosterStudents.WithLabelValues("skipped").Add(float64(res.Skipped))
	r.log.Info("список курса обновлён",
		zap.String("course", courseID),
		zap.Stringer("mode", mode),
		zap.Int("added", len(res.Added)),
		zap.Int("skipped", res.Skipped))
	return res, err
}

// ImportText — ручная вставка: разбор и добавление в режиме ModeManual.
func (r *Resolver) ImportText(ctx context.Context, courseID, text string) (Result, error) {
	entries, err := ParseManual(text)
	if err != nil {
		return Result{}, err
	}
	return r.Import(ctx, courseID, entries, ModeManual)
}

// ImportSheet — импорт из таблицы: пустые строки и дубликаты пропускаются.
func (r *Resolver) ImportSheet(ctx context.Context, courseID string, sheet SheetResult) (Result, error) {
	res, err := r.Import(ctx, courseID, sheet.Entries, ModeImport)
	if err != nil && !store.IsPersistence(err) {
		return Result{}, err
	}
	res.Skipped += sheet.Blank
	return res, err
}

func lineField(e Entry) string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d", e.Line)
	}
	return "roll number " + e.RollNumber
}
