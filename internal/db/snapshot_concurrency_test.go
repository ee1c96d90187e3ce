//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Spok95/attendance-tracker/internal/db"
	"github.com/Spok95/attendance-tracker/internal/models"
	"github.com/Spok95/attendance-tracker/internal/recorder"
	"github.com/Spok95/attendance-tracker/internal/store"
	"github.com/Spok95/attendance-tracker/internal/testutil/testdb"
)

func TestSubmitLecture_ParallelPostgres(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	be := db.NewPostgresBackend(h.DB)
	st := store.New(be)
	if err := st.Init(ctx); err != nil {
		t.Fatal(err)
	}
	course, _ := st.Course(store.DemoCourseID)
	roster := st.Roster(course.ID)

	const lectures = 20
	var wg sync.WaitGroup
	errs := make(chan error, lectures)
	for i := 0; i < lectures; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := recorder.NewSession(course, roster)
			s.SetDate(models.NewDate(2024, 6, 1).AddDays(i))
			s.SetTimeSlot("10:15 - 11:15")
			s.MarkAll(i%2 == 0)
			if _, err := s.Submit(ctx, st); err != nil {
				errs <- fmt.Errorf("lecture %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	reopened := store.New(be)
	if err := reopened.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if got := len(reopened.ListReports()); got != lectures {
		t.Fatalf("ожидали %d отчётов в postgres, получили %d", lectures, got)
	}
	if got := len(reopened.ListAttendance()); got != lectures*len(roster) {
		t.Fatalf("ожидали %d записей, получили %d", lectures*len(roster), got)
	}
}
