package query

import "github.com/Spok95/attendance-tracker/internal/models"

// HistoryRow — строка таблицы курса. Cells[i] относится к History.Dates[i];
// nil — записи за этот день нет.
type HistoryRow struct {
	Student    models.Student `json:"student"`
	Cells      []*bool        `json:"cells"`
	Present    int            `json:"present"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
}

type History struct {
	Course models.Course `json:"course"`
	Dates  []models.Date `json:"dates"`
	Rows   []HistoryRow  `json:"rows"`
}

// CourseHistory — таблица «студенты × даты» курса. Если за день у студента несколько
// записей, в ячейку идёт последняя добавленная.
func (e *Engine) CourseHistory(courseID string) (History, bool) {
	var (
		course models.Course
		found  bool
	)
	for _, c := range e.src.ListCourses() {
		if c.ID == courseID {
			course, found = c, true
			break
		}
	}
	if !found {
		return History{}, false
	}

	records := e.CourseAttendance(courseID)
	dates := UniqueSortedDates(records)
	col := make(map[models.Date]int, len(dates))
	for i, d := range dates {
		col[d] = i
	}

	roster := e.src.Rosters()[courseID]
	h := History{Course: course, Dates: dates, Rows: make([]HistoryRow, 0, len(roster))}
	index := make(map[string]int, len(roster))
	for i, st := range roster {
		index[st.ID] = i
		h.Rows = append(h.Rows, HistoryRow{Student: st, Cells: make([]*bool, len(dates))})
	}
	for _, r := range records {
		i, ok := index[r.StudentID]
		if !ok {
			continue
		}
		present := r.IsPresent
		h.Rows[i].Cells[col[r.Date]] = &present
	}
	for i := range h.Rows {
		row := &h.Rows[i]
		for _, c := range row.Cells {
			if c == nil {
				continue
			}
			row.Total++
			if *c {
				row.Present++
			}
		}
		if row.Total > 0 {
			row.Percentage = 100 * float64(row.Present) / float64(row.Total)
		}
	}
	return h, true
}
