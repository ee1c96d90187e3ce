package store

import (
	"fmt"
	"math/rand/v2"

	"github.com/Spok95/attendance-tracker/internal/models"
)

const (
	DemoCourseID = "course1"
	DemoClass    = "SY CSE A"
)

// SeedFunc строит начальный снимок для пустого хранилища.
type SeedFunc func() *Snapshot

// EmptySeed — без демо-данных.
func EmptySeed() *Snapshot { return NewSnapshot() }

// DemoSeed — фиксированный демо-набор: три студента, преподаватель и один курс.
// Список курса выводится из пользователей, чей класс входит в классы курса.
func DemoSeed() *Snapshot {
	s := NewSnapshot()
	s.Users = []models.User{
		{ID: "student1", Name: "Alice Johnson", Email: "alice@example.com", Password: "password123",
			Role: models.RoleStudent, Department: "Computer Science", Class: DemoClass, RollNumber: "S01"},
		{ID: "student2", Name: "Bob Williams", Email: "bob@example.com", Password: "password123",
			Role: models.RoleStudent, Department: "Computer Science", Class: DemoClass, RollNumber: "S02"},
		{ID: "student3", Name: "Charlie Brown", Email: "charlie@example.com", Password: "password123",
			Role: models.RoleStudent, Department: "Computer Science", Class: DemoClass, RollNumber: "S03"},
		{ID: "faculty1", Name: "Dr. Evelyn Reed", Email: "evelyn@example.com", Password: "password123",
			Role: models.RoleFaculty, Department: "Computer Science"},
	}
	for i := range s.Users {
		s.Users[i].AvatarURL = "https://placehold.co/100x100.png"
	}
	course := models.Course{
		ID:            DemoCourseID,
		Name:          "Data Structures",
		CourseCode:    "CS201",
		FacultyID:     "faculty1",
		FacultyName:   "Dr. Evelyn Reed",
		Classes:       []string{DemoClass},
		TotalLectures: 40,
		Description:   "Arrays, lists, trees, graphs and their algorithms.",
		Type:          models.Theory,
	}
	s.Courses = []models.Course{course}
	s.CourseStudents[course.ID], _ = RosterFromUsers(course, s.Users)
	return s
}

// RosterFromUsers — студенты, чей класс обслуживает курс. Номера в списке уникальны:
// явный номер берёт первый его владелец, остальные возвращаются в skipped.
// Без номера — следующий свободный из S01, S02...
func RosterFromUsers(c models.Course, users []models.User) (roster []models.Student, skipped []models.User) {
	taken := make(map[string]bool)
	for _, u := range users {
		if u.Role == models.RoleStudent && c.ServesClass(u.Class) && u.RollNumber != "" {
			taken[u.RollNumber] = true
		}
	}
	owner := make(map[string]string)
	next := 1
	for _, u := range users {
		if u.Role != models.RoleStudent || !c.ServesClass(u.Class) {
			continue
		}
		roll := u.RollNumber
		if roll == "" {
			for {
				roll = fmt.Sprintf("S%02d", next)
				next++
				if !taken[roll] {
					break
				}
			}
			taken[roll] = true
		} else if _, dup := owner[roll]; dup {
			skipped = append(skipped, u)
			continue
		}
		owner[roll] = u.ID
		roster = append(roster, models.Student{ID: u.ID, RollNumber: roll, Name: u.Name, Class: u.Class})
	}
	return roster, skipped
}

// WithDemoHistory дополняет сид историей за days дней до today (не включая today).
// ГСЧ детерминирован. Последний день первого студента каждого курса всегда «отсутствовал».
func WithDemoHistory(base SeedFunc, days int, today models.Date) SeedFunc {
	return func() *Snapshot {
		s := base()
		rng := rand.New(rand.NewPCG(42, uint64(days)))
		n := 0
		for _, c := range s.Courses {
			roster := s.CourseStudents[c.ID]
			class := ""
			if len(c.Classes) > 0 {
				class = c.Classes[0]
			}
			for si, st := range roster {
				for i := days; i > 0; i-- {
					present := rng.Float64() > 0.15
					if si == 0 && i == 1 {
						present = false
					}
					n++
					s.Attendance = append(s.Attendance, models.AttendanceRecord{
						ID:        fmt.Sprintf("seed-att-%d", n),
						CourseID:  c.ID,
						StudentID: st.ID,
						Date:      today.AddDays(-i),
						IsPresent: present,
						Class:     class,
					})
				}
			}
		}
		return s
	}
}
