package models

type CourseType string

const (
	Theory    CourseType = "Theory"
	Practical CourseType = "Practical"
)

func (t CourseType) Valid() bool {
	return t == Theory || t == Practical
}

type Course struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"courseCode"`
	FacultyID  string `json:"facultyId"`

	// FacultyName — снимок имени на момент создания курса, при правке профиля не обновляется.
	FacultyName string `json:"facultyName"`

	Classes       []string   `json:"classes"`
	TotalLectures int        `json:"totalLectures"`
	Description   string     `json:"description"`
	Type          CourseType `json:"type"`
}

// ServesClass — обслуживает ли курс указанный класс.
func (c Course) ServesClass(class string) bool {
	for _, cl := range c.Classes {
		if cl == class {
			return true
		}
	}
	return false
}

// Student — запись в списке курса. RollNumber уникален только внутри курса.
type Student struct {
	ID         string `json:"id"`
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
	Class      string `json:"class"`
}
