package models

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// User — зарегистрированный пользователь. Email уникален с учётом регистра.
// Class и RollNumber заполняются только у студентов.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
	Class      string `json:"class,omitempty"`
	RollNumber string `json:"rollNumber,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}
