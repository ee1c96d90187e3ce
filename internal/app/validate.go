package app

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Spok95/attendance-tracker/internal/apperr"
	"github.com/Spok95/attendance-tracker/internal/models"
)

type CreateUserInput struct {
	Name       string      `json:"name" validate:"required,min=2"`
	Email      string      `json:"email" validate:"required,email"`
	Password   string      `json:"password" validate:"required,min=6"`
	Role       models.Role `json:"role" validate:"required,oneof=student faculty"`
	Department string      `json:"department"`
	Class      string      `json:"class" validate:"required_if=Role student"`
	RollNumber string      `json:"rollNumber"`
}

type CreateCourseInput struct {
	Name          string            `json:"name" validate:"required,min=3"`
	CourseCode    string            `json:"courseCode" validate:"required,min=3"`
	FacultyID     string            `json:"facultyId" validate:"required"`
	Classes       []string          `json:"classes" validate:"required,min=1,dive,required"`
	TotalLectures int               `json:"totalLectures" validate:"gte=1"`
	Description   string            `json:"description"`
	Type          models.CourseType `json:"type" validate:"required,oneof=Theory Practical"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в ошибках — имена полей как в JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct переводит первую ошибку валидатора в apperr.ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("input", "%v", err)
	}
	e := verrs[0]
	field := e.Field()
	switch e.Tag() {
	case "required", "required_if":
		return apperr.Validation(field, "%s is required", field)
	case "email":
		return apperr.Validation(field, "invalid email address")
	case "min":
		if e.Kind() == reflect.Slice {
			return apperr.Validation(field, "at least %s item(s) required", e.Param())
		}
		return apperr.Validation(field, "must be at least %s characters", e.Param())
	case "gte":
		return apperr.Validation(field, "must be at least %s", e.Param())
	case "oneof":
		return apperr.Validation(field, "must be one of: %s", e.Param())
	default:
		return apperr.Validation(field, "%s is invalid", field)
	}
}
