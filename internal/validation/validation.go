package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Accepted ranges for the optional learner fields
const (
	MinAge   = 3
	MaxAge   = 18
	MinGrade = 1
	MaxGrade = 12
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateOptionalEmail accepts an empty address and otherwise behaves like ValidateEmail
func ValidateOptionalEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return ValidateEmail(email)
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > 50 {
		return ValidationError{Field: "name", Message: "name must be at most 50 characters"}
	}
	return nil
}

// ValidateAge checks an optional age; zero means not provided
func ValidateAge(age int) error {
	if age == 0 {
		return nil
	}
	if age < MinAge || age > MaxAge {
		return ValidationError{Field: "age", Message: fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge)}
	}
	return nil
}

// ValidateGrade checks an optional school grade; zero means not provided
func ValidateGrade(grade int) error {
	if grade == 0 {
		return nil
	}
	if grade < MinGrade || grade > MaxGrade {
		return ValidationError{Field: "grade", Message: fmt.Sprintf("grade must be between %d and %d", MinGrade, MaxGrade)}
	}
	return nil
}
