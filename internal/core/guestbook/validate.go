package guestbook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that both fields are present. There is no length limit.
// Whitespace is significant; a name of " " is accepted.
func (d Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return &ValidationError{Problems: msgs}
}

// ValidationError reports every problem found in a draft.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + strings.Join(e.Problems, ", ")
}
