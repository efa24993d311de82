package config

import (
	"errors"
	"strings"

	"github.com/jun/drivelookup/internal/adapter"
)

// ValidationError reports one invalid option.
type ValidationError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationErrors is the list returned for invalid options.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Key + ": " + e.Message
	}
	return "invalid options: " + strings.Join(msgs, "; ")
}

// ValidateScope checks a search scope and names the offending option.
func ValidateScope(scope adapter.Scope) ValidationErrors {
	err := scope.Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, adapter.ErrDriveIDRequired):
		return ValidationErrors{{Key: "driveId", Message: err.Error()}}
	default:
		return ValidationErrors{{Key: "searchScope", Message: err.Error()}}
	}
}
