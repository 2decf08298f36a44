package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails carries the stable classification of a pipeline error for
// structured failure logging.
type ErrorDetails struct {
	Kind string
	Hint string
}

// Details classifies err against the sentinel markers. Unrecognized errors
// report as transient so retry-oriented handling stays the default.
func Details(err error) ErrorDetails {
	switch {
	case err == nil:
		return ErrorDetails{}
	case errors.Is(err, ErrValidation):
		return ErrorDetails{Kind: "validation", Hint: "check the submitted URL and portal support"}
	case errors.Is(err, ErrConfiguration):
		return ErrorDetails{Kind: "configuration", Hint: "check config.toml and credentials"}
	case errors.Is(err, ErrNotFound):
		return ErrorDetails{Kind: "not_found", Hint: "the referenced entity no longer exists"}
	case errors.Is(err, ErrTimeout):
		return ErrorDetails{Kind: "timeout", Hint: "the operation exceeded its deadline; it will be retried or escalated"}
	case errors.Is(err, ErrExternalTool):
		return ErrorDetails{Kind: "external_tool", Hint: "check the external command or browser binary"}
	default:
		return ErrorDetails{Kind: "transient", Hint: "check logs for details"}
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
