package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("session_state", validateSessionState); err != nil {
		panic(fmt.Sprintf("failed to register session_state validator: %v", err))
	}
}

// validateSessionState backs the session_state struct tag
func validateSessionState(fl validator.FieldLevel) bool {
	return ValidateSessionState(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateSessionState validates a SessionState string value
func ValidateSessionState(value string) error {
	state := models.SessionState(value)
	switch state {
	case models.SessionStatePending, models.SessionStatePolished, models.SessionStateCorrected, models.SessionStateFailed:
		return nil
	default:
		return fmt.Errorf("invalid state: %s (must be 'pending', 'polished', 'corrected', or 'failed')", value)
	}
}
