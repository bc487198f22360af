package connector

import (
	"fmt"
	"regexp"
	"strings"
)

// ConfigField describes one credential field a connector requires from the
// merchant (used by the credential store to validate setup before any call
// is attempted).
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret"`
	Description string `json:"description"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// ValidateCredentialFields checks supplied merchant credentials against a
// connector's declared requirements. Failures are configuration errors.
func ValidateCredentialFields(connectorName string, creds map[string]string, fields []ConfigField) error {
	for _, field := range fields {
		value, exists := creds[field.Key]
		if !exists || strings.TrimSpace(value) == "" {
			if field.Required {
				return NewError(ErrInvalidConfiguration, connectorName, fmt.Sprintf("required credential field '%s' is missing", field.Key))
			}
			continue
		}

		if field.MinLength > 0 && len(value) < field.MinLength {
			return NewError(ErrInvalidConfiguration, connectorName, fmt.Sprintf("credential field '%s' must be at least %d characters", field.Key, field.MinLength))
		}
		if field.MaxLength > 0 && len(value) > field.MaxLength {
			return NewError(ErrInvalidConfiguration, connectorName, fmt.Sprintf("credential field '%s' must not exceed %d characters", field.Key, field.MaxLength))
		}
		if field.Pattern != "" {
			matched, err := regexp.MatchString(field.Pattern, value)
			if err != nil {
				return WrapError(ErrInvalidConfiguration, connectorName, fmt.Sprintf("invalid pattern for credential field '%s'", field.Key), err)
			}
			if !matched {
				return NewError(ErrInvalidConfiguration, connectorName, fmt.Sprintf("credential field '%s' does not match the required pattern", field.Key))
			}
		}
	}

	return nil
}
