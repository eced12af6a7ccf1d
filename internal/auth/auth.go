// Package auth gates the API's protected routes behind static API keys.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"
)

type Validator interface {
	Validate(ctx context.Context, apiKey string) bool
}

// StaticKeyValidator accepts a fixed set of API keys parsed from a
// comma-separated configuration value.
type StaticKeyValidator struct {
	keys []string
}

func NewStaticKeyValidator(raw string) *StaticKeyValidator {
	validator := &StaticKeyValidator{}
	for _, entry := range strings.Split(raw, ",") {
		key := strings.TrimSpace(entry)
		if key == "" {
			continue
		}
		validator.keys = append(validator.keys, key)
	}
	return validator
}

// Enabled reports whether any keys are configured. With no keys the admin
// surface stays open and the middleware should not be installed.
func (v *StaticKeyValidator) Enabled() bool {
	return len(v.keys) > 0
}

func (v *StaticKeyValidator) Validate(_ context.Context, apiKey string) bool {
	valid := false
	for _, key := range v.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			valid = true
		}
	}
	return valid
}
