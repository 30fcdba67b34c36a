// Package secret keeps credentials, like the database password, from being exposed by accident.
//
// A Secret is masked whenever it is printed, logged, or marshalled.
// Only Secret.Secret returns the actual value.
package secret

import (
	"encoding/json"
	"log/slog"
)

const mask = "******"

func New(secret string) Secret {
	return Secret{secret: &secret}
}

// Secret prevents accidentally exposing
// any data you did not want to expose by masking it.
type Secret struct {
	// secret being a pointer makes it harder to access the value via reflection.
	// It is still possible by directly accessing the memory address.
	secret *string
}

var (
	_ slog.LogValuer = Secret{}
	_ json.Marshaler = Secret{}
)

// Secret returns the actual value of the Secret.
func (s Secret) Secret() string {
	if s.secret == nil {
		return ""
	}

	return *s.secret
}

// IsZero reports whether no value is set.
func (s Secret) IsZero() bool {
	return s.Secret() == ""
}

func (s Secret) String() string {
	return mask
}

func (s Secret) GoString() string {
	return mask
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(mask)
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(mask) //nolint:wrapcheck // export the underlying error
}

func (s *Secret) UnmarshalJSON(data []byte) error {
	var des string
	if err := json.Unmarshal(data, &des); err != nil {
		return err //nolint:wrapcheck // export the underlying error
	}

	s.secret = &des

	return nil
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(mask), nil
}

// UnmarshalText allows configuration libraries, like viper via mapstructure, to decode a Secret.
func (s *Secret) UnmarshalText(data []byte) error {
	text := string(data)
	s.secret = &text

	return nil
}
