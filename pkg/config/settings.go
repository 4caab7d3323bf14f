package config

import "time"

// Defaults applied to missing or non-positive settings.
const (
	DefaultTTL               = 24 * time.Hour
	DefaultInactiveThreshold = 60 * 24 * time.Hour
	DefaultMaxEntries        = 500
)

// Settings are the resolved, read-only values a lookup runs with.
// They are passed explicitly with every call.
type Settings struct {
	TTL               time.Duration
	InactiveThreshold time.Duration
	Token             string
	MaxEntries        int
}

// DefaultSettings returns the defaults with no token.
func DefaultSettings() Settings {
	return Settings{
		TTL:               DefaultTTL,
		InactiveThreshold: DefaultInactiveThreshold,
		MaxEntries:        DefaultMaxEntries,
	}
}

// Normalize replaces non-positive values with their defaults.
func (s Settings) Normalize() Settings {
	if s.TTL <= 0 {
		s.TTL = DefaultTTL
	}
	if s.InactiveThreshold <= 0 {
		s.InactiveThreshold = DefaultInactiveThreshold
	}
	if s.MaxEntries <= 0 {
		s.MaxEntries = DefaultMaxEntries
	}
	return s
}
