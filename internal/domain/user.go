// Package domain contains entity without logic, just meta-data
// and the normalization rules for identifiers coming off the wire.
package domain

import (
	"errors"
	"strings"
)

// DefaultDisplayName is used when a client joins without a usable name.
const DefaultDisplayName = "Guest"

// ErrInvalidRequest is returned when a request lacks a required identifier
// after normalization.
var ErrInvalidRequest = errors.New("invalid request")

type UserID string

// NormalizeUserID trims the raw value. Case is preserved.
// Anything that is not a string normalizes to "".
func NormalizeUserID(raw any) UserID {
	return UserID(coerce(raw))
}

// NormalizeDisplayName trims the raw value and falls back to DefaultDisplayName.
func NormalizeDisplayName(raw any) string {
	name := coerce(raw)
	if name == "" {
		return DefaultDisplayName
	}
	return name
}

func coerce(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case UserID:
		return strings.TrimSpace(string(v))
	case RoomID:
		return strings.TrimSpace(string(v))
	default:
		return ""
	}
}
