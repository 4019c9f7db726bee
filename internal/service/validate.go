// Package service implements the command surface of the core. Services
// validate and sanitize input, do any expensive work (secret hashing) off
// the single-writer path, and submit atomic mutations to the coordinator.
package service

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrValidation wraps all malformed-input failures. They are rejected
// before anything reaches the mutation coordinator.
var ErrValidation = errors.New("validation failed")

// ErrNotTicketParticipant rejects ticket chat from anyone but the
// requester and the assigned admin.
var ErrNotTicketParticipant = errors.New("not a ticket participant")

const (
	maxSubjectLen   = 120
	maxMessageLen   = 2000
	maxBroadcastLen = 500
	maxRadioLen     = 500
	maxNameLen      = 64
	maxChannelLen   = 16
)

// stripPolicy removes all markup from user-supplied text.
var stripPolicy = bluemonday.StrictPolicy()

// cleanText strips markup and enforces a length cap. Returns the cleaned
// text or a wrapped ErrValidation.
func cleanText(field, raw string, max int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	// StrictPolicy escapes entities; unescape so "a < b" survives a
	// round trip through sanitization.
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty after sanitization", ErrValidation, field)
	}
	if len(s) > max {
		return "", fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, field, max)
	}
	return s, nil
}
