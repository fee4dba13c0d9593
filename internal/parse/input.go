package parse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmptyID   = errors.New("Please enter a Person ID")
	ErrInvalidID = errors.New("Please enter a valid positive number for ID")

	spaceRe = regexp.MustCompile(`\s+`)
)

// PersonID parses a typed badge number. Surrounding whitespace is ignored;
// anything but a positive decimal integer is rejected.
func PersonID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrEmptyID
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// LabName collapses internal whitespace and falls back to def when raw is blank.
func LabName(raw, def string) string {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return def
	}
	return s
}
