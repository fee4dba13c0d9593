// Package identity holds the badge payload carried by lab QR codes and the
// rules for accepting one.
package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidPayload is matched by every InvalidPayloadError.
var ErrInvalidPayload = errors.New("invalid payload")

// InvalidPayloadError reports why decoded text was rejected.
type InvalidPayloadError struct {
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return "Invalid QR code format: " + e.Reason
}

// Is lets errors.Is(err, ErrInvalidPayload) match.
func (e *InvalidPayloadError) Is(target error) bool {
	return target == ErrInvalidPayload
}

func invalid(format string, args ...any) error {
	return &InvalidPayloadError{Reason: fmt.Sprintf(format, args...)}
}

// Payload is the identity encoded in a badge.
type Payload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Encode renders p in the canonical badge form.
func (p Payload) Encode() string {
	b, _ := json.Marshal(p)
	return string(b)
}

// Validate parses raw badge text. Field order and extra fields are ignored;
// id, name and email must all be present and non-empty.
func Validate(raw string) (Payload, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return Payload{}, invalid("%v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Payload{}, invalid("unexpected data after JSON object")
	}
	if fields == nil {
		return Payload{}, invalid("payload is not a JSON object")
	}

	rawID, okID := fields["id"]
	rawName, okName := fields["name"]
	rawEmail, okEmail := fields["email"]
	if !okID || !okName || !okEmail {
		return Payload{}, invalid("Missing required fields in QR code")
	}

	id, err := parseID(rawID)
	if err != nil {
		return Payload{}, err
	}
	name, err := parseText("name", rawName)
	if err != nil {
		return Payload{}, err
	}
	email, err := parseText("email", rawEmail)
	if err != nil {
		return Payload{}, err
	}

	return Payload{ID: id, Name: name, Email: email}, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, invalid("id: %v", err)
	}
	switch t := v.(type) {
	case json.Number:
		num = t
	case string:
		num = json.Number(strings.TrimSpace(t))
	default:
		return 0, invalid("id must be a positive integer")
	}

	id, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id must be a positive integer")
	}
	return id, nil
}

func parseText(field string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid("%s must be a string", field)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("Missing required fields in QR code")
	}
	return s, nil
}
