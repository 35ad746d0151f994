package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

var (
	// ErrNotAuthenticated is returned when no access token is available
	ErrNotAuthenticated = errors.New("not authenticated: please run 'invoiceflow login' first")

	// ErrSessionExpired is returned when the access token was rejected and
	// could not be refreshed
	ErrSessionExpired = errors.New("session expired: please run 'invoiceflow login' again")
)

// Error is a normalized backend error. Every non-2xx response is mapped into
// this shape before it reaches the session manager or a command.
type Error struct {
	Status      int
	Message     string
	FieldErrors map[string][]string

	// fields keeps FieldErrors keys in response order
	fields []string
}

func (e *Error) Error() string {
	return e.Message
}

// Fields returns the names of fields with errors, in response order
func (e *Error) Fields() []string {
	return e.fields
}

// FirstFieldError returns the first field-level message, if any
func (e *Error) FirstFieldError() (string, bool) {
	for _, f := range e.fields {
		if msgs := e.FieldErrors[f]; len(msgs) > 0 {
			return msgs[0], true
		}
	}
	return "", false
}

// Field returns the first message for one field
func (e *Error) Field(name string) string {
	if msgs := e.FieldErrors[name]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// NewFieldError builds an Error carrying a single field message. Used for
// validation that fails before a request is sent.
func NewFieldError(field, msg string) *Error {
	e := &Error{FieldErrors: map[string][]string{}}
	e.add(field, msg)
	e.Message = msg
	return e
}

func (e *Error) add(field, msg string) {
	if _, ok := e.FieldErrors[field]; !ok {
		e.fields = append(e.fields, field)
	}
	e.FieldErrors[field] = append(e.FieldErrors[field], msg)
}

// Add appends a field message, keeping Message on the first one seen
func (e *Error) Add(field, msg string) {
	if e.FieldErrors == nil {
		e.FieldErrors = map[string][]string{}
	}
	e.add(field, msg)
	if e.Message == "" {
		e.Message = msg
	}
}

// HasErrors reports whether any field message was recorded
func (e *Error) HasErrors() bool {
	return len(e.fields) > 0
}

// parseError normalizes an error response body. The message prefers the
// first field-specific message, then "detail", then "error", then fallback.
func parseError(status int, body []byte, fallback string) *Error {
	e := &Error{Status: status, FieldErrors: map[string][]string{}}

	var detail, generic string

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err == nil && tok == json.Delim('{') {
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				break
			}
			key, _ := keyTok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				break
			}

			msgs := flattenMessages(raw)
			if len(msgs) == 0 {
				continue
			}

			switch key {
			case "detail":
				detail = msgs[0]
			case "error", "message":
				if generic == "" {
					generic = msgs[0]
				}
			case "code", "messages":
				// token error metadata, not user-facing

			default:
				for _, m := range msgs {
					e.add(key, m)
				}
			}
		}
	}

	switch first, ok := e.FirstFieldError(); {
	case ok:
		e.Message = first
	case detail != "":
		e.Message = detail
	case generic != "":
		e.Message = generic
	default:
		e.Message = fallback
	}

	return e
}

// flattenMessages pulls every string out of a JSON value. DRF nests errors
// in lists and, for item arrays, in lists of objects.
func flattenMessages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, flattenMessages(item)...)
		}
		return out
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var out []string
		for _, k := range keys {
			for _, m := range flattenMessages(obj[k]) {
				out = append(out, fmt.Sprintf("%s: %s", k, m))
			}
		}
		return out
	}

	return nil
}

// readError drains a failed response into a normalized Error
func readError(status int, r io.Reader, fallback string) *Error {
	body, _ := readLimitedResponse(r, MaxResponseSize)
	return parseError(status, body, fallback)
}

// Message returns the display string for err: the normalized message for
// backend errors, fallback for everything else.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired) {
		return err.Error()
	}
	return fallback
}
