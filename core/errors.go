package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound means the requested page or comment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPageNotEditable rejects mutating operations on a published
	// snapshot. Only drafts can be saved, published or unpublished.
	ErrPageNotEditable = errors.New("page is not editable")

	// ErrUnknownPageType means the requested type tag is not registered.
	ErrUnknownPageType = errors.New("unknown page type")

	// ErrNoFormRegistered is a configuration error: a page type exists
	// but no edit form was registered for it.
	ErrNoFormRegistered = errors.New("no form registered for page type")

	// ErrNoSerializerRegistered is the API-side counterpart of
	// ErrNoFormRegistered.
	ErrNoSerializerRegistered = errors.New("no serializer registered for page type")

	// ErrCommentsDisabled rejects comments on pages that turned them off.
	ErrCommentsDisabled = errors.New("comments are disabled for this page")
)

// FieldErrors carries per-field validation messages. It is an expected,
// recoverable error re-presented to the caller, never fatal.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
