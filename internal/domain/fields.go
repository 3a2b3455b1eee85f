package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// TaskFields holds the client-settable task fields. A nil pointer means the
// field was absent from the payload.
type TaskFields struct {
	Title       *string
	Description *string
	Done        *bool
}

type fieldSetter func(f *TaskFields, raw json.RawMessage) string

// taskFieldSetters is the whitelist of mutable fields. Keys outside it,
// including id and createdAt, are ignored.
var taskFieldSetters = map[string]fieldSetter{
	"title":       setTitle,
	"description": setDescription,
	"done":        setDone,
}

// DecodeTaskFields parses a JSON object into TaskFields. An empty payload is
// treated as an empty object. Wrong value types and non-object payloads are
// reported as a *ValidationError.
func DecodeTaskFields(data []byte) (TaskFields, error) {
	var fields TaskFields

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fields, nil
	}
	if !json.Valid(data) {
		return fields, NewValidationError(TaskEntity, "", "request body is not valid JSON")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return fields, NewValidationError(TaskEntity, "", "request body must be a JSON object")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := taskFieldSetters[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	ve := &ValidationError{Entity: TaskEntity}
	for _, k := range keys {
		if msg := taskFieldSetters[k](&fields, raw[k]); msg != "" {
			ve.Fields = append(ve.Fields, FieldError{Field: k, Message: msg})
		}
	}
	if len(ve.Fields) > 0 {
		return TaskFields{}, ve
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// null clears the title, which then fails the required rule.
func setTitle(f *TaskFields, raw json.RawMessage) string {
	var s string
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "must be a string"
		}
	}
	f.Title = &s
	return ""
}

func setDescription(f *TaskFields, raw json.RawMessage) string {
	var s string
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "must be a string"
		}
	}
	f.Description = &s
	return ""
}

func setDone(f *TaskFields, raw json.RawMessage) string {
	if isNull(raw) {
		return "must be a boolean"
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return "must be a boolean"
	}
	f.Done = &b
	return ""
}
