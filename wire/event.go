package wire

import (
	"encoding/json"
	"fmt"
)

// Field names shared by every message on the stream.
const (
	// FieldType is the discriminator identifying an event's kind.
	FieldType = "_type"

	// FieldID is the correlation id linking a request to its response.
	// Requests stamp it on send; the matching response echoes it back.
	FieldID = "_id"

	// FieldTarget carries the device/interaction target URIs of a request.
	FieldTarget = "_target"
)

// Event is one tagged message on the workflow stream: a discriminator under
// FieldType, an optional correlation id under FieldID, and discriminator-
// specific payload fields.
type Event map[string]any

// New creates an event with the given discriminator.
func New(eventType string) Event {
	return Event{FieldType: eventType}
}

// Type returns the event's discriminator, or "" if absent.
func (e Event) Type() string {
	t, _ := e[FieldType].(string)
	return t
}

// ID returns the event's correlation id, or "" if absent.
func (e Event) ID() string {
	id, _ := e[FieldID].(string)
	return id
}

// String returns the string value of a payload field, or "" if the field is
// absent or not a string.
func (e Event) String(key string) string {
	v, _ := e[key].(string)
	return v
}

// IsError reports whether the event is a server-side error response.
func (e Event) IsError() bool {
	return e.Type() == TypeErrorResponse
}

// ErrorMessage returns the server message of an error response.
func (e Event) ErrorMessage() string {
	return e.String("error")
}

// Decode parses a text frame into an Event and repairs string fields that the
// controller delivers as arrays of character codes.
func Decode(data []byte) (Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wire: decoding event: %w", err)
	}
	e := Event(repairIntArrays(raw).(map[string]any))
	if e.Type() == "" {
		return nil, ErrMissingType
	}
	return e, nil
}

// Encode serialises an event to a text frame, dropping null-valued fields
// (the controller loads JSON null as the string "null").
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(stripNulls(map[string]any(e)))
	if err != nil {
		return nil, fmt.Errorf("wire: encoding event: %w", err)
	}
	return data, nil
}

// repairIntArrays recursively converts any all-integer JSON array into the
// string its character codes spell. The controller emits some string fields
// this way; flattening them here keeps payload access uniform downstream.
func repairIntArrays(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			val[k] = repairIntArrays(inner)
		}
		return val
	case []any:
		if s, ok := intArrayToString(val); ok {
			return s
		}
		for i, inner := range val {
			val[i] = repairIntArrays(inner)
		}
		return val
	default:
		return v
	}
}

// intArrayToString converts a non-empty slice of whole numbers into a string.
// JSON numbers decode as float64; anything fractional or non-numeric means the
// array is real data and is left alone.
func intArrayToString(items []any) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	runes := make([]rune, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok || f != float64(int64(f)) {
			return "", false
		}
		runes[i] = rune(int64(f))
	}
	return string(runes), true
}

// stripNulls returns a copy of the mapping with nil-valued keys removed,
// recursing into nested maps and slices.
func stripNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = stripNullsValue(v)
	}
	return out
}

func stripNullsValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return stripNulls(val)
	case Event:
		return stripNulls(map[string]any(val))
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, stripNullsValue(item))
		}
		return out
	default:
		return v
	}
}
