package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional values track presence and value for PATCH semantics (RFC 7396),
// which Go pointers alone cannot express:
//   - Present=false: field absent from the request (don't change)
//   - Present=true, Value=nil: field is null (clear the column)
//   - Present=true, Value set: field has a value

// OptionalString is a tri-state string field.
type OptionalString struct {
	Present bool
	Value   *string
}

// SetString returns a present OptionalString holding v.
func SetString(v string) OptionalString {
	return OptionalString{Present: true, Value: &v}
}

// UnmarshalJSON implements json.Unmarshaler. Being called at all means the
// field was present in the JSON.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if isJSONNull(data) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// OptionalInt64 is a tri-state int64 field.
type OptionalInt64 struct {
	Present bool
	Value   *int64
}

// SetInt64 returns a present OptionalInt64 holding v.
func SetInt64(v int64) OptionalInt64 {
	return OptionalInt64{Present: true, Value: &v}
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Present = true
	if isJSONNull(data) {
		o.Value = nil
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}

// OptionalTime is a tri-state timestamp field.
type OptionalTime struct {
	Present bool
	Value   *time.Time
}

// SetTime returns a present OptionalTime holding v.
func SetTime(v time.Time) OptionalTime {
	return OptionalTime{Present: true, Value: &v}
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Present = true
	if isJSONNull(data) {
		o.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

func isJSONNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
