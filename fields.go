package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Keys every access event object must carry, in item order.
var requiredFields = []string{
	"event_key",
	"building_code",
	"building_door_id",
	"access_time",
	"user_identity",
}

// MissingFieldsError lists every required key absent from a source object.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required field(s): %s", strings.Join(e.Fields, ", "))
}

type InvalidFieldError struct {
	Field string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid value for field '%s': %v", e.Field, e.Err)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}

// DecodeAccessEvent builds an AccessEvent from a parsed JSON object in one
// step. Only an absent key is missing: any JSON value, null included, is
// carried through as-is. Keys other than the five required ones are ignored.
func DecodeAccessEvent(doc map[string]json.RawMessage) (AccessEvent, error) {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := doc[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return AccessEvent{}, &MissingFieldsError{Fields: missing}
	}

	var ev AccessEvent
	targets := map[string]any{
		"event_key":        &ev.EventKey,
		"building_code":    &ev.BuildingCode,
		"building_door_id": &ev.BuildingDoorID,
		"access_time":      &ev.AccessTime,
		"user_identity":    &ev.UserIdentity,
	}
	for _, field := range requiredFields {
		if err := json.Unmarshal(doc[field], targets[field]); err != nil {
			return AccessEvent{}, &InvalidFieldError{Field: field, Err: err}
		}
	}

	return ev, nil
}
