package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

// ignoredPatchFields are accepted in update payloads but never applied.
// Clients routinely echo the whole task back; identity and provenance must
// survive that unchanged.
var ignoredPatchFields = map[string]bool{
	"id":        true,
	"projectId": true,
	"origin":    true,
	"source":    true,
	"sourceId":  true,
	"status":    true,
	"createdAt": true,
	"updatedAt": true,
}

// parsePatch converts a raw JSON update payload into a storage updates map.
// Only fields present in the payload appear in the map; an explicit null maps
// to a nil value for the clearable fields and is rejected everywhere else.
func parsePatch(patch json.RawMessage) (map[string]interface{}, error) {
	if len(bytes.TrimSpace(patch)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrValidation)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	updates := make(map[string]interface{})
	for key, raw := range fields {
		if ignoredPatchFields[key] {
			continue
		}
		isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))

		switch key {
		case "text":
			if isNull {
				return nil, fmt.Errorf("%w: text cannot be null", ErrValidation)
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%w: text must be a string", ErrValidation)
			}
			if v == "" {
				return nil, fmt.Errorf("%w: text cannot be empty", ErrValidation)
			}
			if len(v) > 1000 {
				return nil, fmt.Errorf("%w: text must be 1000 characters or less", ErrValidation)
			}
			updates[key] = v

		case "completed":
			var v bool
			if isNull {
				return nil, fmt.Errorf("%w: completed cannot be null", ErrValidation)
			}
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%w: completed must be a boolean", ErrValidation)
			}
			updates[key] = v

		case "notes":
			if isNull {
				return nil, fmt.Errorf("%w: notes cannot be null (use an empty string)", ErrValidation)
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%w: notes must be a string", ErrValidation)
			}
			updates[key] = v

		case "priority":
			if isNull {
				updates[key] = nil
				continue
			}
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%w: priority must be a string or null", ErrValidation)
			}
			if !types.Priority(v).IsValid() {
				return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, v)
			}
			updates[key] = v

		case "dueDate":
			if isNull {
				updates[key] = nil
				continue
			}
			var v time.Time
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%w: dueDate must be an RFC 3339 timestamp or null", ErrValidation)
			}
			updates[key] = v.UTC()

		default:
			return nil, fmt.Errorf("%w: unknown field %q", ErrValidation, key)
		}
	}
	return updates, nil
}
