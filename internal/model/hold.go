package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Hold is a temporary client-side reservation lock on a slot, created
// after a successful booking submission and pending external payment
// confirmation.  Holds are persisted per resource in the shared
// key/value store and expire 30 minutes after creation.
//
// Two serialized shapes exist in the wild: the current object form
// {"expiresAt": <epoch-ms>, "owner": "<id>"} and a legacy bare number
// holding only the expiry.  Legacy entries are normalized on read to
// the object form with an empty owner, meaning "held but unowned":
// visible to everyone, cancellable by no one.
type Hold struct {
	ExpiresAt int64  `json:"expiresAt"` // expiry as epoch milliseconds
	Owner     string `json:"owner,omitempty"`
}

// UnmarshalJSON accepts both the owned object shape and the legacy
// bare-number shape.
func (h *Hold) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("empty hold value")
	}
	if trimmed[0] != '{' {
		ms, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("legacy hold value %q: %w", trimmed, err)
		}
		h.ExpiresAt = int64(ms)
		h.Owner = ""
		return nil
	}
	type alias Hold
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*h = Hold(a)
	return nil
}

// Expired reports whether the hold's expiry has passed at the given
// instant.
func (h Hold) Expired(now time.Time) bool {
	return h.ExpiresAt <= now.UnixMilli()
}

// OwnedBy reports whether the hold is attributed to the given owner.
// Legacy holds carry an empty owner and belong to nobody.
func (h Hold) OwnedBy(owner string) bool {
	return h.Owner != "" && h.Owner == owner
}

// SlotKey builds the canonical key of a (date, startTime, unit) cell,
// unique within one resource: "{date}_{HH:mm}_{unit}".
func SlotKey(date, startTime string, unit int) string {
	return date + "_" + startTime + "_" + strconv.Itoa(unit)
}

// ParseSlotKey splits a canonical slot key back into its parts.  It
// returns an error when the key does not have exactly three
// underscore-separated fields or the unit is not a positive integer.
func ParseSlotKey(key string) (date, startTime string, unit int, err error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("malformed slot key %q", key)
	}
	unit, err = strconv.Atoi(parts[2])
	if err != nil || unit < 1 {
		return "", "", 0, fmt.Errorf("malformed unit in slot key %q", key)
	}
	return parts[0], parts[1], unit, nil
}
