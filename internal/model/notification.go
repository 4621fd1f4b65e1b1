package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Notification status filters accepted by the notifications endpoint.
const (
	NotificationStatusAll    = ""
	NotificationStatusUnread = "unread"
	NotificationStatusRead   = "read"
)

// Notification represents a single user-facing event for one account.
type Notification struct {
	// ID is the opaque identifier, unique within an account.
	ID string `json:"id" db:"id"`

	// AccountID is the owning account. The client never infers ownership;
	// it is whatever the fetch or subscription was filtered by.
	AccountID string `json:"accountId,omitempty" db:"account_id"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	// Type is the machine category; TypeText is its display label.
	Type     string `json:"type" db:"type"`
	TypeText string `json:"typeText,omitempty" db:"type_text"`

	IsRead      bool      `json:"isRead" db:"is_read"`
	CreatedDate time.Time `json:"createdDate" db:"created_date"`
}

// UnmarshalJSON decodes a notification payload, normalizing the read flag.
// Push payloads are not consistent about the key ("isRead", "is_read",
// "read") or its encoding (bool, "true"/"false", 0/1).
func (n *Notification) UnmarshalJSON(data []byte) error {
	type alias Notification
	var raw struct {
		alias
		IsRead   json.RawMessage `json:"isRead"`
		IsRead2  json.RawMessage `json:"is_read"`
		Read     json.RawMessage `json:"read"`
		Created  json.RawMessage `json:"createdDate"`
		Created2 json.RawMessage `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Notification(raw.alias)

	for _, candidate := range []json.RawMessage{raw.IsRead, raw.IsRead2, raw.Read} {
		if len(candidate) == 0 {
			continue
		}
		read, err := parseFlag(candidate)
		if err != nil {
			return fmt.Errorf("notification %s: %w", n.ID, err)
		}
		n.IsRead = read
		break
	}

	for _, candidate := range []json.RawMessage{raw.Created, raw.Created2} {
		if len(candidate) == 0 || string(candidate) == "null" {
			continue
		}
		var ts time.Time
		if err := json.Unmarshal(candidate, &ts); err != nil {
			return fmt.Errorf("notification %s: parsing created date: %w", n.ID, err)
		}
		n.CreatedDate = ts
		break
	}

	return nil
}

// parseFlag decodes a JSON bool, number or string into a bool.
func parseFlag(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num != 0, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	}

	if string(raw) == "null" {
		return false, nil
	}

	return false, fmt.Errorf("unrecognized read flag %s", string(raw))
}

// MergeRead returns n with its read flag combined with prior.
// A notification seen as read stays read until an authoritative fetch says
// otherwise.
func (n Notification) MergeRead(prior Notification) Notification {
	n.IsRead = n.IsRead || prior.IsRead
	return n
}
