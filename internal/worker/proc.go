package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"user_api/internal/audit"
	"user_api/internal/user"
)

// toAuditEntry decodes a user event message into an audit row.
// A malformed message is reported as permanent: retrying cannot fix it.
func toAuditEntry(body []byte) (*audit.Entry, error) {
	var event user.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch event.Type {
	case user.EventCreated, user.EventUpdated, user.EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type: %q", event.Type)
	}

	if event.UserID == "" || event.UserName == "" {
		return nil, fmt.Errorf("event %s is missing the user id or name", event.Type)
	}

	occurredAt, err := time.Parse(time.RFC3339, event.OccurredAt)
	if err != nil {
		occurredAt = time.Now().UTC()
	}

	return &audit.Entry{
		EventType:  event.Type,
		UserID:     event.UserID,
		UserName:   event.UserName,
		PrevName:   event.PrevName,
		OccurredAt: occurredAt,
	}, nil
}
