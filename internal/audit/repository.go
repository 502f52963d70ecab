package audit

import (
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one row of the user_audit table.
type Entry struct {
	ID         int64
	EventType  string
	UserID     string
	UserName   string
	PrevName   string
	OccurredAt time.Time
	RecordedAt time.Time
}

type AuditRepositoryInterface interface {
	Insert(tx *sql.Tx, entry *Entry) (int64, error)
}

type AuditRepository struct{}

func NewAuditRepository() AuditRepositoryInterface {
	return &AuditRepository{}
}

func (r *AuditRepository) Insert(tx *sql.Tx, entry *Entry) (int64, error) {
	query := `
		INSERT INTO user_audit (
			event_type, user_id, user_name, prev_name, occurred_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING id
	`

	var id int64
	err := tx.QueryRow(
		query,
		entry.EventType,
		entry.UserID,
		entry.UserName,
		entry.PrevName,
		entry.OccurredAt,
	).Scan(&id)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert audit entry")
		return 0, err
	}

	return id, nil
}
