package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Submission outcomes.
const (
	OutcomeOK   = "ok"
	OutcomeFail = "fail"
)

// Submission is one recorded profile creation attempt.
type Submission struct {
	ID             uuid.UUID `db:"id"`
	ChatID         int64     `db:"chat_id"`
	Salt           string    `db:"salt"`
	Address        string    `db:"address"`
	Outcome        string    `db:"outcome"`
	ProfileAddress string    `db:"profile_address"`
	TxHash         string    `db:"tx_hash"`
	Error          string    `db:"error"`
	CreatedAt      time.Time `db:"created_at"`
}

// Journal keeps an audit trail of submission attempts.
type Journal interface {
	Record(ctx context.Context, s Submission) error
}

// PGJournal stores submissions in Postgres.
type PGJournal struct {
	db *sqlx.DB
}

// NewPGJournal wraps an open connection.
func NewPGJournal(db *sqlx.DB) *PGJournal {
	return &PGJournal{db: db}
}

const insertSubmission = `INSERT INTO submissions
	(id, chat_id, salt, address, outcome, profile_address, tx_hash, error, created_at)
	VALUES (:id, :chat_id, :salt, :address, :outcome, :profile_address, :tx_hash, :error, :created_at)`

// Record inserts s.
func (j *PGJournal) Record(ctx context.Context, s Submission) error {
	if _, err := j.db.NamedExecContext(ctx, insertSubmission, s); err != nil {
		return fmt.Errorf("journal: insert submission %s: %w", s.ID, err)
	}
	return nil
}
