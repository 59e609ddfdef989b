package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// Schema is the DDL for the intents table. Applied by EnsureSchema; kept
// here rather than a migrations tool because it is the service's only
// relation.
const Schema = `
CREATE TABLE IF NOT EXISTS payment_intents (
	id            TEXT PRIMARY KEY,
	amount        BIGINT NOT NULL CHECK (amount > 0),
	currency      TEXT NOT NULL,
	state         TEXT NOT NULL,
	client_secret TEXT NOT NULL,
	last_event_id TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS payment_intents_stale_idx
	ON payment_intents (updated_at) WHERE state = 'CREATED';
`

// PostgresStore persists intents in Postgres. Per-id serialization comes
// from SELECT ... FOR UPDATE inside Update's transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, Schema)
	return err
}

func (ps *PostgresStore) Put(ctx context.Context, intent *domain.PaymentIntent) error {
	now := time.Now()
	createdAt := intent.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	query := `
		INSERT INTO payment_intents (id, amount, currency, state, client_secret, last_event_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := ps.db.ExecContext(ctx, query,
		intent.ID, intent.Amount, intent.Currency, intent.State, intent.ClientSecret, intent.LastEventID, createdAt,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrIntentExists
	}
	return nil
}

func (ps *PostgresStore) Get(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	query := `
		SELECT id, amount, currency, state, client_secret, last_event_id, created_at, updated_at
		FROM payment_intents WHERE id = $1
	`
	return scanIntent(ps.db.QueryRowContext(ctx, query, id))
}

func (ps *PostgresStore) Update(ctx context.Context, id string, fn func(*domain.PaymentIntent) error) (*domain.PaymentIntent, error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		SELECT id, amount, currency, state, client_secret, last_event_id, created_at, updated_at
		FROM payment_intents WHERE id = $1
		FOR UPDATE
	`
	intent, err := scanIntent(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := fn(intent); err != nil {
		return nil, err
	}

	update := `
		UPDATE payment_intents
		SET state = $2,
		    last_event_id = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := tx.QueryRowContext(ctx, update, intent.ID, intent.State, intent.LastEventID).Scan(&intent.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return intent, nil
}

func (ps *PostgresStore) FindStaleCreated(ctx context.Context, before time.Time, limit int) ([]domain.PaymentIntent, error) {
	query := `
		SELECT id, amount, currency, state, client_secret, last_event_id, created_at, updated_at
		FROM payment_intents
		WHERE state = $1
		AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3
	`
	rows, err := ps.db.QueryContext(ctx, query, domain.IntentCreated, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.PaymentIntent
	for rows.Next() {
		var p domain.PaymentIntent
		err := rows.Scan(
			&p.ID,
			&p.Amount,
			&p.Currency,
			&p.State,
			&p.ClientSecret,
			&p.LastEventID,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		intents = append(intents, p)
	}
	return intents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*domain.PaymentIntent, error) {
	var p domain.PaymentIntent
	err := row.Scan(
		&p.ID,
		&p.Amount,
		&p.Currency,
		&p.State,
		&p.ClientSecret,
		&p.LastEventID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning payment intent: %w", err)
	}
	return &p, nil
}

var _ IntentStore = (*PostgresStore)(nil)
