package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tkaria/payguard/internal/risk"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed risk state store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the user_risk_states table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_risk_states (
			user_id           VARCHAR(128) PRIMARY KEY,
			last_ip           VARCHAR(64)  NOT NULL DEFAULT '',
			last_device       VARCHAR(128) NOT NULL DEFAULT '',
			last_txn_time     TIMESTAMPTZ,
			txn_count_24h     INTEGER NOT NULL DEFAULT 0,
			ip_change_count   INTEGER NOT NULL DEFAULT 0,
			device_change_count INTEGER NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ DEFAULT NOW(),
			updated_at        TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

// Create inserts a fresh risk state for a newly registered user.
func (p *PostgresStore) Create(ctx context.Context, state *risk.RiskState) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_risk_states (
			user_id, last_ip, last_device, last_txn_time,
			txn_count_24h, ip_change_count, device_change_count,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		state.UserID, state.LastIP, state.LastDevice,
		nullTimeOrValue(state.LastTransactionTime),
		state.TransactionCount24h, state.IPChangeCount, state.DeviceChangeCount,
		state.CreatedAt, state.UpdatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert risk state: %w", err)
	}
	return nil
}

// Get retrieves the risk state for a user.
func (p *PostgresStore) Get(ctx context.Context, userID string) (*risk.RiskState, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT user_id, last_ip, last_device, last_txn_time,
			txn_count_24h, ip_change_count, device_change_count,
			created_at, updated_at
		FROM user_risk_states WHERE user_id = $1
	`, userID)

	var state risk.RiskState
	var lastTxn, createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&state.UserID, &state.LastIP, &state.LastDevice, &lastTxn,
		&state.TransactionCount24h, &state.IPChangeCount, &state.DeviceChangeCount,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get risk state: %w", err)
	}

	if lastTxn.Valid {
		state.LastTransactionTime = lastTxn.Time
	}
	if createdAt.Valid {
		state.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		state.UpdatedAt = updatedAt.Time
	}
	return &state, nil
}

// Update overwrites the stored risk state for a user.
func (p *PostgresStore) Update(ctx context.Context, state *risk.RiskState) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE user_risk_states SET
			last_ip             = $2,
			last_device         = $3,
			last_txn_time       = $4,
			txn_count_24h       = $5,
			ip_change_count     = $6,
			device_change_count = $7,
			updated_at          = $8
		WHERE user_id = $1
	`,
		state.UserID, state.LastIP, state.LastDevice,
		nullTimeOrValue(state.LastTransactionTime),
		state.TransactionCount24h, state.IPChangeCount, state.DeviceChangeCount,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update risk state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// nullTimeOrValue returns a sql.NullTime: valid if t is non-zero, null otherwise.
func nullTimeOrValue(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
