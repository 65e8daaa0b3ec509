package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

type Repository interface {
	ArchiveMessage(ctx context.Context, message domain.ContactMessage) error
	UpsertSubscription(ctx context.Context, subscription domain.Subscription) (bool, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS contact_messages (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL,
		client_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS contact_messages_created_at_idx ON contact_messages (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS push_subscriptions (
		endpoint TEXT PRIMARY KEY,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	)`,
}

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema is safe to run on every start.
func (repository *Postgres) EnsureSchema(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := repository.db.Exec(ctx, statement); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (repository *Postgres) ArchiveMessage(ctx context.Context, message domain.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (id, name, email, message, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := repository.db.Exec(ctx, query,
		message.ID, message.Name, message.Email, message.Message, message.ClientID, message.CreatedAt)
	return err
}

// UpsertSubscription reports true when the endpoint was not registered before.
func (repository *Postgres) UpsertSubscription(ctx context.Context, subscription domain.Subscription) (bool, error) {
	query := `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth, label, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (endpoint)
		DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, label = EXCLUDED.label, updated_at = NOW()
		RETURNING (xmax = 0)
	`
	var inserted bool
	err := repository.db.QueryRow(ctx, query,
		subscription.Endpoint, subscription.P256DH, subscription.Auth, subscription.Label).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (repository *Postgres) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := repository.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

func (repository *Postgres) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := repository.db.Query(ctx, `SELECT endpoint, p256dh, auth, label FROM push_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Subscription, 0)
	for rows.Next() {
		item := domain.Subscription{}
		if err := rows.Scan(&item.Endpoint, &item.P256DH, &item.Auth, &item.Label); err != nil {
			return nil, err
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
