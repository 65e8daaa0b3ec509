package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gordonpn/portfolio-api/internal/domain"
)

var _ Repository = (*Postgres)(nil)

// Runs against a real database only when TEST_DATABASE_URL is set.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repository := NewPostgres(pool)
	require.NoError(t, repository.EnsureSchema(ctx))
	require.NoError(t, repository.EnsureSchema(ctx))
	return repository
}

func TestPostgresSubscriptions(t *testing.T) {
	repository := newTestPostgres(t)
	ctx := context.Background()
	endpoint := "https://push.example.com/" + uuid.NewString()
	t.Cleanup(func() { _ = repository.DeleteByEndpoint(context.Background(), endpoint) })

	created, err := repository.UpsertSubscription(ctx, domain.Subscription{Endpoint: endpoint, P256DH: "p", Auth: "a", Label: "laptop"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repository.UpsertSubscription(ctx, domain.Subscription{Endpoint: endpoint, P256DH: "p2", Auth: "a2", Label: "phone"})
	require.NoError(t, err)
	assert.False(t, created)

	subscriptions, err := repository.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Contains(t, subscriptions, domain.Subscription{Endpoint: endpoint, P256DH: "p2", Auth: "a2", Label: "phone"})

	require.NoError(t, repository.DeleteByEndpoint(ctx, endpoint))
	subscriptions, err = repository.ListSubscriptions(ctx)
	require.NoError(t, err)
	for _, subscription := range subscriptions {
		assert.NotEqual(t, endpoint, subscription.Endpoint)
	}
}

func TestPostgresArchiveMessage(t *testing.T) {
	repository := newTestPostgres(t)

	err := repository.ArchiveMessage(context.Background(), domain.ContactMessage{
		ID:        uuid.NewString(),
		Name:      "Ada",
		Email:     "a@example.com",
		Message:   "hi",
		ClientID:  "203.0.113.9",
		CreatedAt: time.Now().UTC(),
	})
	assert.NoError(t, err)
}
