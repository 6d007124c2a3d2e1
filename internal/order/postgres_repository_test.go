package order

import (
	"context"
	"testing"
	"time"

	"github.com/DNLCodess/ReezBlank/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *PostgresRepository {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	repo, err := NewPostgresRepository(&Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	require.NoError(t, repo.RunMigrations())
	return repo
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo := setupTestDB(t)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	o, err := svc.Create(ctx, newTestInput("user-123", "reez_1700000000000"))
	require.NoError(t, err)

	fetched, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, fetched.ID)
	assert.Equal(t, o.UserID, fetched.UserID)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)
	assert.Equal(t, domain.Currency, fetched.Currency)
	assert.Equal(t, "194.38", fetched.Total.StringFixed(2))
	assert.Equal(t, "14.40", fetched.Tax.StringFixed(2))
	assert.Equal(t, o.Shipping, fetched.Shipping)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "1", fetched.Items[0].ProductID)
	assert.Equal(t, "M", fetched.Items[0].Size)
	assert.Equal(t, "89.99", fetched.Items[0].Price.StringFixed(2))
	assert.WithinDuration(t, o.CreatedAt, fetched.CreatedAt, time.Millisecond)
}

func TestPostgresRepository_DuplicatePayment(t *testing.T) {
	repo := setupTestDB(t)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, newTestInput("user-123", "reez_dup"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, newTestInput("user-456", "reez_dup"))
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresRepository_ListByUser(t *testing.T) {
	repo := setupTestDB(t)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Create(ctx, newTestInput("user-list", "reez_first"))
	require.NoError(t, err)

	// distinct created_at
	time.Sleep(10 * time.Millisecond)

	second, err := svc.Create(ctx, newTestInput("user-list", "reez_second"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newTestInput("someone-else", "reez_other"))
	require.NoError(t, err)

	orders, err := repo.ListByUser(ctx, "user-list")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
