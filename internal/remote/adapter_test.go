package remote

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

// setupTestDB migrates the database at TEST_DATABASE_URL and returns an
// adapter for a fresh user. Tests skip when no database is reachable.
func setupTestDB(t *testing.T) (*Adapter, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Skipf("database not available: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(dsn))

	userID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM tasks WHERE user_id = $1", userID)
	})
	return New(pool, userID, nil), pool
}

func TestAdapterCRUDScopedToUser(t *testing.T) {
	adapter, pool := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older := model.Task{ID: uuid.NewString(), Title: "older", Priority: model.PriorityLow, CreatedAt: base.Add(-time.Hour)}
	newer := model.Task{ID: uuid.NewString(), Title: "newer", Priority: model.PriorityHigh, CreatedAt: base}
	require.NoError(t, adapter.Create(ctx, older))
	require.NoError(t, adapter.Create(ctx, newer))

	other := New(pool, "other-"+uuid.NewString(), nil)
	require.NoError(t, other.Create(ctx, model.Task{ID: uuid.NewString(), Title: "not mine", Priority: model.PriorityMedium}))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM tasks WHERE user_id = $1", other.userID)
	})

	tasks, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "newer", tasks[0].Title)

	older.Completed = true
	older.Description = "2%"
	require.NoError(t, adapter.Update(ctx, older))
	require.NoError(t, adapter.Delete(ctx, newer.ID))
	require.NoError(t, adapter.Delete(ctx, newer.ID))
	require.NoError(t, adapter.Update(ctx, newer), "updating a deleted row is not an error")

	tasks, err = adapter.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
	assert.Equal(t, "2%", tasks[0].Description)
	assert.True(t, older.CreatedAt.Equal(tasks[0].CreatedAt))
}

func TestAdapterCreateDuplicateIsWriteError(t *testing.T) {
	adapter, _ := setupTestDB(t)
	ctx := context.Background()

	task := model.Task{ID: uuid.NewString(), Title: "once", Priority: model.PriorityMedium, CreatedAt: time.Now()}
	require.NoError(t, adapter.Create(ctx, task))

	err := adapter.Create(ctx, task)
	var writeErr *model.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "create", writeErr.Op)
}

func TestSubscribeDeliversChanges(t *testing.T) {
	adapter, _ := setupTestDB(t)
	ctx := context.Background()

	sub, err := adapter.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	task := model.Task{ID: uuid.NewString(), Title: "pushed", Priority: model.PriorityMedium, CreatedAt: time.Now()}
	require.NoError(t, adapter.Create(ctx, task))

	select {
	case change := <-sub.Changes():
		assert.Equal(t, model.ChangeInsert, change.Op)
		assert.Equal(t, task.ID, change.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, open := <-sub.Changes()
	assert.False(t, open)
}
