package local

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazytodo/internal/db"
	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/model"
)

func newTestAdapter(t *testing.T) (*Adapter, *db.KV) {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	kv := db.NewKV(conn)
	return New(kv, "", nil), kv
}

func TestSaveLoadRoundTrip(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	due := created.Add(48 * time.Hour)

	tasks := []model.Task{
		{ID: "a", Title: "Buy milk", Priority: model.PriorityLow, CreatedAt: created},
		{ID: "b", Title: "Dentist", Description: "bring card", Completed: true, DueDate: &due, Priority: model.PriorityHigh, CreatedAt: created.Add(time.Minute)},
	}
	require.NoError(t, adapter.Save(ctx, tasks))

	loaded, err := adapter.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for i := range tasks {
		assert.Equal(t, tasks[i].ID, loaded[i].ID)
		assert.Equal(t, tasks[i].Title, loaded[i].Title)
		assert.Equal(t, tasks[i].Description, loaded[i].Description)
		assert.Equal(t, tasks[i].Completed, loaded[i].Completed)
		assert.Equal(t, tasks[i].Priority, loaded[i].Priority)
		assert.True(t, tasks[i].CreatedAt.Equal(loaded[i].CreatedAt))
	}
	require.NotNil(t, loaded[1].DueDate)
	assert.True(t, due.Equal(*loaded[1].DueDate))
	assert.Nil(t, loaded[0].DueDate)
}

func TestLoadMissingSlotIsEmpty(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	loaded, err := adapter.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestSaveEmptyCollectionWritesArray(t *testing.T) {
	adapter, kv := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Save(ctx, nil))
	raw, ok, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", string(raw))
}

func TestLoadCorruptSnapshotFailsOpen(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{{`,
		"not an array":      `{"id":"a"}`,
		"missing title":     `[{"id":"a","priority":"low","createdAt":"2026-01-02T03:04:05Z"}]`,
		"blank title":       `[{"id":"a","title":"  ","priority":"low","createdAt":"2026-01-02T03:04:05Z"}]`,
		"unknown priority":  `[{"id":"a","title":"x","priority":"urgent","createdAt":"2026-01-02T03:04:05Z"}]`,
		"bad due date":      `[{"id":"a","title":"x","priority":"low","dueDate":"tomorrow","createdAt":"2026-01-02T03:04:05Z"}]`,
		"duplicate task id": `[{"id":"a","title":"x","priority":"low","createdAt":"2026-01-02T03:04:05Z"},{"id":"a","title":"y","priority":"low","createdAt":"2026-01-02T03:04:05Z"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			adapter, kv := newTestAdapter(t)
			adapter.logger = logging.New(&buf, logging.Options{Level: "error", Format: "logfmt"})
			require.NoError(t, kv.Put(context.Background(), DefaultKey, []byte(raw)))

			loaded, err := adapter.Load(context.Background())
			require.NoError(t, err)
			assert.Empty(t, loaded)
			assert.Contains(t, buf.String(), "discard snapshot")
		})
	}
}

type brokenSlot struct{}

func (brokenSlot) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("io error")
}

func (brokenSlot) Put(context.Context, string, []byte) error {
	return errors.New("read-only")
}

func TestUnreadableSlotFailsOpenButSaveFails(t *testing.T) {
	adapter := New(brokenSlot{}, "tasks", nil)

	loaded, err := adapter.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)

	assert.Error(t, adapter.Save(context.Background(), []model.Task{{ID: "a", Title: "x", Priority: model.PriorityLow}}))
}

func TestSubscribeHasNoChanges(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	sub, err := adapter.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub.Changes())
	assert.NoError(t, sub.Close())
	assert.NoError(t, sub.Close())
}
