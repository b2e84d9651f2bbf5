// Package local stores the task collection as one JSON snapshot in a
// durable key/value slot.
package local

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Joseda-hg/lazytodo/internal/logging"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

const DefaultKey = "tasks"

// Slot is one named durable value. db.KV and RedisSlot implement it.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

//go:embed snapshot.schema.json
var snapshotSchema string

var schema = jsonschema.MustCompileString("snapshot.schema.json", snapshotSchema)

type Adapter struct {
	slot   Slot
	key    string
	logger *log.Logger
}

func New(slot Slot, key string, logger *log.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Adapter{slot: slot, key: key, logger: logger}
}

// Load never fails. A missing slot yields no tasks; an unreadable or
// invalid snapshot is logged and also yields no tasks.
func (a *Adapter) Load(ctx context.Context) ([]model.Task, error) {
	data, ok, err := a.slot.Get(ctx, a.key)
	if err != nil {
		a.logger.Error("read snapshot", "key", a.key, "err", err)
		return []model.Task{}, nil
	}
	if !ok {
		return []model.Task{}, nil
	}

	tasks, err := decode(data)
	if err != nil {
		a.logger.Error("discard snapshot", "key", a.key, "err", err)
		return []model.Task{}, nil
	}
	return tasks, nil
}

func (a *Adapter) Save(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	return a.slot.Put(ctx, a.key, data)
}

func (a *Adapter) Subscribe(context.Context) (store.Subscription, error) {
	return store.NoSubscription{}, nil
}

func decode(data []byte) ([]model.Task, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCorruptSnapshot, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCorruptSnapshot, err)
	}

	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCorruptSnapshot, err)
	}

	seen := make(map[string]struct{}, len(tasks))
	for _, task := range tasks {
		if _, dup := seen[task.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", model.ErrCorruptSnapshot, task.ID)
		}
		seen[task.ID] = struct{}{}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}
