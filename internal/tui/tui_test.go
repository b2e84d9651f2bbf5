package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazytodo/internal/db"
	"github.com/Joseda-hg/lazytodo/internal/local"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/notify"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

func TestToggleDoneMovesTaskBetweenPanes(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := st.Add(context.Background(), model.Draft{Title: "Buy milk"}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	ui := newUI(context.Background(), st)
	ui.loadTasks()
	if len(ui.pending) != 1 || len(ui.done) != 0 {
		t.Fatalf("expected 1 pending task, got %d pending %d done", len(ui.pending), len(ui.done))
	}

	if err := ui.toggleDone(nil, nil); err != nil {
		t.Fatalf("toggle done: %v", err)
	}
	if len(ui.pending) != 0 || len(ui.done) != 1 {
		t.Fatalf("expected task to move to done, got %d pending %d done", len(ui.pending), len(ui.done))
	}
	if got := ui.stats.String(); got != "1/1 Done" {
		t.Fatalf("expected 1/1 Done, got %q", got)
	}

	ui.focus = viewDone
	if err := ui.toggleDone(nil, nil); err != nil {
		t.Fatalf("toggle done: %v", err)
	}
	if len(ui.pending) != 1 {
		t.Fatalf("expected task back in pending, got %d", len(ui.pending))
	}
}

func TestDeleteTaskClampsSelection(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	for _, title := range []string{"First", "Second"} {
		if _, err := st.Add(context.Background(), model.Draft{Title: title}); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}

	ui := newUI(context.Background(), st)
	ui.loadTasks()
	ui.selectedPending = 1

	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if len(ui.pending) != 1 || ui.pending[0].Title != "First" {
		t.Fatalf("expected only First to remain, got %+v", ui.pending)
	}
	if ui.selectedPending != 0 {
		t.Fatalf("expected selection clamped to 0, got %d", ui.selectedPending)
	}
	if len(st.Snapshot()) != 1 {
		t.Fatalf("expected store to hold 1 task, got %d", len(st.Snapshot()))
	}
}

func TestSaveFormAddsTask(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	ui := newUI(context.Background(), st)
	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	ui.form.fields[fieldTitle].Value = "Dentist"
	ui.form.fields[fieldDue].Value = "2026-03-01 09:30"
	ui.form.fields[fieldPriority].Value = cyclePriority(ui.form.fields[fieldPriority].Value, 1)

	ui.saveForm()
	if ui.form != nil {
		t.Fatalf("expected form to close, status %q", ui.status)
	}

	tasks := st.Snapshot()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Priority != model.PriorityHigh {
		t.Fatalf("expected high priority, got %q", tasks[0].Priority)
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	if tasks[0].DueDate == nil || !tasks[0].DueDate.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, tasks[0].DueDate)
	}
}

func TestSaveFormRejectsInvalidInput(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	ui := newUI(context.Background(), st)
	_ = ui.addTask(nil, nil)
	ui.form.fields[fieldTitle].Value = "   "

	ui.saveForm()
	if ui.form == nil || ui.status == "" {
		t.Fatalf("expected form to stay open with an error, status %q", ui.status)
	}

	ui.form.fields[fieldTitle].Value = "Report"
	ui.form.fields[fieldDue].Value = "tomorrow"
	ui.saveForm()
	if ui.form == nil {
		t.Fatalf("expected bad due date to keep the form open")
	}
	if len(st.Snapshot()) != 0 {
		t.Fatalf("expected no tasks, got %d", len(st.Snapshot()))
	}
}

func TestSaveFormEditKeepsIdentity(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	created, err := st.Add(context.Background(), model.Draft{Title: "Draft report", Priority: model.PriorityLow})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := st.ToggleComplete(context.Background(), created.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	ui := newUI(context.Background(), st)
	ui.focus = viewDone
	ui.loadTasks()
	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit task: %v", err)
	}
	if ui.form == nil || ui.form.fields[fieldTitle].Value != "Draft report" {
		t.Fatalf("expected form prefilled with task")
	}

	ui.form.fields[fieldTitle].Value = "Final report"
	ui.form.fields[fieldDue].Value = ""
	ui.saveForm()
	if ui.form != nil {
		t.Fatalf("expected edit to save, status %q", ui.status)
	}

	updated, ok := st.Get(created.ID)
	if !ok {
		t.Fatalf("expected task %s to remain", created.ID)
	}
	if updated.Title != "Final report" || !updated.Completed {
		t.Fatalf("unexpected task after edit: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created at to be kept")
	}
}

func TestFilterCyclingAndSearch(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	ctx := context.Background()
	drafts := []model.Draft{
		{Title: "Buy milk", Priority: model.PriorityLow},
		{Title: "Write report", Description: "quarterly", Priority: model.PriorityHigh},
	}
	for _, draft := range drafts {
		if _, err := st.Add(ctx, draft); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}

	ui := newUI(ctx, st)
	ui.loadTasks()

	_ = ui.cyclePriority(nil, nil)
	if ui.filter.Priority != model.PriorityLow || len(ui.pending) != 1 {
		t.Fatalf("expected low filter with 1 task, got %q %d", ui.filter.Priority, len(ui.pending))
	}

	_ = ui.cycleStatus(nil, nil)
	_ = ui.cycleStatus(nil, nil)
	if ui.filter.Status != model.StatusCompleted || len(ui.pending) != 0 {
		t.Fatalf("expected completed filter to hide pending tasks")
	}

	_ = ui.clearFilters(nil, nil)
	ui.applySearch("  QUARTERLY ")
	if len(ui.pending) != 1 || ui.pending[0].Title != "Write report" {
		t.Fatalf("expected search to match description, got %+v", ui.pending)
	}
	if ui.searchActive {
		t.Fatalf("expected search to close")
	}
}

func TestInputBlocksListActions(t *testing.T) {
	st, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := st.Add(context.Background(), model.Draft{Title: "Stay put"}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	ui := newUI(context.Background(), st)
	ui.loadTasks()
	_ = ui.startSearch(nil, nil)

	if err := ui.deleteTask(nil, nil); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if len(st.Snapshot()) != 1 {
		t.Fatalf("expected delete to be ignored while searching")
	}
}

func TestPushReminderKeepsNewestFirst(t *testing.T) {
	ui := newUI(context.Background(), nil)
	for i := 0; i < maxReminders+5; i++ {
		ui.pushReminder(notify.NewReminder(model.Task{ID: string(rune('a' + i)), Title: "Task"}))
	}
	if len(ui.reminders) != maxReminders {
		t.Fatalf("expected %d reminders, got %d", maxReminders, len(ui.reminders))
	}
	if ui.reminders[0].Task.ID != string(rune('a'+maxReminders+4)) {
		t.Fatalf("expected newest reminder first, got %s", ui.reminders[0].Task.ID)
	}
	if ui.status != "Task Reminder: Time to do: Task" {
		t.Fatalf("unexpected status %q", ui.status)
	}
}

func TestFormatTaskSummaryMarksOverdue(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	due := now.Add(-time.Hour)
	task := model.Task{Title: "Pay rent", Priority: model.PriorityHigh, DueDate: &due}

	got := formatTaskSummary(task, now)
	if got != "!!! Pay rent | 2026-05-01 11:00 overdue" {
		t.Fatalf("unexpected summary %q", got)
	}

	task.Completed = true
	if got := formatTaskSummary(task, now); got != "!!! Pay rent | 2026-05-01 11:00" {
		t.Fatalf("unexpected summary for completed task %q", got)
	}
}

func TestEditFormFieldCyclesPriority(t *testing.T) {
	field := formField{Label: "Priority (space/←→)", Value: "low"}
	editFormField(&field, gocui.KeySpace, 0, 0)
	if field.Value != "medium" {
		t.Fatalf("expected medium, got %q", field.Value)
	}

	title := formField{Label: "Title", Value: "Bu"}
	editFormField(&title, 0, 'y', 0)
	if title.Value != "Buy" {
		t.Fatalf("expected Buy, got %q", title.Value)
	}
}

func TestRemoteWritesLeaveEventLoopFree(t *testing.T) {
	records := &slowRecords{
		rows:    []model.Task{{ID: "r1", Title: "Call mom", Priority: model.PriorityMedium}},
		release: make(chan struct{}),
	}
	st := store.NewRemote(records)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	posted := make(chan func(), 4)
	ui := newUI(context.Background(), st)
	ui.dispatch = backgroundDispatch(func(fn func()) { posted <- fn })
	ui.loadTasks()

	if err := ui.toggleDone(nil, nil); err != nil {
		t.Fatalf("toggle done: %v", err)
	}
	if len(ui.pending) != 1 {
		t.Fatalf("expected toggle to wait for the server, got %d pending", len(ui.pending))
	}

	records.release <- struct{}{}
	(<-posted)()
	if len(ui.pending) != 0 || len(ui.done) != 1 {
		t.Fatalf("expected task done after the write, got %d pending %d done", len(ui.pending), len(ui.done))
	}

	_ = ui.addTask(nil, nil)
	ui.form.fields[fieldTitle].Value = "Buy milk"
	ui.saveForm()
	ui.saveForm()
	_ = ui.cancelForm(nil, nil)
	if ui.form == nil || !ui.form.saving {
		t.Fatalf("expected form to stay open while saving")
	}

	records.release <- struct{}{}
	(<-posted)()
	if ui.form != nil {
		t.Fatalf("expected form to close after the write, status %q", ui.status)
	}
	if got := records.writeCount(); got != 2 {
		t.Fatalf("expected 2 writes, got %d", got)
	}
	if len(ui.pending) != 1 || ui.pending[0].Title != "Buy milk" {
		t.Fatalf("expected new task pending, got %+v", ui.pending)
	}
}

// slowRecords holds every write until release receives.
type slowRecords struct {
	mu      sync.Mutex
	rows    []model.Task
	writes  int
	release chan struct{}
}

func (r *slowRecords) Load(context.Context) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Task(nil), r.rows...), nil
}

func (r *slowRecords) Subscribe(context.Context) (store.Subscription, error) {
	return store.NoSubscription{}, nil
}

func (r *slowRecords) Create(_ context.Context, task model.Task) error {
	<-r.release
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	r.rows = append([]model.Task{task}, r.rows...)
	return nil
}

func (r *slowRecords) Update(_ context.Context, task model.Task) error {
	<-r.release
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	for i := range r.rows {
		if r.rows[i].ID == task.ID {
			r.rows[i] = task
		}
	}
	return nil
}

func (r *slowRecords) Delete(_ context.Context, id string) error {
	<-r.release
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *slowRecords) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func newTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	dbConn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	st := store.NewLocal(local.New(db.NewKV(dbConn), local.DefaultKey, nil))
	return st, func() {
		_ = dbConn.Close()
	}
}
