package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/notify"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

const (
	viewHeader    = "header"
	viewFooter    = "footer"
	viewPending   = "pending"
	viewDone      = "done"
	viewDetail    = "detail"
	viewReminders = "reminders"
	viewSearch    = "search"
	viewForm      = "form"
	viewHelp      = "help"

	maxReminders = 20
)

type UI struct {
	ctx   context.Context
	store *store.Store
	gui   *gocui.Gui
	now   func() time.Time

	filter model.Filter
	stats  model.Stats

	pending   []model.Task
	done      []model.Task
	reminders []notify.Reminder

	selectedPending   int
	selectedDone      int
	selectedReminders int
	focus             string

	// dispatch runs store work and hands the result to done on the UI
	// goroutine.
	dispatch func(work func() error, done func(error))

	form         *formState
	formEditor   *formEditor
	searchActive bool
	helpActive   bool
	status       string
}

type formState struct {
	task   *model.Task
	fields []formField
	index  int
	saving bool
}

type formEditor struct {
	ui *UI
}

// Run blocks until the user quits. Store changes made elsewhere (realtime
// reloads, the web API) and reminders from hub are redrawn as they arrive.
func Run(ctx context.Context, st *store.Store, hub *notify.Hub) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(ctx, st)
	ui.gui = gui
	if st.Remote() {
		ui.dispatch = backgroundDispatch(func(fn func()) {
			gui.Update(func(*gocui.Gui) error {
				fn()
				return nil
			})
		})
	}
	gui.Mouse = true
	ui.formEditor = &formEditor{ui: ui}

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	ui.loadTasks()

	st.OnChange(func([]model.Task) {
		gui.Update(func(*gocui.Gui) error {
			ui.loadTasks()
			return nil
		})
	})
	defer st.OnChange(nil)

	if hub != nil {
		reminders, cancel := hub.Subscribe()
		defer cancel()
		go func() {
			for reminder := range reminders {
				reminder := reminder
				gui.Update(func(*gocui.Gui) error {
					ui.pushReminder(reminder)
					return nil
				})
			}
		}()
	}

	if err := gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func newUI(ctx context.Context, st *store.Store) *UI {
	return &UI{
		ctx:      ctx,
		store:    st,
		now:      time.Now,
		focus:    viewPending,
		filter:   model.Filter{Status: model.StatusAll},
		dispatch: inlineDispatch,
	}
}

// inlineDispatch suits the local store, whose writes are quick.
func inlineDispatch(work func() error, done func(error)) {
	done(work())
}

// backgroundDispatch keeps network round trips off the event loop; post
// must run its argument on the UI goroutine.
func backgroundDispatch(post func(func())) func(func() error, func(error)) {
	return func(work func() error, done func(error)) {
		go func() {
			err := work()
			post(func() { done(err) })
		}()
	}
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	global := []struct {
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{gocui.KeyCtrlC, u.quit},
		{'q', u.quit},
		{'r', u.reload},
		{'g', u.clearFilters},
		{'a', u.addTask},
		{'e', u.editTask},
		{'d', u.deleteTask},
		{'x', u.toggleDone},
		{'/', u.startSearch},
		{'f', u.cycleStatus},
		{'p', u.cyclePriority},
		{'?', u.toggleHelp},
		{gocui.KeyTab, u.switchFocus},
		{'1', u.focusPending},
		{'2', u.focusDone},
		{'3', u.focusDetail},
		{'4', u.focusReminders},
	}
	for _, binding := range global {
		if err := gui.SetKeybinding("", binding.key, gocui.ModNone, binding.handler); err != nil {
			return err
		}
	}

	for _, name := range []string{viewPending, viewDone, viewReminders} {
		if err := gui.SetKeybinding(name, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'j', gocui.ModNone, u.moveDown); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, 'k', gocui.ModNone, u.moveUp); err != nil {
			return err
		}
	}
	if err := gui.SetKeybinding(viewPending, gocui.KeyEnter, gocui.ModNone, u.toggleDone); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewDone, gocui.KeyEnter, gocui.ModNone, u.toggleDone); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEnter, gocui.ModNone, u.submitSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEsc, gocui.ModNone, u.cancelSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}

	for _, name := range []string{viewPending, viewDone, viewReminders} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	layout := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := layout.leftWidth - 1
	rightX0 := min(leftX1+1, maxX-1)
	rightX1 := maxX - 1

	pendingY1 := bodyTop + layout.pendingHeight - 1
	detailY1 := bodyTop + layout.detailHeight - 1

	pendingView, err := gui.SetView(viewPending, 0, bodyTop, leftX1, pendingY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pendingView.Title = "1 Pending"
		pendingView.TitleColor = gocui.ColorRed
	}
	applyViewStyle(pendingView, u.focus == viewPending, true)
	u.renderTaskList(pendingView, u.pending, u.selectedPending, u.focus == viewPending)

	doneView, err := gui.SetView(viewDone, 0, pendingY1+1, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		doneView.Title = "2 Done"
		doneView.TitleColor = gocui.ColorGreen
	}
	applyViewStyle(doneView, u.focus == viewDone, true)
	u.renderTaskList(doneView, u.done, u.selectedDone, u.focus == viewDone)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "3 Task"
	}
	applyViewStyle(detailView, u.focus == viewDetail, false)
	detailView.Wrap = true
	u.renderDetail(detailView)

	remindersView, err := gui.SetView(viewReminders, rightX0, detailY1+1, rightX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		remindersView.Title = "4 Reminders"
		remindersView.TitleColor = gocui.ColorYellow
	}
	applyViewStyle(remindersView, u.focus == viewReminders, true)
	u.renderReminders(remindersView, u.focus == viewReminders)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.searchActive || u.form != nil
	return nil
}

type layout struct {
	leftWidth     int
	pendingHeight int
	detailHeight  int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 2
	if leftWidth < 30 {
		leftWidth = min(30, safeWidth)
	}

	pendingHeight := max(int(float64(safeHeight)*0.6), 4)
	detailHeight := max(int(float64(safeHeight)*0.55), 5)

	return layout{
		leftWidth:     leftWidth,
		pendingHeight: min(pendingHeight, safeHeight-3),
		detailHeight:  min(detailHeight, safeHeight-3),
	}
}

// loadTasks re-reads the store through the active filter and clamps the
// selections.
func (u *UI) loadTasks() {
	u.pending, u.done = splitByCompletion(u.store.List(u.filter))
	u.stats = u.store.Stats()

	if u.selectedPending >= len(u.pending) {
		u.selectedPending = max(len(u.pending)-1, 0)
	}
	if u.selectedDone >= len(u.done) {
		u.selectedDone = max(len(u.done)-1, 0)
	}
}

func (u *UI) pushReminder(reminder notify.Reminder) {
	u.reminders = append([]notify.Reminder{reminder}, u.reminders...)
	if len(u.reminders) > maxReminders {
		u.reminders = u.reminders[:maxReminders]
	}
	u.status = fmt.Sprintf("%s: %s", reminder.Title, reminder.Body)
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	query := strings.TrimSpace(u.filter.Query)
	if query == "" {
		query = "type / to search"
	}

	status := u.filter.Status
	if status == "" {
		status = model.StatusAll
	}
	priority := string(u.filter.Priority)
	if priority == "" {
		priority = "all"
	}

	fmt.Fprintf(view, "Search: %s | Status: %s | Priority: %s | %s", query, status, priority, u.stats)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a add | e edit | d delete | x/enter toggle done | / search | f status | p priority | g clear")
	fmt.Fprintln(view, "tab cycle | 1-4 panes | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTaskList(view *gocui.View, tasks []model.Task, selected int, focused bool) {
	view.Clear()
	now := u.now()
	for i, task := range tasks {
		prefix := " "
		if i == selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, now))
	}
	if focused {
		view.SetCursor(0, min(selected, len(tasks)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedTask()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}
	fmt.Fprint(view, formatTaskDetail(*selected))
}

func (u *UI) renderReminders(view *gocui.View, focused bool) {
	view.Clear()
	for index, reminder := range u.reminders {
		prefix := " "
		if index == u.selectedReminders && focused {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s | %s\n", prefix, formatDue(reminder.Task.DueDate), reminder.Body)
	}
	if focused {
		view.SetCursor(0, min(u.selectedReminders, len(u.reminders)-1))
	}
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewPending:
		u.selectedPending = max(min(row, len(u.pending)-1), 0)
	case viewDone:
		u.selectedDone = max(min(row, len(u.done)-1), 0)
	case viewReminders:
		u.selectedReminders = max(min(row, len(u.reminders)-1), 0)
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewPending, viewDone, viewDetail, viewReminders} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollDown(1)
	}
	return nil
}

func (u *UI) selectedTask() *model.Task {
	if u.focus == viewDone {
		if u.selectedDone >= 0 && u.selectedDone < len(u.done) {
			return &u.done[u.selectedDone]
		}
		return nil
	}
	if u.selectedPending >= 0 && u.selectedPending < len(u.pending) {
		return &u.pending[u.selectedPending]
	}
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewPending:
		u.focus = viewDone
	case viewDone:
		u.focus = viewReminders
	default:
		u.focus = viewPending
	}
	if gui != nil {
		_, _ = gui.SetCurrentView(u.focus)
	}
	return nil
}

func (u *UI) focusPending(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewPending)
}

func (u *UI) focusDone(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDone)
}

func (u *UI) focusDetail(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDetail)
}

func (u *UI) focusReminders(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewReminders)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return nil
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewPending:
		if u.selectedPending < len(u.pending)-1 {
			u.selectedPending++
		}
	case viewDone:
		if u.selectedDone < len(u.done)-1 {
			u.selectedDone++
		}
	case viewReminders:
		if u.selectedReminders < len(u.reminders)-1 {
			u.selectedReminders++
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewPending:
		if u.selectedPending > 0 {
			u.selectedPending--
		}
	case viewDone:
		if u.selectedDone > 0 {
			u.selectedDone--
		}
	case viewReminders:
		if u.selectedReminders > 0 {
			u.selectedReminders--
		}
	}
	return nil
}

// reload asks the persistence layer again; for a local store it only
// redraws.
func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = "reloading..."
	u.dispatch(func() error {
		return u.store.Reload(u.ctx)
	}, u.finishWrite)
	return nil
}

// finishWrite reports the outcome of a store call and redraws the lists.
func (u *UI) finishWrite(err error) {
	u.status = ""
	if err != nil {
		u.status = err.Error()
	}
	u.loadTasks()
}

func (u *UI) clearFilters(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter = model.Filter{Status: model.StatusAll}
	u.loadTasks()
	return nil
}

func (u *UI) cycleStatus(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter.Status = cycleStatusFilter(u.filter.Status, 1)
	u.loadTasks()
	return nil
}

func (u *UI) cyclePriority(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter.Priority = cyclePriorityFilter(u.filter.Priority, 1)
	u.loadTasks()
	return nil
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.filter.Query)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	u.applySearch(view.Buffer())
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) applySearch(query string) {
	u.filter.Query = strings.TrimSpace(query)
	u.searchActive = false
	u.status = ""
	u.loadTasks()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 16
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{fields: buildFormFields(nil)}
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	task := *selected
	u.form = &formState{task: &task, fields: buildFormFields(&task)}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(8, max(6, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = "New Task"
	if u.form.task != nil {
		view.Title = "Edit Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(_ *gocui.Gui, _ *gocui.View) error {
	u.saveForm()
	return nil
}

// saveForm sends the open form to the store. Input errors keep the form
// open; so does a failed write, with the error in the status line. While
// a write is in flight further submits are ignored.
func (u *UI) saveForm() {
	if u.form == nil || u.form.saving {
		return
	}

	draft, err := parseFormFields(u.form.fields)
	if err == nil {
		draft, err = draft.Normalize()
	}
	if err != nil {
		u.status = err.Error()
		return
	}

	form := u.form
	form.saving = true
	u.status = "saving..."
	u.dispatch(func() error {
		if form.task == nil {
			_, err := u.store.Add(u.ctx, draft)
			return err
		}
		return u.store.Edit(u.ctx, model.Task{
			ID:          form.task.ID,
			Title:       draft.Title,
			Description: draft.Description,
			Completed:   form.task.Completed,
			DueDate:     draft.DueDate,
			Priority:    draft.Priority,
		})
	}, func(err error) {
		form.saving = false
		var writeErr *model.WriteError
		if err != nil && (!errors.As(err, &writeErr) || writeErr.Op != "save") {
			u.status = err.Error()
			return
		}
		// A failed snapshot save still leaves the task in memory.
		u.finishWrite(err)
		if u.form == form {
			u.closeForm()
		}
	})
}

func (u *UI) closeForm() {
	u.form = nil
	if u.gui != nil {
		_ = u.gui.DeleteView(viewForm)
		_, _ = u.gui.SetCurrentView(u.focus)
	}
}

func (u *UI) cancelForm(_ *gocui.Gui, _ *gocui.View) error {
	if u.form != nil && u.form.saving {
		return nil
	}
	u.closeForm()
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label+": ")) + len([]rune(current.Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	editFormField(&ui.form.fields[ui.form.index], key, ch, mod)
	ui.renderForm(view)
	return true
}

func editFormField(field *formField, key gocui.Key, ch rune, mod gocui.Modifier) {
	if isPriorityField(field.Label) {
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cyclePriority(field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cyclePriority(field.Value, -1)
		}
		return
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	id := selected.ID
	u.dispatch(func() error {
		return u.store.Delete(u.ctx, id)
	}, u.finishWrite)
	return nil
}

func (u *UI) toggleDone(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	id := selected.ID
	u.dispatch(func() error {
		return u.store.ToggleComplete(u.ctx, id)
	}, u.finishWrite)
	return nil
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes (pending/done/reminders)",
		"  1 Pending | 2 Done | 3 Task | 4 Reminders",
		"  j/k or arrows move selection",
		"  mouse click to focus/select, wheel scrolls",
		"",
		"Actions:",
		"  a add task | e edit task | d delete task",
		"  x or enter toggle done",
		"  enter save (form) | tab next field | esc cancel",
		"  space/left/right cycle priority (form)",
		"",
		"Search/Filter:",
		"  / search | f status | p priority | g clear filters",
		"",
		"Other:",
		"  r reload | ? help | esc close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
