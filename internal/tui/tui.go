// Package tui is the interactive Bubble Tea front end over a todostate.Manager.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/todostate"
	"github.com/idilsaglam/todoflow/internal/ui"
)

const lookupTimeout = 5 * time.Second

type Options struct {
	Logger *log.Logger
}

// Run blocks until the user quits.
func Run(mgr *todostate.Manager, opts Options) error {
	states, cancel := mgr.SubscribeState()
	defer cancel()

	m := newModel(mgr, states, opts.Logger)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEditTitle
	modeEditDesc
	modeConfirmDelete
	modeDetail
)

type stateMsg struct{ state todostate.ViewState }

type streamClosedMsg struct{}

type detailMsg struct {
	item  model.Item
	found bool
	err   error
}

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ item model.Item }

func (i listItem) Title() string       { return i.item.Title }
func (i listItem) Description() string { return i.item.Description }
func (i listItem) FilterValue() string { return i.item.Title }

// single-line rendering
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)

	box := mutedStyle.Render(boxUnchecked)
	text := it.item.Title
	if it.item.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := box + " " + text
	if p := it.item.Priority.OrDefault(); p != model.PriorityNormal {
		line += " " + priorityStyle(p).Render("["+p.Label()+"]")
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

type modelTUI struct {
	mgr    *todostate.Manager
	states <-chan todostate.ViewState
	log    *log.Logger

	state todostate.ViewState
	list  list.Model

	mode     mode
	ti       textinput.Model
	inputErr string
	target   model.Item // item being edited or deleted
	detail   detailMsg

	// single-level undo of the last delete
	undo *model.Item

	width, height int
}

func newModel(mgr *todostate.Manager, states <-chan todostate.ViewState, logger *log.Logger) modelTUI {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	l := list.New(nil, itemDelegate{}, 76, 16)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")

	binds := []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "filter")),
		key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e/E", "edit")),
		key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	}
	l.AdditionalShortHelpKeys = func() []key.Binding { return binds[:4] }
	l.AdditionalFullHelpKeys = func() []key.Binding { return binds }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	return modelTUI{
		mgr:    mgr,
		states: states,
		log:    logger,
		state:  mgr.State(),
		list:   l,
		ti:     ti,
		width:  80,
		height: 24,
	}
}

// waitForState turns the next ViewState emission into a message.
func waitForState(ch <-chan todostate.ViewState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return stateMsg{state: s}
	}
}

func (m modelTUI) Init() tea.Cmd { return waitForState(m.states) }

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width-4, max(m.height-8, 3))
		return m, nil
	case stateMsg:
		cmd := m.setState(msg.state)
		return m, tea.Batch(cmd, waitForState(m.states))
	case streamClosedMsg:
		return m, tea.Quit
	case detailMsg:
		if msg.err != nil {
			m.log.Warn("lookup failed", "err", msg.err)
		}
		m.detail = msg
		m.mode = modeDetail
		return m, nil
	}

	switch m.mode {
	case modeAdd, modeEditTitle, modeEditDesc:
		return m.updateInput(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	case modeDetail:
		return m.updateDetail(msg)
	}
	return m.updateBrowse(msg)
}

func (m *modelTUI) setState(s todostate.ViewState) tea.Cmd {
	m.state = s
	var items []list.Item
	if s.IsSuccess() {
		items = make([]list.Item, 0, len(s.Data))
		for _, it := range s.Data {
			items = append(items, listItem{item: it})
		}
	}
	return m.list.SetItems(items)
}

func (m modelTUI) selected() (model.Item, bool) {
	if !m.state.IsSuccess() {
		return model.Item{}, false
	}
	li, ok := m.list.SelectedItem().(listItem)
	return li.item, ok
}

func (m modelTUI) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, isKey := msg.(tea.KeyMsg)
	if !isKey || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch k.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.list.FilterState() == list.Unfiltered {
			return m, tea.Quit
		}
	case "tab":
		m.mgr.SetFilter(m.mgr.Filter().Next())
		return m, nil
	case "shift+tab":
		f := m.mgr.Filter()
		m.mgr.SetFilter(model.Filters[(int(f)+len(model.Filters)-1)%len(model.Filters)])
		return m, nil
	case " ":
		if it, ok := m.selected(); ok {
			m.mgr.ToggleComplete(it.ID)
		}
		return m, nil
	case "a":
		m.startInput(modeAdd, "", "New item title...")
		return m, nil
	case "e":
		if it, ok := m.selected(); ok {
			m.target = it
			m.startInput(modeEditTitle, it.Title, "Edit item title...")
		}
		return m, nil
	case "E":
		if it, ok := m.selected(); ok {
			m.target = it
			m.startInput(modeEditDesc, it.Description, "Edit description...")
		}
		return m, nil
	case "p":
		if it, ok := m.selected(); ok {
			it.Priority = it.Priority.Next()
			m.mgr.UpdateTodo(it)
		}
		return m, nil
	case "d":
		if it, ok := m.selected(); ok {
			m.target = it
			m.mode = modeConfirmDelete
		}
		return m, nil
	case "u":
		if m.undo != nil {
			m.mgr.RestoreTodo(*m.undo)
			m.undo = nil
		}
		return m, nil
	case "enter":
		if it, ok := m.selected(); ok {
			return m, lookup(m.mgr, it.ID)
		}
		return m, nil
	case "r":
		if m.state.IsError() {
			m.mgr.Retry()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// lookup reads the item straight from the store for the detail view.
func lookup(mgr *todostate.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		it, found, err := mgr.GetTodoByID(ctx, id)
		return detailMsg{item: it, found: found, err: err}
	}
}

func (m *modelTUI) startInput(md mode, value, placeholder string) {
	m.mode = md
	m.inputErr = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.ti.Focus()
}

func (m *modelTUI) endInput() {
	m.mode = modeBrowse
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m modelTUI) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			return m.submitInput(), nil
		case "esc":
			m.endInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m modelTUI) submitInput() modelTUI {
	value := m.ti.Value()
	switch m.mode {
	case modeAdd:
		if !model.ValidTitle(value) {
			m.inputErr = "Title cannot be empty"
			return m
		}
		m.mgr.AddTodo(value, "", model.PriorityNormal)
	case modeEditTitle:
		if !model.ValidTitle(value) {
			m.inputErr = "Title cannot be empty"
			return m
		}
		it := m.target
		it.Title = strings.TrimSpace(value)
		m.mgr.UpdateTodo(it)
	case modeEditDesc:
		it := m.target
		it.Description = strings.TrimSpace(value)
		m.mgr.UpdateTodo(it)
	}
	m.endInput()
	return m
}

func (m modelTUI) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "y", "Y":
		m.mgr.DeleteTodo(m.target.ID)
		deleted := m.target
		m.undo = &deleted
		m.mode = modeBrowse
	case "n", "N", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m modelTUI) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc", "enter", "q", "backspace":
			m.mode = modeBrowse
		}
	}
	return m, nil
}

func (m modelTUI) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.filterBar())
	b.WriteString("\n\n")

	chrome := 8
	if m.mode != modeBrowse {
		chrome += 4
	}
	m.list.SetSize(m.width-4, max(m.height-chrome, 3))

	switch m.mode {
	case modeDetail:
		b.WriteString(m.detailView())
	default:
		b.WriteString(m.body())
	}

	switch m.mode {
	case modeAdd, modeEditTitle, modeEditDesc:
		title := map[mode]string{
			modeAdd:       "Add new item",
			modeEditTitle: "Edit title",
			modeEditDesc:  "Edit description",
		}[m.mode]
		if m.inputErr != "" {
			title += " · " + errorStyle.Render(m.inputErr)
		}
		b.WriteString("\n" + inputBox(title+"\n"+m.ti.View()))
	case modeConfirmDelete:
		b.WriteString("\n" + inputBox(fmt.Sprintf("Delete %q? %s", m.target.Title, helpStyle.Render("(y/n)"))))
	}
	return panelString(b.String())
}

func (m modelTUI) header() string {
	st := m.mgr.Stats()
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d  %s",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), st.Completed,
		pendingStyle.Render("•"), st.Active,
		accentStyle.Render("Total"), st.All,
		mutedStyle.Render(fmt.Sprintf("%d%% done", st.Rate())),
	)
}

func (m modelTUI) filterBar() string {
	st := m.mgr.Stats()
	current := m.mgr.Filter()
	tabs := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		label := fmt.Sprintf("%s %d", filterLabel(f), st.Count(f))
		if f == current {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return strings.Join(tabs, mutedStyle.Render("|"))
}

func filterLabel(f model.Filter) string {
	switch f {
	case model.FilterActive:
		return "Active"
	case model.FilterCompleted:
		return "Completed"
	}
	return "All"
}

func (m modelTUI) body() string {
	switch {
	case m.state.IsLoading():
		return mutedStyle.Render("Loading…")
	case m.state.IsError():
		return errorStyle.Render(m.state.ErrorText()) + "\n" + helpStyle.Render("press r to retry, q to quit")
	case m.state.IsEmpty():
		title, hint := ui.EmptyMessage(m.mgr.Filter())
		return titleStyle.Render(title) + "\n" + mutedStyle.Render(hint) + "\n\n" +
			helpStyle.Render("a add • tab filter • q quit")
	}
	return m.list.View()
}

func (m modelTUI) detailView() string {
	d := m.detail
	switch {
	case d.err != nil:
		return errorStyle.Render("lookup failed: "+d.err.Error()) + "\n" + helpStyle.Render("esc back")
	case !d.found:
		return mutedStyle.Render("This to-do no longer exists.") + "\n" + helpStyle.Render("esc back")
	}
	it := d.item
	status := pendingStyle.Render("pending")
	if it.Completed {
		status = successStyle.Render("done")
	}
	desc := it.Description
	if desc == "" {
		desc = mutedStyle.Render("(no description)")
	}
	lines := []string{
		titleStyle.Render(it.Title),
		"",
		desc,
		"",
		mutedStyle.Render("status   ") + status,
		mutedStyle.Render("priority ") + priorityStyle(it.Priority).Render(it.Priority.OrDefault().Label()),
		mutedStyle.Render("created  ") + it.Created().Format("2006-01-02 15:04"),
		"",
		helpStyle.Render("esc back"),
	}
	return strings.Join(lines, "\n")
}
