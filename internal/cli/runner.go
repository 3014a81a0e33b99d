package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"

	"github.com/idilsaglam/todoflow/internal/config"
	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store"
	"github.com/idilsaglam/todoflow/internal/todostate"
	"github.com/idilsaglam/todoflow/internal/tui"
	"github.com/idilsaglam/todoflow/internal/ui"
)

// Options carry the resolved root configuration.
type Options struct {
	Config *config.Config
	Logger *log.Logger
	// OpenStore overrides config.OpenStore (tests).
	OpenStore func(*config.Config) (store.Store, error)
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0
	case "ls", "add", "show", "edit", "done", "rm", "tui":
	default:
		ui.Fail("unknown subcommand: " + cmd)
		fmt.Fprintln(ui.Err)
		PrintHelp()
		return 2
	}

	s, err := openSession(opt)
	if err != nil {
		ui.Fail("open store: " + err.Error())
		return 1
	}
	defer s.close()

	switch cmd {
	case "ls":
		return s.doList(a)
	case "add":
		return s.doAdd(a)
	case "show":
		return s.doShow(a)
	case "edit":
		return s.doEdit(a)
	case "done":
		return s.doToggle(a)
	case "rm":
		return s.doRemove(a)
	case "tui":
		if err := tui.Run(s.mgr, tui.Options{Logger: s.log}); err != nil {
			ui.Fail("tui: " + err.Error())
			return 1
		}
		return 0
	}
	return 2
}

func PrintHelp() {
	fmt.Fprintf(ui.Out, `todo - a tiny to-do list

Usage:
  todo [root flags] <subcommand> [args]

Subcommands:
  add [-d desc] [-p prio] <title...>   Add a new item (priority: low, normal, high, quick)
  ls [-f filter]                       List items (filter: all, active, completed)
  show <ref>                           Show one item in full
  edit <ref> [-t title] [-d desc] [-p prio]
                                       Change an item
  done <ref>                           Toggle done for an item
  rm <ref>                             Remove an item
  tui                                  Interactive list

<ref> is the 1-based index shown by "ls" or an id (prefix).

Root flags:
  -backend sqlite|json|memory   -path FILE   -theme classic|neon|mono
  -group   -watch   -log-level LEVEL   -log-file FILE

Examples:
  todo add "Buy milk"
  todo add -p high -d "before friday" Renew passport
  todo ls -f active
  todo done 2
  todo rm 3
`)
}

// session is one CLI invocation's store + state manager.
type session struct {
	cfg   *config.Config
	log   *log.Logger
	store store.Store
	mgr   *todostate.Manager

	mu       sync.Mutex
	writeErr error
}

func openSession(opt Options) (*session, error) {
	cfg := opt.Config
	if cfg == nil {
		return nil, errors.New("no configuration")
	}
	open := opt.OpenStore
	if open == nil {
		open = config.OpenStore
	}
	st, err := open(cfg)
	if err != nil {
		return nil, err
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &session{cfg: cfg, log: logger, store: st}
	s.mgr = todostate.New(st, todostate.Options{
		Logger: logger,
		OnCommandError: func(op string, err error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.writeErr == nil {
				s.writeErr = fmt.Errorf("%s: %w", op, err)
			}
		},
	})
	return s, nil
}

func (s *session) close() {
	s.mgr.Close()
	if err := s.store.Close(); err != nil {
		s.log.Warn("closing store", "err", err)
	}
}

// settle waits for the first state after Loading.
func (s *session) settle() todostate.ViewState {
	states, cancel := s.mgr.SubscribeState()
	defer cancel()
	last := s.mgr.State()
	for st := range states {
		last = st
		if !st.IsLoading() {
			break
		}
	}
	return last
}

// flush waits for queued commands and reports a failed write.
func (s *session) flush() error {
	s.mgr.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErr
}

// all returns every item in ALL-view order, which is what indexes refer to.
func (s *session) all() ([]model.Item, error) {
	st := s.settle()
	switch {
	case st.IsError():
		return nil, fmt.Errorf("%s: %w", st.ErrorText(), st.Err)
	case st.IsSuccess():
		return st.Data, nil
	}
	return nil, nil
}

// resolve turns a 1-based index or an id (or unique id prefix) into an item.
func (s *session) resolve(ref string) (model.Item, error) {
	items, err := s.all()
	if err != nil {
		return model.Item{}, err
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return model.Item{}, fmt.Errorf("index out of range: have %d, got %d", len(items), n)
		}
		return items[n-1], nil
	}
	it, found, err := s.mgr.GetTodoByID(context.Background(), ref)
	if err != nil {
		return model.Item{}, err
	}
	if found {
		return it, nil
	}
	var matches []model.Item
	for _, it := range items {
		if strings.HasPrefix(it.ID, ref) {
			matches = append(matches, it)
		}
	}
	switch len(matches) {
	case 0:
		return model.Item{}, fmt.Errorf("no item %q", ref)
	case 1:
		return matches[0], nil
	}
	return model.Item{}, fmt.Errorf("id prefix %q is ambiguous (%d matches)", ref, len(matches))
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(ui.Err)
	return fs
}

// -------------- subcommand impls ----------------

func (s *session) doList(args []string) int {
	fs := newFlagSet("ls")
	filterName := fs.String("f", "all", "filter: all, active or completed")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	f, err := model.ParseFilter(*filterName)
	if err != nil {
		ui.Fail("ls: " + err.Error())
		return 2
	}

	all, err := s.all()
	if err != nil {
		ui.Fail("load: " + err.Error())
		return 1
	}
	index := make(map[string]int, len(all))
	for i, it := range all {
		index[it.ID] = i + 1
	}

	s.mgr.SetFilter(f)
	view := s.mgr.State()
	stats := s.mgr.Stats()

	t := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), stats.Completed,
		ui.C(t.Pending, t.SymUnchecked), stats.Active,
		ui.C(t.Accent, "Total"), stats.All,
	)
	if f != model.FilterAll {
		header += "  " + ui.C(t.Muted, "("+f.String()+")")
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(stats.Completed, stats.All, 28)))
	lines = append(lines, "")

	switch {
	case view.IsSuccess() && s.cfg.Group:
		lines = append(lines, groupLines(view.Data, index)...)
	case view.IsSuccess():
		lines = append(lines, flatLines(view.Data, index)...)
	default:
		title, hint := ui.EmptyMessage(f)
		lines = append(lines, ui.C(t.Muted, title), ui.C(t.Muted, hint))
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

func (s *session) doAdd(args []string) int {
	fs := newFlagSet("add")
	desc := fs.String("d", "", "description")
	prio := fs.String("p", "normal", "priority: low, normal, high or quick")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		ui.Fail("usage: todo add [-d desc] [-p prio] <title...>")
		return 2
	}
	p, err := model.ParsePriority(*prio)
	if err != nil {
		ui.Fail("add: " + err.Error())
		return 2
	}
	id := s.mgr.AddTodo(title, *desc, p)
	if err := s.flush(); err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	ui.OK("added " + shortID(id))
	return 0
}

func (s *session) doShow(args []string) int {
	if len(args) != 1 {
		ui.Fail("usage: todo show <ref>")
		return 2
	}
	it, err := s.resolve(args[0])
	if err != nil {
		return s.refFailed(err)
	}
	t := ui.Current()
	status := ui.C(t.Pending, "pending")
	if it.Completed {
		status = ui.C(t.Success, "done")
	}
	desc := it.Description
	if desc == "" {
		desc = ui.C(t.Muted, "(no description)")
	}
	ui.Panel([]string{
		ui.C(t.Title, it.Title),
		"",
		desc,
		"",
		ui.C(t.Muted, "status   ") + status,
		ui.C(t.Muted, "priority ") + ui.C(ui.PriorityColor(it.Priority), it.Priority.Label()),
		ui.C(t.Muted, "created  ") + it.Created().Format("2006-01-02 15:04"),
		ui.C(t.Muted, "id       ") + it.ID,
	})
	return 0
}

func (s *session) doEdit(args []string) int {
	if len(args) == 0 {
		ui.Fail("usage: todo edit <ref> [-t title] [-d desc] [-p prio]")
		return 2
	}
	ref := args[0]
	fs := newFlagSet("edit")
	title := fs.String("t", "", "new title")
	desc := fs.String("d", "", "new description")
	prio := fs.String("p", "", "new priority")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if len(set) == 0 {
		ui.Fail("edit: nothing to change (use -t, -d or -p)")
		return 2
	}

	it, err := s.resolve(ref)
	if err != nil {
		return s.refFailed(err)
	}
	if set["t"] {
		if !model.ValidTitle(*title) {
			ui.Fail("edit: empty title")
			return 2
		}
		it.Title = strings.TrimSpace(*title)
	}
	if set["d"] {
		it.Description = *desc
	}
	if set["p"] {
		p, err := model.ParsePriority(*prio)
		if err != nil {
			ui.Fail("edit: " + err.Error())
			return 2
		}
		it.Priority = p
	}
	s.mgr.UpdateTodo(it)
	if err := s.flush(); err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	ui.OK("updated")
	return 0
}

func (s *session) doToggle(args []string) int {
	if len(args) != 1 {
		ui.Fail("usage: todo done <ref>")
		return 2
	}
	it, err := s.resolve(args[0])
	if err != nil {
		return s.refFailed(err)
	}
	s.mgr.ToggleComplete(it.ID)
	if err := s.flush(); err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	ui.OK("toggled")
	return 0
}

func (s *session) doRemove(args []string) int {
	if len(args) != 1 {
		ui.Fail("usage: todo rm <ref>")
		return 2
	}
	it, err := s.resolve(args[0])
	if err != nil {
		return s.refFailed(err)
	}
	s.mgr.DeleteTodo(it.ID)
	if err := s.flush(); err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	ui.OK("removed")
	return 0
}

func (s *session) refFailed(err error) int {
	ui.Fail(err.Error())
	ui.Hint("Hint: run `todo ls` to see valid indexes")
	return 2
}

// -------------- rendering helpers --------------

// maxTitleWidth is in terminal cells.
const maxTitleWidth = 80

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func flatLines(items []model.Item, index map[string]int) []string {
	t := ui.Current()
	out := make([]string, 0, len(items))
	for _, it := range items {
		idx := fmt.Sprintf("%2d.", index[it.ID])
		box := t.BoxUnchecked
		color := t.Muted
		if it.Completed {
			box, color = t.BoxChecked, t.Success
		}
		title := runewidth.Truncate(it.Title, maxTitleWidth, "...")
		line := fmt.Sprintf("%s %s %s", ui.C("\033[2m", idx), ui.C(color, box), title)
		if badge := ui.PriorityBadge(it.Priority); badge != "" {
			line += " " + badge
		}
		out = append(out, line)
	}
	return out
}

func groupLines(items []model.Item, index map[string]int) []string {
	var pend, done []model.Item
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	t := ui.Current()
	var lines []string
	lines = append(lines, ui.C(t.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend, index)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(t.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done, index)...)
	}
	return lines
}
