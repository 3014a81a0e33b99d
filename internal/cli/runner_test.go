package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/todoflow/internal/config"
	"github.com/idilsaglam/todoflow/internal/model"
	"github.com/idilsaglam/todoflow/internal/store"
	"github.com/idilsaglam/todoflow/internal/store/jsonstore"
	"github.com/idilsaglam/todoflow/internal/store/memstore"
	"github.com/idilsaglam/todoflow/internal/ui"
)

// capture swaps ui output for buffers for the duration of a test.
func capture(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr := ui.Out, ui.Err
	ui.Out, ui.Err = out, errOut
	t.Cleanup(func() { ui.Out, ui.Err = prevOut, prevErr })
	return out, errOut
}

func jsonConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Backend: config.BackendJSON,
		Path:    filepath.Join(t.TempDir(), "todos.json"),
	}
}

func run(cfg *config.Config, args ...string) int {
	return Run(args, Options{Config: cfg})
}

func TestAddThenList(t *testing.T) {
	out, _ := capture(t)
	cfg := jsonConfig(t)

	require.Equal(t, 0, run(cfg, "add", "Buy", "milk"))
	assert.Contains(t, out.String(), "added")

	out.Reset()
	require.Equal(t, 0, run(cfg, "ls"))
	assert.Contains(t, out.String(), " 1. ☐ Buy milk")
	assert.Contains(t, out.String(), "Total 1")

	items, err := jsonstore.Load(cfg.Path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.PriorityNormal, items[0].Priority)
}

func TestAddWithFlags(t *testing.T) {
	capture(t)
	cfg := jsonConfig(t)

	require.Equal(t, 0, run(cfg, "add", "-p", "high", "-d", "before friday", "Renew", "passport"))

	items, err := jsonstore.Load(cfg.Path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Renew passport", items[0].Title)
	assert.Equal(t, "before friday", items[0].Description)
	assert.Equal(t, model.PriorityHigh, items[0].Priority)
}

func TestUsageErrors(t *testing.T) {
	_, errOut := capture(t)
	cfg := jsonConfig(t)

	assert.Equal(t, 2, run(cfg))
	assert.Equal(t, 2, run(cfg, "frobnicate"))
	assert.Contains(t, errOut.String(), "unknown subcommand: frobnicate")
	assert.Equal(t, 2, run(cfg, "add", "   "))
	assert.Equal(t, 2, run(cfg, "add", "-p", "urgent", "x"))
	assert.Equal(t, 2, run(cfg, "ls", "-f", "someday"))
	assert.Equal(t, 2, run(cfg, "done"))
	assert.Equal(t, 2, run(cfg, "edit", "1"))
}

func TestHelp(t *testing.T) {
	out, _ := capture(t)
	assert.Equal(t, 0, run(nil, "help"))
	assert.Contains(t, out.String(), "Subcommands:")
}

func TestDoneFilterAndRemove(t *testing.T) {
	out, _ := capture(t)
	cfg := jsonConfig(t)

	require.Equal(t, 0, run(cfg, "add", "first"))
	time.Sleep(2 * time.Millisecond)
	require.Equal(t, 0, run(cfg, "add", "second"))

	// newest first: 1 is "second"
	require.Equal(t, 0, run(cfg, "done", "1"))

	out.Reset()
	require.Equal(t, 0, run(cfg, "ls", "-f", "completed"))
	assert.Contains(t, out.String(), " 1. ☑ second")
	assert.NotContains(t, out.String(), "first")

	out.Reset()
	require.Equal(t, 0, run(cfg, "ls", "-f", "active"))
	// indexes always refer to the unfiltered list
	assert.Contains(t, out.String(), " 2. ☐ first")

	require.Equal(t, 0, run(cfg, "rm", "2"))
	items, err := jsonstore.Load(cfg.Path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "second", items[0].Title)
}

func TestEmptyFilterMessage(t *testing.T) {
	out, _ := capture(t)
	cfg := jsonConfig(t)

	require.Equal(t, 0, run(cfg, "ls"))
	assert.Contains(t, out.String(), "No to-dos")

	require.Equal(t, 0, run(cfg, "add", "open"))
	out.Reset()
	require.Equal(t, 0, run(cfg, "ls", "-f", "done"))
	assert.Contains(t, out.String(), "No completed to-dos")
}

func TestBadRefs(t *testing.T) {
	_, errOut := capture(t)
	cfg := jsonConfig(t)
	require.Equal(t, 0, run(cfg, "add", "only"))

	assert.Equal(t, 2, run(cfg, "done", "5"))
	assert.Contains(t, errOut.String(), "index out of range")
	assert.Equal(t, 2, run(cfg, "rm", "nope"))
	assert.Contains(t, errOut.String(), `no item "nope"`)
}

func TestShowAndEditByIDPrefix(t *testing.T) {
	out, _ := capture(t)
	cfg := jsonConfig(t)
	require.Equal(t, 0, run(cfg, "add", "Read book"))

	items, err := jsonstore.Load(cfg.Path)
	require.NoError(t, err)
	id := items[0].ID

	require.Equal(t, 0, run(cfg, "edit", id[:6], "-d", "chapter 3", "-p", "low"))

	out.Reset()
	require.Equal(t, 0, run(cfg, "show", id))
	assert.Contains(t, out.String(), "chapter 3")
	assert.Contains(t, out.String(), "priority low")
	assert.Contains(t, out.String(), id)
}

func TestGroupedList(t *testing.T) {
	out, _ := capture(t)
	cfg := jsonConfig(t)
	cfg.Group = true
	require.Equal(t, 0, run(cfg, "add", "a"))

	out.Reset()
	require.Equal(t, 0, run(cfg, "ls"))
	s := out.String()
	assert.Less(t, strings.Index(s, "Pending"), strings.Index(s, "Done"))
	assert.Contains(t, s, "(none)")
}

func TestWriteFailureExitsOne(t *testing.T) {
	_, errOut := capture(t)
	opts := Options{
		Config: &config.Config{Backend: config.BackendMemory},
		OpenStore: func(*config.Config) (store.Store, error) {
			return memstore.New(nil, memstore.WithCommit(func([]model.Item) error {
				return errors.New("disk full")
			})), nil
		},
	}

	assert.Equal(t, 1, Run([]string{"add", "x"}, opts))
	assert.Contains(t, errOut.String(), "disk full")
}

func TestOpenFailureExitsOne(t *testing.T) {
	_, errOut := capture(t)
	opts := Options{
		Config: &config.Config{Backend: config.BackendMemory},
		OpenStore: func(*config.Config) (store.Store, error) {
			return nil, errors.New("locked")
		},
	}
	assert.Equal(t, 1, Run([]string{"ls"}, opts))
	assert.Contains(t, errOut.String(), "open store: locked")
}

func TestListKeepsMultibyteTitles(t *testing.T) {
	out, _ := capture(t)
	cfg := jsonConfig(t)
	short := strings.Repeat("é", 60)
	long := strings.Repeat("日", 50)
	require.Equal(t, 0, run(cfg, "add", short))
	require.Equal(t, 0, run(cfg, "add", long))

	out.Reset()
	require.Equal(t, 0, run(cfg, "ls"))
	s := out.String()
	assert.True(t, utf8.ValidString(s))
	assert.Contains(t, s, short)
	// 50 wide runes are 100 cells: cut on a rune boundary
	assert.NotContains(t, s, long)
	assert.Contains(t, s, strings.Repeat("日", 38)+"...")
}
