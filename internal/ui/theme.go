package ui

import (
	"fmt"
	"slices"
	"strings"
)

// Theme bundles palette, symbols and box borders. All helpers read the
// active one through Current.
type Theme struct {
	Name string

	Title, Muted, Accent, Success, Error, Pending string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymUnchecked                         string

	// NoColor turns C into a no-op while the theme is active.
	NoColor bool
}

type frame struct{ tl, tr, bl, br, h, v string }

var (
	squareFrame  = frame{"┌", "┐", "└", "┘", "─", "│"}
	roundedFrame = frame{"╭", "╮", "╰", "╯", "─", "│"}
	asciiFrame   = frame{"+", "+", "+", "+", "-", "|"}
)

func (f frame) apply(t Theme) Theme {
	t.CornerTL, t.CornerTR, t.CornerBL, t.CornerBR = f.tl, f.tr, f.bl, f.br
	t.H, t.V = f.h, f.v
	return t
}

var themes = map[string]Theme{
	"classic": squareFrame.apply(Theme{
		Name:  "classic",
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		SymDone: "✔", SymUnchecked: "•",
	}),
	"neon": roundedFrame.apply(Theme{
		Name:  "neon",
		Title: "\033[95m", Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Error: fgRed, Pending: "\033[93m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		SymDone: "✔", SymUnchecked: "•",
	}),
	"mono": asciiFrame.apply(Theme{
		Name:         "mono",
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		SymDone: "x", SymUnchecked: "-",
		NoColor: true,
	}),
}

var current Theme

func init() { _ = SetTheme("classic") }

// ThemeNames lists the selectable themes, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// SetTheme activates name (case-insensitive). An unknown name falls back to
// classic and is reported.
func SetTheme(name string) error {
	t, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		current = themes["classic"]
		disableColor = false
		return fmt.Errorf("unknown theme %q (want %s)", name, strings.Join(ThemeNames(), ", "))
	}
	current = t
	disableColor = t.NoColor
	return nil
}

func Current() Theme { return current }
