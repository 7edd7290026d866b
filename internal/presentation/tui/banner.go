package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the swimlane banner to w, colored for the terminal's profile.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___ _ __ _(_)_ __ | |__ _ _ _  ___ ", "#38bdf8"},
		{" (_-< V  V / | '  \\| / _` | ' \\/ -_)", "#22d3ee"},
		{" /__/\\_/\\_/|_|_|_|_|_\\__,_|_||_\\___|", "#2dd4bf"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
