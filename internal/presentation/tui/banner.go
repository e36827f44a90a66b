package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{" _        _                 ", "#34d399"},
	{"| |_ _ __(_) __ _  __ _  ___ ", "#2dd4bf"},
	{"| __| '__| |/ _` |/ _` |/ _ \\", "#22d3ee"},
	{"| |_| |  | | (_| | (_| |  __/", "#38bdf8"},
	{" \\__|_|  |_|\\__,_|\\__, |\\___|", "#60a5fa"},
	{"                  |___/      ", "#818cf8"},
}

// PrintBanner writes the ASCII banner followed by a short usage hint.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	hint := termenv.String(fmt.Sprintf("  v%s  /reset clears the conversation, /quit exits", version)).Faint()
	fmt.Fprintln(w, hint)
	fmt.Fprintln(w)
}
