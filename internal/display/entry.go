// Package display turns display commands into rendered text on a two-line
// character display: line layout, bounded entries, and the actuation task
// that renders entries and clears them when their hold expires.
package display

import (
	"time"

	"github.com/dyluth/tablenode/pkg/payload"
)

// Width is the column count of the node's character display.
const Width = 16

// Entry is one unit of work on the display queue. Lines never exceed the
// width the entry was built for.
type Entry struct {
	Top    string
	Bottom string
	Hold   time.Duration // 0 keeps the text until the next entry
}

// NewEntry builds an entry, truncating each line to width.
func NewEntry(top, bottom string, hold time.Duration, width int) Entry {
	if hold < 0 {
		hold = 0
	}
	return Entry{
		Top:    Truncate(top, width),
		Bottom: Truncate(bottom, width),
		Hold:   hold,
	}
}

// EntryFromCommand lays out a decoded display command. When only the top
// line is given and it is too long, it is split across both lines.
func EntryFromCommand(cmd payload.DisplayCommand, width int) Entry {
	top, bottom := cmd.Top, cmd.Down
	if bottom == "" {
		top, bottom = SplitLines(top, width)
	}
	return NewEntry(top, bottom, time.Duration(cmd.TimeMs)*time.Millisecond, width)
}
