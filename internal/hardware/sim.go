package hardware

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// SimDisplay is an in-memory character-cell display. It behaves like a
// two-line character LCD: writes advance the cursor and anything past the
// last column is silently dropped.
type SimDisplay struct {
	mu     sync.Mutex
	cols   int
	cells  [][]rune
	col    int
	row    int
	writes int
	echo   bool
}

// NewSimDisplay creates a blank display of cols × rows cells.
// When echo is true every change is logged as a framed snapshot.
func NewSimDisplay(cols, rows int, echo bool) *SimDisplay {
	d := &SimDisplay{cols: cols, echo: echo}
	d.cells = make([][]rune, rows)
	for r := range d.cells {
		d.cells[r] = blankRow(cols)
	}
	return d
}

func blankRow(cols int) []rune {
	row := make([]rune, cols)
	for i := range row {
		row[i] = ' '
	}
	return row
}

// Clear blanks every cell and homes the cursor.
func (d *SimDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for r := range d.cells {
		d.cells[r] = blankRow(d.cols)
	}
	d.col, d.row = 0, 0
	d.logLocked("clear")
	return nil
}

// SetCursor moves the write position.
func (d *SimDisplay) SetCursor(col, row int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row < 0 || row >= len(d.cells) || col < 0 || col >= d.cols {
		return fmt.Errorf("cursor (%d,%d) outside %dx%d display", col, row, d.cols, len(d.cells))
	}
	d.col, d.row = col, row
	return nil
}

// WriteText writes s from the cursor position, dropping runes past the last column.
func (d *SimDisplay) WriteText(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range s {
		if d.col >= d.cols {
			break
		}
		d.cells[d.row][d.col] = r
		d.col++
	}
	d.writes++
	d.logLocked("write")
	return nil
}

// Lines returns the current contents with trailing blanks trimmed.
func (d *SimDisplay) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	lines := make([]string, len(d.cells))
	for r, row := range d.cells {
		lines[r] = strings.TrimRight(string(row), " ")
	}
	return lines
}

func (d *SimDisplay) logLocked(op string) {
	if !d.echo {
		return
	}
	border := "+" + strings.Repeat("-", d.cols) + "+"
	var b strings.Builder
	b.WriteString(border)
	for _, row := range d.cells {
		b.WriteString(" |" + string(row) + "|")
	}
	b.WriteString(" " + border)
	log.Printf("[DEBUG] display %s: %s", op, b.String())
}

// SimTone logs tone start and stop instead of driving a buzzer.
type SimTone struct {
	mu      sync.Mutex
	playing uint32
}

func (t *SimTone) Start(freqHz uint32) error {
	t.mu.Lock()
	t.playing = freqHz
	t.mu.Unlock()
	log.Printf("[DEBUG] tone on: %d Hz", freqHz)
	return nil
}

func (t *SimTone) Stop() error {
	t.mu.Lock()
	t.playing = 0
	t.mu.Unlock()
	log.Printf("[DEBUG] tone off")
	return nil
}

// Playing returns the active frequency, or 0 when silent.
func (t *SimTone) Playing() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// SimLine is a digital line held in memory. It serves as both an output
// (the status LED) and an input (a button that can be pressed from code).
type SimLine struct {
	mu    sync.Mutex
	name  string
	level Level
	quiet bool
}

// NewSimLine creates a line at the given initial level.
// Output changes are logged unless quiet is set.
func NewSimLine(name string, initial Level, quiet bool) *SimLine {
	return &SimLine{name: name, level: initial, quiet: quiet}
}

func (l *SimLine) Set(level Level) error {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
	if !l.quiet {
		log.Printf("[DEBUG] %s -> %s", l.name, level)
	}
	return nil
}

func (l *SimLine) Read() (Level, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level, nil
}

// NewSimDevices builds a complete simulated peripheral set: a 16×2 display,
// a logging buzzer, an LED and an idle (pulled-up) button.
func NewSimDevices(cols int, echo bool) *Devices {
	return &Devices{
		Display:   NewSimDisplay(cols, 2, echo),
		Tone:      &SimTone{},
		Indicator: NewSimLine("led", Low, !echo),
		Button:    NewSimLine("button", High, true),
	}
}
