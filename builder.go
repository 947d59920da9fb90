package gentest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultIndent is one level of indentation in generated C.
const DefaultIndent = "    "

// Line is one emitted line at an indentation depth.
type Line struct {
	Depth int
	Text  string
}

// Builder accumulates generated statements. Indentation belongs to the
// builder, not to the text of the statements.
type Builder struct {
	unit  string
	depth int
	lines []Line
}

// NewBuilder returns an empty builder indenting with unit. An empty unit
// uses DefaultIndent.
func NewBuilder(unit string) *Builder {
	if unit == "" {
		unit = DefaultIndent
	}
	return &Builder{unit: unit}
}

// Linef appends a formatted line at the current depth.
func (b *Builder) Linef(format string, args ...any) {
	b.lines = append(b.lines, Line{Depth: b.depth, Text: fmt.Sprintf(format, args...)})
}

// Blank appends an empty line.
func (b *Builder) Blank() {
	b.lines = append(b.lines, Line{Depth: b.depth})
}

// Indent runs fn one level deeper.
func (b *Builder) Indent(fn func() error) error {
	b.depth++
	defer func() { b.depth-- }()
	return fn()
}

// Lines returns the accumulated lines.
func (b *Builder) Lines() []Line { return b.lines }

// Len returns the number of accumulated lines.
func (b *Builder) Len() int { return len(b.lines) }

// WriteTo writes the lines, indented, one per row.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, l := range b.lines {
		if l.Text != "" {
			m, _ := bw.WriteString(strings.Repeat(b.unit, l.Depth))
			n += int64(m)
			m, _ = bw.WriteString(l.Text)
			n += int64(m)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

func (b *Builder) String() string {
	var sb strings.Builder
	_, _ = b.WriteTo(&sb)
	return sb.String()
}
