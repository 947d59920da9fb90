package gentest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderIndent(t *testing.T) {
	b := NewBuilder("")
	b.Linef("switch (%s) {", "p->type")
	b.Linef("case A:")
	err := b.Indent(func() error {
		b.Linef("p->u.a = %d;", 1)
		b.Linef("break;")
		return nil
	})
	require.NoError(t, err)
	b.Linef("}")

	assert.Equal(t, "switch (p->type) {\ncase A:\n    p->u.a = 1;\n    break;\n}\n", b.String())
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 1, b.Lines()[2].Depth)
}

func TestBuilderCustomUnit(t *testing.T) {
	b := NewBuilder("\t")
	_ = b.Indent(func() error {
		return b.Indent(func() error {
			b.Linef("x;")
			return nil
		})
	})
	assert.Equal(t, "\t\tx;\n", b.String())
}

func TestBuilderBlankHasNoIndent(t *testing.T) {
	b := NewBuilder("  ")
	_ = b.Indent(func() error {
		b.Linef("a;")
		b.Blank()
		b.Linef("b;")
		return nil
	})
	assert.Equal(t, "  a;\n\n  b;\n", b.String())
}

func TestBuilderIndentRestoresDepthOnError(t *testing.T) {
	b := NewBuilder("")
	boom := errors.New("boom")

	err := b.Indent(func() error {
		b.Linef("inner;")
		return boom
	})
	require.ErrorIs(t, err, boom)

	b.Linef("outer;")
	assert.Equal(t, 0, b.Lines()[1].Depth)
}
