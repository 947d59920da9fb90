package gentest

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tempusfrangit/go-gentest/idl"
)

// Exercise is one from-string parse attempt emitted for an enumeration.
type Exercise struct {
	// Label is the display name being parsed, or the invalid token.
	Label string
	// Input is Label with its case randomized.
	Input string
}

// Assembler turns a schema into a complete C test harness.
type Assembler struct {
	schema *idl.Schema
	opts   Options
	seed   uint64
	log    Logger

	rnd    *Randomizer
	memo   *Registry
	walker *Walker
}

// NewAssembler prepares a harness generator for s.
func NewAssembler(s *idl.Schema, opts ...Option) (*Assembler, error) {
	if s == nil {
		return nil, fmt.Errorf("nil schema")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	a := &Assembler{
		schema: s,
		opts:   cfg.options,
		seed:   cfg.seed,
		log:    cfg.logger,
		rnd:    NewRandomizer(cfg.seed),
	}
	return a, nil
}

// Seed returns the seed of the random source.
func (a *Assembler) Seed() uint64 { return a.seed }

// Generate writes the harness to w. Generation stops at the first error;
// output already flushed to w is left as is.
func (a *Assembler) Generate(w io.Writer) error {
	if err := a.generate(w); err != nil {
		a.log.Error("harness generation failed", "error", err, "seed", a.seed)
		return err
	}

	a.log.Info("generated harness",
		"types", len(a.schema.Types),
		"builtins", len(a.schema.Builtins),
		"initializers", a.memo.Len(),
		"seed", a.seed)
	return nil
}

func (a *Assembler) generate(w io.Writer) error {
	if err := idl.Validate(a.schema); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if err := a.checkInvalidToken(); err != nil {
		return err
	}

	a.memo = NewRegistry()
	a.walker = NewWalker(a.rnd, a.memo, &a.opts)

	bw := bufio.NewWriter(w)
	if err := a.writePreamble(bw); err != nil {
		return err
	}
	if err := a.writeInitializers(bw); err != nil {
		return err
	}
	if err := a.writeMain(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing harness: %w", err)
	}
	return nil
}

// checkInvalidToken rejects an invalid enum token that some enumeration
// would parse successfully.
func (a *Assembler) checkInvalidToken() error {
	tok := a.opts.InvalidEnumToken
	for _, e := range a.schema.Enumerations() {
		for _, v := range e.Values {
			if strings.EqualFold(tok, v.ValueName) {
				return fmt.Errorf("invalid_enum_token %q is a value of %s", tok, idl.Describe(e))
			}
		}
	}
	return nil
}

// writePreamble emits the includes, the helpers and every hand-coded
// initializer, and registers the hand-coded types the schema declares.
func (a *Assembler) writePreamble(w *bufio.Writer) error {
	preamble, err := GeneratePreamble(a.opts.Includes)
	if err != nil {
		return fmt.Errorf("rendering preamble: %w", err)
	}
	w.WriteString("\n")
	w.WriteString(preamble)

	for _, h := range a.opts.Handcoded {
		body, err := GenerateBoilerplate(h.Template, h.Type)
		if err != nil {
			return err
		}
		w.WriteString("\n")
		w.WriteString(body)

		t, ok := a.schema.Lookup(h.Type)
		if !ok {
			a.log.Warn("hand-coded type not in schema", "type", h.Type)
			continue
		}
		if err := a.memo.Register(t, initFuncName(h.Type)); err != nil {
			return err
		}
	}
	return nil
}

// writeInitializers emits one function per declared type, dependencies
// first, so every initializer a body calls is already registered.
func (a *Assembler) writeInitializers(w *bufio.Writer) error {
	for _, t := range idl.Order(a.schema) {
		name := t.Info().TypeName
		if a.opts.IsHandcoded(name) {
			continue
		}

		log := a.log.With("type", name)
		fn := initFuncName(name)
		arg := idl.MakeArg(t, "p", idl.PassByReference)

		// Registered first so an array of the type calls its own initializer.
		if err := a.memo.Register(t, fn); err != nil {
			return err
		}

		b := NewBuilder(a.opts.IndentUnit)
		b.Linef("static void %s(%s);", fn, arg)
		b.Linef("static void %s(%s)", fn, arg)
		b.Linef("{")
		err := b.Indent(func() error {
			return a.walker.Emit(b, t, RootAccess("p"))
		})
		if err != nil {
			return fmt.Errorf("generating %s: %w", fn, err)
		}
		b.Linef("}")
		b.Blank()

		log.Debug("emitted initializer", "kind", t.Kind(), "lines", b.Len())
		if _, err := b.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) writeMain(w *bufio.Writer) error {
	head := NewBuilder(a.opts.IndentUnit)
	head.Blank()
	head.Linef("int main(int argc, char **argv)")
	head.Linef("{")
	err := head.Indent(func() error {
		for _, t := range a.schema.Types {
			name := t.Info().TypeName
			head.Linef("%s %s_val;", name, name)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := head.WriteTo(w); err != nil {
		return err
	}

	prologue, err := GenerateMainPrologue()
	if err != nil {
		return fmt.Errorf("rendering main: %w", err)
	}
	w.WriteString(prologue)

	body := NewBuilder(a.opts.IndentUnit)
	err = body.Indent(func() error {
		if err := a.emitJSONTests(body); err != nil {
			return err
		}
		body.Linef(`printf("Testing Enumerations\n");`)
		body.Linef(`printf("--------------------\n");`)
		body.Linef(`printf("\n");`)
		for _, e := range a.schema.Enumerations() {
			a.emitEnumTests(body, e)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		return err
	}

	epilogue, err := GenerateMainEpilogue()
	if err != nil {
		return fmt.Errorf("rendering main: %w", err)
	}
	w.WriteString(epilogue)
	return nil
}

func (a *Assembler) emitJSONTests(b *Builder) error {
	b.Linef(`printf("Testing TYPE_to_json()\n");`)
	b.Linef(`printf("----------------------\n");`)
	b.Linef(`printf("\n");`)
	for _, t := range a.schema.Types {
		info := t.Info()
		if info.JSONFn == "" {
			continue
		}
		fn, ok := a.memo.Lookup(t)
		if !ok {
			return &UnsupportedTypeError{Type: info.TypeName}
		}
		arg := info.TypeName + "_val"
		b.Linef("%s(%s);", fn, idl.PassArg(t, arg, false, idl.PassByReference))
		b.Linef("s = %s(ctx, %s);", info.JSONFn, idl.PassArg(t, arg, false, 0))
		b.Linef(`printf("%%s: %%s\n", "%s", s);`, info.TypeName)
		b.Linef("if (s == NULL) abort();")
		b.Linef("free(s);")
		if info.DisposeFn != "" {
			b.Linef("%s(&%s);", info.DisposeFn, arg)
		}
		b.Blank()
	}
	return nil
}

func (a *Assembler) emitEnumTests(b *Builder, e *idl.Enumeration) {
	name := e.TypeName
	if name == "" {
		return
	}
	b.Linef(`printf("%s -- to string:\n");`, name)
	for _, v := range e.Values {
		b.Linef(`printf("\t%s = %%d = \"%%s\"\n", %s, %s_to_string(%s));`, v.ValueName, v.Name, name, v.Name)
	}
	b.Blank()

	if e.JSONFn != "" {
		b.Linef(`printf("%s -- to JSON:\n");`, name)
		for _, v := range e.Values {
			b.Linef(`printf("\t%s = %%d = %%s", %s, %s(ctx, %s));`, v.ValueName, v.Name, e.JSONFn, v.Name)
		}
		b.Blank()
	}

	b.Linef(`printf("%s -- from string:\n");`, name)
	for _, x := range a.Exercises(e) {
		b.Linef("%s_val = -1;", name)
		b.Linef(`rc = %s_from_string("%s", &%s_val);`, name, x.Input, name)
		b.Linef(`printf("\t%s = \"%%s\" = %%d (rc %%d)\n", "%s", %s_val, rc);`, x.Label, x.Input, name)
	}
	b.Blank()
}

// Exercises returns the from-string inputs for e: every display name
// followed by the invalid token, each with randomized case.
func (a *Assembler) Exercises(e *idl.Enumeration) []Exercise {
	labels := make([]string, 0, len(e.Values)+1)
	for _, v := range e.Values {
		labels = append(labels, v.ValueName)
	}
	labels = append(labels, a.opts.InvalidEnumToken)

	out := make([]Exercise, len(labels))
	for i, l := range labels {
		out[i] = Exercise{Label: l, Input: a.rnd.RandomizeCase(l)}
	}
	return out
}
