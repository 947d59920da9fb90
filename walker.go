package gentest

import (
	"slices"

	"github.com/tempusfrangit/go-gentest/idl"
)

// Walker emits C statements that randomly initialize a value of a type.
// It recurses through anonymous aggregates and calls the registered
// initializer of every named type it reaches.
type Walker struct {
	rnd  *Randomizer
	memo *Registry
	opts *Options

	// expanding holds the named structs whose fields are being emitted.
	expanding []idl.Type
}

// NewWalker returns a walker drawing from rnd and calling the initializers
// recorded in memo.
func NewWalker(rnd *Randomizer, memo *Registry, opts *Options) *Walker {
	return &Walker{rnd: rnd, memo: memo, opts: opts}
}

// Emit appends to b the statements initializing ty at at.
func (w *Walker) Emit(b *Builder, ty idl.Type, at Access) error {
	switch t := ty.(type) {
	case *idl.Enumeration:
		b.Linef("%s = %s;", idl.PassArg(t, at.Expr(), at.IsRoot(), 0), w.rnd.RandomizeEnum(t))
		return nil
	case *idl.KeyedUnion:
		return w.emitUnion(b, t, at)
	case *idl.Array:
		return w.emitArray(b, t, at)
	case *idl.Struct:
		if at.IsRoot() || (t.JSONFn == "" && !slices.Contains(w.expanding, ty)) {
			return w.emitStruct(b, t, at)
		}
	}

	// At the root the registered function is the one being emitted.
	if !at.IsRoot() {
		if fn, ok := w.memo.Lookup(ty); ok {
			b.Linef("%s(%s);", fn, idl.PassArg(ty, at.Expr(), false, idl.PassByReference))
			return nil
		}
	}
	return w.emitLeaf(b, ty, at)
}

func (w *Walker) emitStruct(b *Builder, t *idl.Struct, at Access) error {
	if !t.Anonymous() {
		w.expanding = append(w.expanding, t)
		defer func() { w.expanding = w.expanding[:len(w.expanding)-1] }()
	}
	for _, f := range t.Fields {
		if f.Const {
			continue
		}
		if err := w.Emit(b, f.Type, at.Member(f)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) emitUnion(b *Builder, t *idl.KeyedUnion, at Access) error {
	if at.IsRoot() {
		return &StructuralError{
			Type:   idl.Describe(t),
			Reason: "a tagged union must be reached through an enclosing struct",
		}
	}
	b.Linef("switch (%s) {", at.Sibling(t.KeyVar))
	for _, arm := range t.Fields {
		b.Linef("case %s:", arm.EnumName)
		err := b.Indent(func() error {
			if err := w.Emit(b, arm.Type, at.Member(arm)); err != nil {
				return err
			}
			b.Linef("break;")
			return nil
		})
		if err != nil {
			return err
		}
	}
	b.Linef("}")
	return nil
}

func (w *Walker) emitArray(b *Builder, t *idl.Array, at Access) error {
	if at.IsRoot() {
		return &StructuralError{
			Type:   idl.Describe(t),
			Reason: "an array must be reached through an enclosing struct",
		}
	}
	length := at.Sibling(t.LenVar)
	b.Linef("%s = rand() %% 8;", length)
	b.Linef("%s = calloc(%s, sizeof(*%s));", at.Expr(), length, at.Expr())
	b.Linef("{")
	err := b.Indent(func() error {
		b.Linef("int i;")
		b.Linef("for (i = 0; i < %s; i++) {", length)
		if err := b.Indent(func() error {
			return w.Emit(b, t.Elem, at.Index("i"))
		}); err != nil {
			return err
		}
		b.Linef("}")
		return nil
	})
	if err != nil {
		return err
	}
	b.Linef("}")
	return nil
}

// emitLeaf handles types with no structure and no registered initializer.
func (w *Walker) emitLeaf(b *Builder, ty idl.Type, at Access) error {
	v := at.Expr()
	x := idl.PassArg(ty, v, at.IsRoot(), 0)
	name := ty.Info().TypeName

	switch t := ty.(type) {
	case *idl.Builtin:
		switch {
		case t.Shape == idl.ShapeBlob || slices.Contains(w.opts.BlobTypes, name):
			b.Linef("rand_bytes((uint8_t *)%s, sizeof(*%s));", v, v)
			return nil
		case t.Shape == idl.ShapeInteger || slices.Contains(w.opts.IntegerTypes, name):
			w.emitInteger(b, t, at)
			return nil
		case t.Shape == idl.ShapeBool:
			b.Linef("%s = rand() %% 2;", x)
			return nil
		}
	case *idl.Number:
		w.emitInteger(b, t, at)
		return nil
	case *idl.String:
		b.Linef("%s = rand_str();", x)
		return nil
	}

	if w.opts.IsHandcoded(name) {
		return &UnsupportedTypeError{Type: name, Handcoded: true}
	}
	if slices.Contains(w.expanding, ty) {
		return &StructuralError{
			Type:   idl.Describe(ty),
			Reason: "a recursive struct needs a registered initializer",
		}
	}
	return &UnsupportedTypeError{Type: idl.Describe(ty)}
}

// emitInteger keeps values within sizeof(x)*8 so assignments never
// overflow narrow fields.
func (w *Walker) emitInteger(b *Builder, ty idl.Type, at Access) {
	x := idl.PassArg(ty, at.Expr(), at.IsRoot(), 0)
	b.Linef("%s = rand() %% (sizeof(%s)*8);", x, x)
}
