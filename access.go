package gentest

import "github.com/tempusfrangit/go-gentest/idl"

// Position says whether an access is the parameter of the generated
// function itself or a member reached through it.
type Position int

const (
	// Root is the function parameter, always a pointer.
	Root Position = iota
	// Nested is a member expression, always a value.
	Nested
)

// Access names the storage a generated statement initializes. It is
// immutable; Member and Index return new values.
type Access struct {
	expr string
	// stem is the prefix shared with sibling fields, e.g. "p->" for
	// "p->u". Empty at Root.
	stem string
	pos  Position
}

// RootAccess is the access for the parameter of a generated function.
func RootAccess(expr string) Access {
	return Access{expr: expr, pos: Root}
}

func (a Access) Expr() string { return a.expr }
func (a Access) IsRoot() bool  { return a.pos == Root }

// Sibling names a field next to the accessed value in its enclosing
// aggregate.
func (a Access) Sibling(name string) string { return a.stem + name }

// Member descends into field f of the accessed aggregate.
func (a Access) Member(f *idl.Field) Access {
	stem, expr := idl.Member(a.expr, f, a.IsRoot())
	return Access{expr: expr, stem: stem, pos: Nested}
}

// Index addresses element i of the accessed array. The element keeps the
// array's stem so it can still see the array's siblings.
func (a Access) Index(i string) Access {
	return Access{expr: a.expr + "[" + i + "]", stem: a.stem, pos: Nested}
}
