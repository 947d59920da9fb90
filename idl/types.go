package idl

import "fmt"

// PassBy selects how a value of a type is handed to a function.
type PassBy int

const (
	PassByValue PassBy = iota + 1
	PassByReference
)

func (p PassBy) String() string {
	switch p {
	case PassByValue:
		return "value"
	case PassByReference:
		return "reference"
	default:
		return fmt.Sprintf("PassBy(%d)", int(p))
	}
}

// Kind identifies the variant of a Type.
type Kind int

const (
	KindBuiltin Kind = iota
	KindNumber
	KindString
	KindEnumeration
	KindStruct
	KindKeyedUnion
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindEnumeration:
		return "enumeration"
	case KindStruct:
		return "struct"
	case KindKeyedUnion:
		return "keyed union"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Shape describes what a Builtin holds, for builtins that have no
// structure of their own.
type Shape int

const (
	// ShapeOpaque builtins need a hand-written initializer.
	ShapeOpaque Shape = iota
	// ShapeBlob builtins are fixed-size byte buffers (uuid, mac, hwcap).
	ShapeBlob
	// ShapeInteger builtins are integer typedefs (domid).
	ShapeInteger
	ShapeBool
)

// Base carries the attributes common to every Type.
type Base struct {
	// TypeName is the C spelling of the type, namespace included.
	// Empty for anonymous types.
	TypeName  string
	RawName   string
	Namespace string
	PassBy    PassBy
	// DisposeFn releases the resources held by a value. Empty means none.
	DisposeFn string
	// JSONFn serializes a value to JSON text. Empty means the type has no
	// serialization function of its own.
	JSONFn string
}

// Info returns the common attributes of the type.
func (b *Base) Info() *Base { return b }

// Anonymous reports whether the type was declared inline without a name.
func (b *Base) Anonymous() bool { return b.TypeName == "" }

// Type is a node of the type graph. The set of implementations is closed.
type Type interface {
	Info() *Base
	Kind() Kind
}

// Builtin is a type provided by the C library rather than described
// field by field.
type Builtin struct {
	Base
	Shape Shape
}

func (*Builtin) Kind() Kind { return KindBuiltin }

// Number is an integer type of a known width.
type Number struct {
	Base
	Signed bool
	Width  int
}

func (*Number) Kind() Kind { return KindNumber }

// String is the NUL terminated character string type.
type String struct {
	Base
}

func (*String) Kind() Kind { return KindString }

// EnumValue is one member of an Enumeration.
type EnumValue struct {
	Enum *Enumeration
	// Name is the C constant, e.g. LIBXL_DOMAIN_TYPE_HVM.
	Name string
	// ValueName is the display name, e.g. HVM.
	ValueName string
	Value     int
}

// Enumeration is a named set of integer constants kept in declaration order.
type Enumeration struct {
	Base
	Values []*EnumValue
}

func (*Enumeration) Kind() Kind { return KindEnumeration }

// Lookup finds a value by display name, ignoring case.
func (e *Enumeration) Lookup(name string) (*EnumValue, bool) {
	want := upperCaser().String(name)
	for _, v := range e.Values {
		if v.ValueName == want {
			return v, true
		}
	}
	return nil, false
}

// Field is a member of a Struct or an arm of a KeyedUnion.
type Field struct {
	Name  string
	Type  Type
	Const bool
	// EnumName is the discriminant constant selecting this arm. Only set
	// on KeyedUnion arms.
	EnumName string
}

// Struct is an aggregate of fields.
type Struct struct {
	Base
	Fields []*Field
}

func (*Struct) Kind() Kind { return KindStruct }

// KeyedUnion is a union whose active arm is selected by a sibling field
// of the enclosing struct.
type KeyedUnion struct {
	Base
	KeyVar     string
	KeyVarType *Enumeration
	Fields     []*Field
}

func (*KeyedUnion) Kind() Kind { return KindKeyedUnion }

// Array is a variable length array whose length lives in a sibling field.
type Array struct {
	Base
	Elem   Type
	LenVar string
}

func (*Array) Kind() Kind { return KindArray }

var (
	_ Type = (*Builtin)(nil)
	_ Type = (*Number)(nil)
	_ Type = (*String)(nil)
	_ Type = (*Enumeration)(nil)
	_ Type = (*Struct)(nil)
	_ Type = (*KeyedUnion)(nil)
	_ Type = (*Array)(nil)
)

// Describe names a type for diagnostics.
func Describe(t Type) string {
	if t == nil {
		return "<nil>"
	}
	if name := t.Info().TypeName; name != "" {
		return name
	}
	return "anonymous " + t.Kind().String()
}

// MakeArg renders a parameter declaration for a value of t named n.
// A zero passby uses the type's own convention.
func MakeArg(t Type, n string, passby PassBy) string {
	if passby == 0 {
		passby = t.Info().PassBy
	}
	if passby == PassByReference {
		return fmt.Sprintf("%s *%s", t.Info().TypeName, n)
	}
	return fmt.Sprintf("%s %s", t.Info().TypeName, n)
}

// PassArg renders the expression that hands n to a function taking t by
// passby. isRef says whether n already names a pointer to the value.
// A zero passby uses the type's own convention.
func PassArg(t Type, n string, isRef bool, passby PassBy) string {
	if passby == 0 {
		passby = t.Info().PassBy
	}
	if passby == PassByReference {
		if isRef {
			return n
		}
		return "&" + n
	}
	if isRef {
		return "*" + n
	}
	return n
}

// Member returns the expression for field f within the aggregate v, plus
// the stem shared by all siblings of f. isRef says whether v is a pointer.
func Member(v string, f *Field, isRef bool) (stem, expr string) {
	if isRef {
		stem = v + "->"
	} else {
		stem = v + "."
	}
	if f.Name == "" {
		return stem, stem
	}
	return stem, stem + f.Name
}
