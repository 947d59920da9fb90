package idl

// predeclared returns fresh instances of the standard types every schema
// can reference without declaring them, keyed by the name used in schema
// files. They carry no namespace and no serialization function.
func predeclared() map[string]Type {
	number := func(c string, signed bool, width int) *Number {
		return &Number{
			Base:   Base{TypeName: c, RawName: c, PassBy: PassByValue},
			Signed: signed,
			Width:  width,
		}
	}

	integer := number("int", true, 32)
	str := &String{Base: Base{TypeName: "char *", RawName: "char *", PassBy: PassByValue, DisposeFn: "free"}}

	return map[string]Type{
		"void":    &Builtin{Base: Base{TypeName: "void *", RawName: "void *", PassBy: PassByValue}, Shape: ShapeOpaque},
		"bool":    &Builtin{Base: Base{TypeName: "bool", RawName: "bool", PassBy: PassByValue}, Shape: ShapeBool},
		"int":     integer,
		"integer": integer,
		"size_t":  number("size_t", false, 64),
		"uint8":   number("uint8_t", false, 8),
		"uint16":  number("uint16_t", false, 16),
		"uint32":  number("uint32_t", false, 32),
		"uint64":  number("uint64_t", false, 64),
		"string":  str,
	}
}
