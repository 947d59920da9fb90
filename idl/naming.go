package idl

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upperCaser returns a fresh caser; a cases.Caser keeps state between
// calls and must not be shared.
func upperCaser() cases.Caser {
	return cases.Upper(language.Und)
}

// qualify prefixes a raw name with its namespace.
func qualify(namespace, raw string) string {
	if raw == "" {
		return ""
	}
	return namespace + raw
}

// enumValueNames derives the C constant and display name of an enum value,
// e.g. ("libxl_", "domain_type", "hvm") -> ("LIBXL_DOMAIN_TYPE_HVM", "HVM").
func enumValueNames(namespace, enumRaw, value string) (name, valueName string) {
	upper := upperCaser()
	valueName = upper.String(value)
	name = upper.String(namespace) + upper.String(enumRaw) + "_" + valueName
	return name, valueName
}
