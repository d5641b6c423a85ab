// Package engine derives environment-specific engine names.
package engine

import (
	"os"
	"strings"
)

// ResolveVariant returns the suffix configured by variant. A value wrapped in
// backticks names an environment variable; anything else is used literally.
func ResolveVariant(variant string) string {
	variant = strings.TrimSpace(variant)
	if len(variant) >= 2 && strings.HasPrefix(variant, "`") && strings.HasSuffix(variant, "`") {
		v, _ := os.LookupEnv(strings.Trim(variant, "`"))
		return strings.TrimSpace(v)
	}
	return variant
}

// Environmentize appends "-<variant>" to name when variant resolves to a non-empty value.
func Environmentize(name, variant string) string {
	suffix := ResolveVariant(variant)
	if suffix == "" {
		return name
	}
	return name + "-" + suffix
}
