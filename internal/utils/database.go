package utils

import (
	"fmt"
	"regexp"
)

var (
	positionalPlaceholder = regexp.MustCompile(`\?`)
	numberedPlaceholder   = regexp.MustCompile(`\$\d+`)
)

// ConvertPlaceholders converts SQL query placeholders between positional (`?`) and PostgreSQL format (`$1`, `$2`, ...).
// If reverse is true, it converts `$1`, `$2`, ... back to `?`.
func ConvertPlaceholders(query string, reverse ...bool) string {
	if len(reverse) > 0 && reverse[0] {
		return numberedPlaceholder.ReplaceAllString(query, "?")
	}

	count := 0
	return positionalPlaceholder.ReplaceAllStringFunc(query, func(_ string) string {
		count++
		return fmt.Sprintf("$%d", count)
	})
}

// Placeholders returns n comma separated `?` placeholders
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
