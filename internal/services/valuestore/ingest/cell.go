package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type cellKind int

const (
	kindText cellKind = iota + 1
	kindInteger
	kindUnhandled
)

type cellValue struct {
	kind     cellKind
	raw      string
	coord    string
	typeName string
}

func unhandled(coord, raw, typeName string) cellValue {
	return cellValue{kind: kindUnhandled, raw: raw, coord: coord, typeName: typeName}
}

// text is the value appended to a data column.
func (c cellValue) text() string {
	switch c.kind {
	case kindText:
		return strings.Trim(c.raw, zeroWidthSpace)
	case kindInteger:
		return c.raw
	default:
		return Placeholder(c.typeName, c.coord)
	}
}

// headerText is the key a header cell binds. Headers of unhandled types
// fall back to their stored text rather than a placeholder.
func (c cellValue) headerText() string {
	if c.kind == kindInteger {
		return c.raw
	}
	return strings.Trim(c.raw, zeroWidthSpace)
}

// Placeholder is the value recorded for a cell whose stored type cannot be
// coerced to text, e.g. "#UNHANDLED(float)@B3".
func Placeholder(typeName, coord string) string {
	return fmt.Sprintf("#UNHANDLED(%s)@%s", typeName, coord)
}

// integerText reports whether a raw numeric value is an integer literal and
// returns its canonical decimal form. Values written with a fraction or an
// exponent ("42.0", "1E+3") are floats even when integral.
func integerText(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, ".eE") {
		return "", false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// isDateFormat reports whether style renders its number as a date or time.
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil && *style.CustomNumFmt != "" {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

// Built-in number format ids that render dates or times, including the
// East Asian locale ranges.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	default:
		return false
	}
}

func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range code {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ydhsm")
}
