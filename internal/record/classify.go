package record

// classify.go converts cleaned textual values into typed pgtype values.
//
// Classification is pure: given (value, column config) it always produces the
// same typed value or the same categorized error, with no side effects. The
// cleaning helpers handle the usual CSV mess: Excel formula prefixes,
// currency symbols, thousands separators, accounting-style negatives.

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/carelake/ingest/internal/schema"
)

// numericPattern validates a numeric literal after cleanup: integers and
// plain decimals. Scientific notation is not accepted by pgtype.Numeric.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// CleanCell removes common CSV artifacts from a cell value: surrounding
// whitespace, the Excel formula prefix (="..."), and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// Classify converts one cleaned, non-empty value to the column's destination
// type. It returns the typed value, or a categorized validation error.
func Classify(value string, col schema.Column) (any, *ValidationError) {
	switch col.Type {
	case schema.TypeText:
		return classifyText(value, col)
	case schema.TypeInteger:
		return classifyInteger(value, col)
	case schema.TypeDecimal:
		return classifyDecimal(value, col)
	case schema.TypeDate:
		return classifyDate(value, col)
	case schema.TypeTimestamp:
		return classifyTimestamp(value, col)
	case schema.TypeBool:
		return classifyBool(value, col)
	default:
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindParseFailure,
			Detail: fmt.Sprintf("unsupported column type %s", col.Type),
		}
	}
}

// Null returns the typed null for a column type, used for absent nullable
// values so every validated row stays type-correct for the database.
func Null(t schema.Type) any {
	switch t {
	case schema.TypeInteger:
		return pgtype.Int8{}
	case schema.TypeDecimal:
		return pgtype.Numeric{}
	case schema.TypeDate:
		return pgtype.Date{}
	case schema.TypeTimestamp:
		return pgtype.Timestamp{}
	case schema.TypeBool:
		return pgtype.Bool{}
	default:
		return pgtype.Text{}
	}
}

func classifyText(value string, col schema.Column) (any, *ValidationError) {
	normalized := applyCase(value, col.Case)

	if col.Pattern != nil && !col.Pattern.MatchString(normalized) {
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindPatternMismatch,
			Detail: fmt.Sprintf("does not match pattern %s", col.Pattern),
		}
	}

	if len(col.Enum) > 0 {
		found := false
		for _, ev := range col.Enum {
			if strings.EqualFold(ev, normalized) {
				found = true
				break
			}
		}
		if !found {
			return nil, &ValidationError{
				Column: col.Name,
				Value:  value,
				Kind:   KindPatternMismatch,
				Detail: fmt.Sprintf("must be one of: %s", strings.Join(col.Enum, ", ")),
			}
		}
	}

	return pgtype.Text{String: normalized, Valid: true}, nil
}

func classifyInteger(value string, col schema.Column) (any, *ValidationError) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		detail := "not a base-10 integer"
		if errors.Is(err, strconv.ErrRange) {
			detail = "integer overflows 64 bits"
		}
		return nil, &ValidationError{Column: col.Name, Value: value, Kind: KindParseFailure, Detail: detail}
	}

	if col.MinInt != nil && n < *col.MinInt {
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindOutOfRange,
			Detail: fmt.Sprintf("below minimum %d", *col.MinInt),
		}
	}
	if col.MaxInt != nil && n > *col.MaxInt {
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindOutOfRange,
			Detail: fmt.Sprintf("above maximum %d", *col.MaxInt),
		}
	}

	return pgtype.Int8{Int64: n, Valid: true}, nil
}

func classifyDecimal(value string, col schema.Column) (any, *ValidationError) {
	cleaned := cleanNumeric(value)

	if !numericPattern.MatchString(cleaned) {
		return nil, &ValidationError{Column: col.Name, Value: value, Kind: KindParseFailure, Detail: "not a decimal number"}
	}

	// Rounding is a policy decision made explicit: excess fractional digits
	// reject the value instead of silently truncating.
	if frac := fractionalDigits(cleaned); frac > col.Scale {
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindParseFailure,
			Detail: fmt.Sprintf("%d fractional digits exceed scale %d", frac, col.Scale),
		}
	}

	var n pgtype.Numeric
	if err := n.Scan(cleaned); err != nil {
		return nil, &ValidationError{Column: col.Name, Value: value, Kind: KindParseFailure, Detail: "not a decimal number"}
	}
	return n, nil
}

func classifyDate(value string, col schema.Column) (any, *ValidationError) {
	t, err := time.Parse(col.Layout, value)
	if err != nil {
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindParseFailure,
			Detail: fmt.Sprintf("does not match date layout %s", col.Layout),
		}
	}
	if verr := checkTimeBounds(t, value, col); verr != nil {
		return nil, verr
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func classifyTimestamp(value string, col schema.Column) (any, *ValidationError) {
	t, err := time.Parse(col.Layout, value)
	if err != nil {
		return nil, &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindParseFailure,
			Detail: fmt.Sprintf("does not match timestamp layout %s", col.Layout),
		}
	}
	if verr := checkTimeBounds(t, value, col); verr != nil {
		return nil, verr
	}
	return pgtype.Timestamp{Time: t, Valid: true}, nil
}

func classifyBool(value string, col schema.Column) (any, *ValidationError) {
	for _, lit := range col.Truthy() {
		if strings.EqualFold(lit, value) {
			return pgtype.Bool{Bool: true, Valid: true}, nil
		}
	}
	for _, lit := range col.Falsy() {
		if strings.EqualFold(lit, value) {
			return pgtype.Bool{Bool: false, Valid: true}, nil
		}
	}
	return nil, &ValidationError{
		Column: col.Name,
		Value:  value,
		Kind:   KindParseFailure,
		Detail: fmt.Sprintf("must be one of: %s / %s",
			strings.Join(col.Truthy(), ", "), strings.Join(col.Falsy(), ", ")),
	}
}

func checkTimeBounds(t time.Time, value string, col schema.Column) *ValidationError {
	if !col.Min.IsZero() && t.Before(col.Min) {
		return &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindOutOfRange,
			Detail: fmt.Sprintf("before minimum %s", col.Min.Format(col.Layout)),
		}
	}
	if !col.Max.IsZero() && t.After(col.Max) {
		return &ValidationError{
			Column: col.Name,
			Value:  value,
			Kind:   KindOutOfRange,
			Detail: fmt.Sprintf("after maximum %s", col.Max.Format(col.Layout)),
		}
	}
	return nil
}

func applyCase(s string, policy schema.CasePolicy) string {
	switch policy {
	case schema.CaseLower:
		return strings.ToLower(s)
	case schema.CaseUpper:
		return strings.ToUpper(s)
	case schema.CaseTitle:
		return cases.Title(language.English).String(s)
	default:
		return s
	}
}

// cleanNumeric strips currency symbols and thousands separators, and converts
// accounting-style "(123.45)" negatives to a leading minus.
func cleanNumeric(s string) string {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}
	return s
}

// fractionalDigits counts digits after the decimal point of a cleaned
// numeric literal. "99." has zero.
func fractionalDigits(s string) int {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	return len(s) - dot - 1
}

// FormatNumeric renders a numeric with exactly scale fractional digits,
// reproducing the digit sequence the value was parsed from. Returns the
// empty string for nulls.
func FormatNumeric(n pgtype.Numeric, scale int) string {
	if !n.Valid || n.Int == nil {
		return ""
	}

	v := new(big.Int).Set(n.Int)
	if shift := int(n.Exp) + scale; shift > 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(shift)), nil))
	} else if shift < 0 {
		// More stored digits than the requested scale; classification
		// guarantees this cannot happen for values it produced.
		v.Quo(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-shift)), nil))
	}

	negative := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if scale > 0 {
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if negative {
		digits = "-" + digits
	}
	return digits
}
