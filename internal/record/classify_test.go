package record

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/carelake/ingest/internal/schema"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"whitespace", "  hello  ", "hello"},
		{"excel formula quoted", `="12345"`, "12345"},
		{"excel formula bare", "=12345", "12345"},
		{"double quotes", `"hello"`, "hello"},
		{"single quotes", "'hello'", "hello"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyText(t *testing.T) {
	pattern := regexp.MustCompile(`^(a|b|ab|o)[+-]$`)

	tests := []struct {
		name     string
		value    string
		col      schema.Column
		want     string
		wantKind ErrorKind
	}{
		{
			name:  "lowercase policy",
			value: "Bobby JacksOn",
			col:   schema.Column{Name: "Name", Type: schema.TypeText, Case: schema.CaseLower},
			want:  "bobby jackson",
		},
		{
			name:  "uppercase policy",
			value: "abc",
			col:   schema.Column{Name: "Code", Type: schema.TypeText, Case: schema.CaseUpper},
			want:  "ABC",
		},
		{
			name:  "title policy",
			value: "emergency room",
			col:   schema.Column{Name: "Ward", Type: schema.TypeText, Case: schema.CaseTitle},
			want:  "Emergency Room",
		},
		{
			name:  "no policy keeps case",
			value: "MiXeD",
			col:   schema.Column{Name: "Note", Type: schema.TypeText},
			want:  "MiXeD",
		},
		{
			name:  "pattern match after lowering",
			value: "AB+",
			col:   schema.Column{Name: "Blood Type", Type: schema.TypeText, Case: schema.CaseLower, Pattern: pattern},
			want:  "ab+",
		},
		{
			name:     "pattern mismatch",
			value:    "xyz",
			col:      schema.Column{Name: "Blood Type", Type: schema.TypeText, Case: schema.CaseLower, Pattern: pattern},
			wantKind: KindPatternMismatch,
		},
		{
			name:  "enum member ignoring case",
			value: "abnormal",
			col:   schema.Column{Name: "Test Results", Type: schema.TypeText, Enum: []string{"Normal", "Abnormal"}},
			want:  "abnormal",
		},
		{
			name:     "enum non-member",
			value:    "weird",
			col:      schema.Column{Name: "Test Results", Type: schema.TypeText, Enum: []string{"Normal", "Abnormal"}},
			wantKind: KindPatternMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := Classify(tt.value, tt.col)
			if tt.wantKind != "" {
				requireKind(t, verr, tt.wantKind)
				return
			}
			if verr != nil {
				t.Fatalf("Classify(%q) error = %v", tt.value, verr)
			}
			text, ok := got.(pgtype.Text)
			if !ok || !text.Valid {
				t.Fatalf("Classify(%q) = %#v, want valid pgtype.Text", tt.value, got)
			}
			if text.String != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.value, text.String, tt.want)
			}
		})
	}
}

func TestClassifyInteger(t *testing.T) {
	minAge, maxAge := schema.IntRange(0, 120)
	col := schema.Column{Name: "Age", Type: schema.TypeInteger, MinInt: minAge, MaxInt: maxAge}

	tests := []struct {
		name     string
		value    string
		want     int64
		wantKind ErrorKind
	}{
		{name: "valid", value: "30", want: 30},
		{name: "lower bound", value: "0", want: 0},
		{name: "upper bound", value: "120", want: 120},
		{name: "below minimum", value: "-1", wantKind: KindOutOfRange},
		{name: "above maximum", value: "121", wantKind: KindOutOfRange},
		{name: "not a number", value: "thirty", wantKind: KindParseFailure},
		{name: "decimal rejected", value: "30.5", wantKind: KindParseFailure},
		{name: "overflow", value: "99999999999999999999", wantKind: KindParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := Classify(tt.value, col)
			if tt.wantKind != "" {
				requireKind(t, verr, tt.wantKind)
				return
			}
			if verr != nil {
				t.Fatalf("Classify(%q) error = %v", tt.value, verr)
			}
			n := got.(pgtype.Int8)
			if !n.Valid || n.Int64 != tt.want {
				t.Errorf("Classify(%q) = %#v, want %d", tt.value, n, tt.want)
			}
		})
	}
}

func TestClassifyInteger_Unbounded(t *testing.T) {
	col := schema.Column{Name: "Count", Type: schema.TypeInteger}
	got, verr := Classify("-987654", col)
	if verr != nil {
		t.Fatalf("Classify() error = %v", verr)
	}
	if n := got.(pgtype.Int8); n.Int64 != -987654 {
		t.Errorf("Classify() = %d, want -987654", n.Int64)
	}
}

func TestClassifyDecimal(t *testing.T) {
	col := schema.Column{Name: "Billing Amount", Type: schema.TypeDecimal, Scale: 2}

	tests := []struct {
		name     string
		value    string
		want     string
		wantKind ErrorKind
	}{
		{name: "two fractional digits", value: "18856.28", want: "18856.28"},
		{name: "one fractional digit", value: "99.5", want: "99.50"},
		{name: "integer", value: "100", want: "100.00"},
		{name: "currency symbol", value: "$1,234.56", want: "1234.56"},
		{name: "accounting negative", value: "(45.10)", want: "-45.10"},
		{name: "leading plus", value: "+7.25", want: "7.25"},
		{name: "excess fractional digits", value: "18856.281", wantKind: KindParseFailure},
		{name: "not a number", value: "abc", wantKind: KindParseFailure},
		{name: "scientific notation", value: "1e5", wantKind: KindParseFailure},
		{name: "double dot", value: "1.2.3", wantKind: KindParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := Classify(tt.value, col)
			if tt.wantKind != "" {
				requireKind(t, verr, tt.wantKind)
				return
			}
			if verr != nil {
				t.Fatalf("Classify(%q) error = %v", tt.value, verr)
			}
			n := got.(pgtype.Numeric)
			if !n.Valid {
				t.Fatalf("Classify(%q) produced null numeric", tt.value)
			}
			if s := FormatNumeric(n, col.Scale); s != tt.want {
				t.Errorf("Classify(%q) renders %q, want %q", tt.value, s, tt.want)
			}
		})
	}
}

func TestClassifyDate(t *testing.T) {
	col := schema.Column{
		Name:   "Date of Admission",
		Type:   schema.TypeDate,
		Layout: "2006-01-02",
		Min:    time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		Max:    time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		value    string
		want     time.Time
		wantKind ErrorKind
	}{
		{name: "valid", value: "2024-01-31", want: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{name: "wrong layout", value: "01/31/2024", wantKind: KindParseFailure},
		{name: "impossible day", value: "2024-02-30", wantKind: KindParseFailure},
		{name: "before minimum", value: "1899-12-31", wantKind: KindOutOfRange},
		{name: "after maximum", value: "2100-01-02", wantKind: KindOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, verr := Classify(tt.value, col)
			if tt.wantKind != "" {
				requireKind(t, verr, tt.wantKind)
				return
			}
			if verr != nil {
				t.Fatalf("Classify(%q) error = %v", tt.value, verr)
			}
			d := got.(pgtype.Date)
			if !d.Valid || !d.Time.Equal(tt.want) {
				t.Errorf("Classify(%q) = %v, want %v", tt.value, d.Time, tt.want)
			}
		})
	}
}

func TestClassifyBool(t *testing.T) {
	col := schema.Column{Name: "Readmitted", Type: schema.TypeBool}

	tests := []struct {
		value    string
		want     bool
		wantKind ErrorKind
	}{
		{value: "true", want: true},
		{value: "YES", want: true},
		{value: "y", want: true},
		{value: "1", want: true},
		{value: "False", want: false},
		{value: "no", want: false},
		{value: "0", want: false},
		{value: "maybe", wantKind: KindParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, verr := Classify(tt.value, col)
			if tt.wantKind != "" {
				requireKind(t, verr, tt.wantKind)
				return
			}
			if verr != nil {
				t.Fatalf("Classify(%q) error = %v", tt.value, verr)
			}
			b := got.(pgtype.Bool)
			if !b.Valid || b.Bool != tt.want {
				t.Errorf("Classify(%q) = %#v, want %v", tt.value, b, tt.want)
			}
		})
	}
}

func TestNull(t *testing.T) {
	tests := []struct {
		typ  schema.Type
		want any
	}{
		{schema.TypeText, pgtype.Text{}},
		{schema.TypeInteger, pgtype.Int8{}},
		{schema.TypeDecimal, pgtype.Numeric{}},
		{schema.TypeDate, pgtype.Date{}},
		{schema.TypeTimestamp, pgtype.Timestamp{}},
		{schema.TypeBool, pgtype.Bool{}},
	}

	for _, tt := range tests {
		if got := Null(tt.typ); got != tt.want {
			t.Errorf("Null(%s) = %#v, want %#v", tt.typ, got, tt.want)
		}
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Column: "Age", Value: "-3", Kind: KindOutOfRange, Detail: "below minimum 0"}
	got := e.Error()
	if !strings.Contains(got, "Age") || !strings.Contains(got, "-3") || !strings.Contains(got, "below minimum 0") {
		t.Errorf("Error() = %q, missing column, value, or detail", got)
	}
}

func requireKind(t *testing.T, verr *ValidationError, want ErrorKind) {
	t.Helper()
	if verr == nil {
		t.Fatalf("expected %s error, got none", want)
	}
	if verr.Kind != want {
		t.Fatalf("error kind = %s, want %s (detail %q)", verr.Kind, want, verr.Detail)
	}
}
