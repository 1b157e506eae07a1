package schema

import (
	"regexp"
	"time"
)

// bloodTypePattern matches the eight ABO/Rh blood groups after lowercasing.
var bloodTypePattern = regexp.MustCompile(`^(a|b|ab|o)[+-]$`)

// Patients returns the schema for hospital admission records.
//
// Name and gender are lowercased during cleaning. Age outside 0..120 is
// out-of-range rather than a parse failure. Billing amounts carry exactly two
// fractional digits; a third digit rejects the record instead of rounding.
func Patients() Schema {
	minAge, maxAge := IntRange(0, 120)
	return Schema{
		Table: "patients",
		Columns: []Column{
			{Name: "Name", Type: TypeText, Case: CaseLower},
			{Name: "Age", Type: TypeInteger, MinInt: minAge, MaxInt: maxAge},
			{Name: "Gender", Type: TypeText, Case: CaseLower},
			{Name: "Blood Type", Type: TypeText, Case: CaseLower, Pattern: bloodTypePattern},
			{Name: "Medical Condition", Type: TypeText},
			{Name: "Billing Amount", Type: TypeDecimal, Scale: 2},
			{Name: "Medication", Type: TypeText, Nullable: true},
			{Name: "Test Results", Type: TypeText, Enum: []string{"Normal", "Abnormal", "Inconclusive"}},
			{Name: "Date of Admission", Type: TypeDate, Layout: "2006-01-02",
				Min: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
			{Name: "Admission Type", Type: TypeText, Enum: []string{"Emergency", "Elective", "Urgent"}},
		},
	}
}
