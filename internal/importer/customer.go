package importer

import (
	"strings"
	"unicode"
)

// customerHeaders is scanned in order; vendor exports name the customer
// column inconsistently.
var customerHeaders = []string{
	"customer",
	"customer name",
	"account",
	"account name",
	"site",
	"site name",
	"location",
	"company",
	"company name",
	"organization",
	"end customer",
	"party name",
}

// FilterDecision reports whether a row belongs to the requested customer
// and which column the decision was based on ("" when none).
type FilterDecision struct {
	Include bool
	Column  string
}

// EvaluateCustomerFilter matches a row against customerName by substring
// containment in either direction. It fails open when none of the known
// customer columns carry a value and fails closed when they do but none
// match.
func EvaluateCustomerFilter(row NormalizedRow, customerName string) FilterDecision {
	target := normaliseCustomer(customerName)
	if target == "" {
		return FilterDecision{Include: true}
	}

	firstPresent := ""
	for _, header := range customerHeaders {
		value := normaliseCustomer(row[header])
		if value == "" {
			continue
		}
		if strings.Contains(value, target) || strings.Contains(target, value) {
			return FilterDecision{Include: true, Column: header}
		}
		if firstPresent == "" {
			firstPresent = header
		}
	}

	if firstPresent != "" {
		return FilterDecision{Include: false, Column: firstPresent}
	}
	return FilterDecision{Include: true}
}

// normaliseCustomer lower-cases and collapses every run of characters that
// are not letters or digits into a single space.
func normaliseCustomer(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	gap := false
	for _, r := range strings.ToLower(value) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			gap = true
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte(' ')
		}
		gap = false
		b.WriteRune(r)
	}
	return b.String()
}
