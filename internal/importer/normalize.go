// Package importer turns loosely structured vendor exports into the
// canonical row shapes stored per report section, and merges freshly
// imported rows into previously saved ones.
//
// Everything here is pure: no I/O, no shared state, inputs are never
// mutated. Malformed cells never produce errors; rows are skipped,
// filtered, or fall back to defaults and the counts are reported.
package importer

import (
	"sort"
	"strings"
)

// NormaliseRow lower-cases headers, collapses their internal whitespace and
// trims values. CsvRow carries no column order, so when two raw headers
// collapse to the same key they are visited in sorted raw-key order and the
// first non-empty value wins.
func NormaliseRow(row CsvRow) NormalizedRow {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(NormalizedRow, len(row))
	for _, rawKey := range keys {
		key := normaliseHeader(rawKey)
		if key == "" {
			continue
		}
		value := strings.TrimSpace(row[rawKey])
		if existing, ok := out[key]; ok && existing != "" {
			continue
		}
		out[key] = value
	}
	return out
}

func normaliseHeader(raw string) string {
	trimmed := strings.TrimPrefix(raw, "\ufeff")
	return collapseWhitespace(strings.ToLower(trimmed))
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// pick returns the first non-empty value among headers, in priority order.
func pick(row NormalizedRow, headers []string) string {
	_, value := pickHeader(row, headers)
	return value
}

func pickHeader(row NormalizedRow, headers []string) (string, string) {
	for _, header := range headers {
		if value := row[header]; value != "" {
			return header, value
		}
	}
	return "", ""
}
