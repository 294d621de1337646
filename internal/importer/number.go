package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	numberNoise    = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", "%", "", ",", "", " ", "", "\u00a0", "")
	thousandsSep   = strings.NewReplacer(",", "", "\u00a0", "")
	embeddedNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// parseNumber reads a count/percent/rank cell. Currency and percent symbols
// and thousands separators are ignored; if the cleaned cell still does not
// parse, the first numeral embedded in it is used. Separators are removed
// before that search; spaces stay as word boundaries.
func parseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(numberNoise.Replace(trimmed), 64); err == nil && isFinite(v) {
		return v, true
	}
	match := embeddedNumber.FindString(thousandsSep.Replace(trimmed))
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func nonNegativeInt(v float64) int {
	if !isFinite(v) {
		return 0
	}
	rounded := math.Round(v)
	if rounded <= 0 {
		return 0
	}
	if rounded > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(rounded)
}

// roundPercent clamps to [0,100] and rounds half away from zero to one
// decimal place.
func roundPercent(v float64) float64 {
	if !isFinite(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
