package importer

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The Coerce* functions re-validate rows that crossed a trust boundary:
// JSON read back from storage or sent by an editor. Every field is coerced
// to its canonical type; rows without an identity are dropped.

func CoerceTopProducts(items []map[string]any) []DashboardTopProduct {
	rows := make([]DashboardTopProduct, 0, len(items))
	for _, item := range items {
		product := collapseWhitespace(stringValue(item["product"]))
		if product == "" {
			continue
		}
		row := DashboardTopProduct{Product: product}
		if v, ok := numberValue(item["count"]); ok {
			row.Count = nonNegativeInt(v)
		}
		if v, ok := numberValue(item["percent"]); ok {
			row.Percent = roundPercent(v)
		}
		if v, ok := numberValue(item["rank"]); ok && v > 0 {
			row.Rank = v
		}
		rows = append(rows, row)
	}
	return padTopProducts(rows)
}

func CoerceCodeCurrency(items []map[string]any) []CodeCurrencyRowDraft {
	rows := make([]CodeCurrencyRowDraft, 0, len(items))
	for _, item := range items {
		model := collapseWhitespace(stringValue(item["systemModel"]))
		if model == "" {
			continue
		}
		row := CodeCurrencyRowDraft{
			SystemModel:   model,
			InstalledCode: normaliseLines(stringValue(item["installedCode"])),
			MinSupported7: stringValue(item["minSupported7"]),
			MinSupported8: stringValue(item["minSupported8"]),
			Recommended7:  stringValue(item["recommended7"]),
			Recommended8:  stringValue(item["recommended8"]),
			Latest7:       stringValue(item["latest7"]),
			Latest8:       stringValue(item["latest8"]),
		}
		if v, ok := numberValue(item["assetCount"]); ok {
			row.AssetCount = nonNegativeInt(v)
		}
		if statuses, ok := item["statuses"].(map[string]any); ok {
			row.Statuses = CodeCurrencyStatuses{
				O: boolValue(statuses["o"]),
				M: boolValue(statuses["m"]),
				R: boolValue(statuses["r"]),
				L: boolValue(statuses["l"]),
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func CoerceConnectivity(items []map[string]any) []ConnectivityRowDraft {
	rows := make([]ConnectivityRowDraft, 0, len(items))
	for _, item := range items {
		row := ConnectivityRowDraft{
			AssetID:          stringValue(item["assetId"]),
			AlternateAssetID: stringValue(item["alternateAssetId"]),
			ProductName:      collapseWhitespace(stringValue(item["productName"])),
			AssetAlias:       stringValue(item["assetAlias"]),
			LastAlertAt:      stringValue(item["lastAlertAt"]),
			ConnectionType:   stringValue(item["connectionType"]),
		}
		if row.AssetID == "" && row.AlternateAssetID == "" && row.ProductName == "" {
			continue
		}
		row.HealthScore = healthScoreValue(item["healthScore"])
		row.HealthLabel = resolveHealthLabel(stringValue(item["healthLabel"]), row.HealthScore)
		rows = append(rows, row)
	}
	return rows
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, isFinite(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && isFinite(f)
	case string:
		return parseNumber(t)
	default:
		return 0, false
	}
}

func boolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "x":
			return true
		}
	}
	return false
}

func healthScoreValue(v any) HealthScore {
	switch t := v.(type) {
	case float64:
		return Score(t)
	case int:
		return Score(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return HealthScore{}
		}
		return Score(f)
	case string:
		return parseHealthScore(t)
	default:
		return HealthScore{}
	}
}

func normaliseLines(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	lines := strings.Split(value, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
