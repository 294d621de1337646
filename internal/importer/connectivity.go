package importer

import (
	"sort"
	"strings"
)

const statusConnected = "connected"

var (
	assetIDHeaders = []string{
		"asset id",
		"asset",
		"service tag",
		"serial number",
		"serial",
	}
	alternateAssetIDHeaders = []string{
		"alternate asset id",
		"alternate id",
		"alt asset id",
		"product serial number",
		"psnt",
	}
	connectivityProductHeaders = []string{
		"product name",
		"product",
		"system model",
		"model",
		"platform",
	}
	assetAliasHeaders = []string{
		"asset alias",
		"alias",
		"asset name",
		"hostname",
		"system name",
	}
	lastAlertHeaders = []string{
		"last alert",
		"last alert at",
		"last alert date",
		"last alert received",
	}
	connectionTypeHeaders = []string{
		"connection type",
		"connectivity type",
		"connection method",
	}
	healthScoreHeaders = []string{
		"health score",
		"health",
		"score",
	}
	healthLabelHeaders = []string{
		"health label",
		"health status",
		"health rating",
	}
	connectivityStatusHeaders = []string{
		"connectivity status",
		"connection status",
	}
)

// ImportConnectivity splits assets into connected and not-connected sets.
// An asset that appears more than once keeps its last row, in whichever set
// that row's status routes it to.
func ImportConnectivity(rows []CsvRow, opts Options) ConnectivityImportResult {
	result := ConnectivityImportResult{
		ImportStats:  ImportStats{TotalRows: len(rows)},
		StatusCounts: map[string]int{},
	}

	connected := make(map[string]ConnectivityRowDraft)
	notConnected := make(map[string]ConnectivityRowDraft)

	for _, raw := range rows {
		row := NormaliseRow(raw)
		draft := ConnectivityRowDraft{
			AssetID:          pick(row, assetIDHeaders),
			AlternateAssetID: pick(row, alternateAssetIDHeaders),
			ProductName:      collapseWhitespace(pick(row, connectivityProductHeaders)),
		}
		if draft.AssetID == "" && draft.AlternateAssetID == "" && draft.ProductName == "" {
			result.Skipped++
			continue
		}

		status := strings.ToLower(pick(row, connectivityStatusHeaders))
		if status == "" {
			status = "unknown"
		}
		result.StatusCounts[status]++

		if !result.admit(row, opts.CustomerName) {
			continue
		}

		draft.AssetAlias = pick(row, assetAliasHeaders)
		draft.LastAlertAt = pick(row, lastAlertHeaders)
		draft.ConnectionType = pick(row, connectionTypeHeaders)
		draft.HealthScore = parseHealthScore(pick(row, healthScoreHeaders))
		draft.HealthLabel = resolveHealthLabel(pick(row, healthLabelHeaders), draft.HealthScore)

		// One asset lives in exactly one set: the status of its last row.
		key := ConnectivityKey(draft)
		if status == statusConnected {
			delete(notConnected, key)
			connected[key] = draft
		} else {
			delete(connected, key)
			notConnected[key] = draft
		}
	}

	result.Connected = connectivityRows(connected)
	result.NotConnected = connectivityRows(notConnected)
	result.Summary = ConnectivitySummary{
		TotalAssets:    len(result.Connected) + len(result.NotConnected),
		ConnectedCount: len(result.Connected),
	}
	return result
}

// ConnectivityKey identifies an asset by its lower-cased identifying fields,
// skipping empty ones.
func ConnectivityKey(row ConnectivityRowDraft) string {
	parts := make([]string, 0, 4)
	for _, field := range []string{row.AssetID, row.AlternateAssetID, row.ProductName, row.AssetAlias} {
		if v := strings.ToLower(strings.TrimSpace(field)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "|")
}

// DeriveHealthLabel maps a score onto Good (>=80), Fair (>=55) or Poor.
func DeriveHealthLabel(score HealthScore) string {
	switch {
	case !score.Valid:
		return ""
	case score.Value >= 80:
		return HealthGood
	case score.Value >= 55:
		return HealthFair
	default:
		return HealthPoor
	}
}

func resolveHealthLabel(raw string, score HealthScore) string {
	switch raw {
	case HealthGood, HealthFair, HealthPoor:
		return raw
	}
	return DeriveHealthLabel(score)
}

func connectivityRows(byKey map[string]ConnectivityRowDraft) []ConnectivityRowDraft {
	rows := make([]ConnectivityRowDraft, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, row)
	}
	sortConnectivity(rows)
	return rows
}

func sortConnectivity(rows []ConnectivityRowDraft) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if x, y := strings.ToLower(a.ProductName), strings.ToLower(b.ProductName); x != y {
			return x < y
		}
		if x, y := strings.ToLower(a.AssetID), strings.ToLower(b.AssetID); x != y {
			return x < y
		}
		if x, y := strings.ToLower(a.AlternateAssetID), strings.ToLower(b.AlternateAssetID); x != y {
			return x < y
		}
		return ConnectivityKey(a) < ConnectivityKey(b)
	})
}
