package importer

import (
	"sort"
	"strings"
)

// MergeTopProducts unions saved and imported dashboard rows by product
// name, imported rows winning. Placeholder rows are dropped before merging
// and the result is re-padded to TopProductsLimit.
func MergeTopProducts(current, incoming []DashboardTopProduct) []DashboardTopProduct {
	merged := mergeByKey(current, incoming, topProductKey)
	sort.SliceStable(merged, func(i, j int) bool {
		return topProductBefore(merged[i], merged[j])
	})
	return padTopProducts(merged)
}

// MergeCodeCurrency unions rows by system model, imported rows winning.
func MergeCodeCurrency(current, incoming []CodeCurrencyRowDraft) []CodeCurrencyRowDraft {
	merged := mergeByKey(current, incoming, codeCurrencyKey)
	sortCodeCurrency(merged)
	return merged
}

// MergeConnectivity unions rows by composite asset identity, imported rows
// winning.
func MergeConnectivity(current, incoming []ConnectivityRowDraft) []ConnectivityRowDraft {
	merged := mergeByKey(current, incoming, ConnectivityKey)
	sortConnectivity(merged)
	return merged
}

func topProductKey(row DashboardTopProduct) string {
	return strings.ToLower(collapseWhitespace(row.Product))
}

// mergeByKey keeps first-seen position per key while letting later rows
// replace earlier ones. Rows with an empty key are dropped.
func mergeByKey[T any](current, incoming []T, key func(T) string) []T {
	index := make(map[string]int, len(current)+len(incoming))
	out := make([]T, 0, len(current)+len(incoming))
	add := func(row T) {
		k := key(row)
		if k == "" {
			return
		}
		if i, ok := index[k]; ok {
			out[i] = row
			return
		}
		index[k] = len(out)
		out = append(out, row)
	}
	for _, row := range current {
		add(row)
	}
	for _, row := range incoming {
		add(row)
	}
	return out
}

// MergeConnectivityBuckets merges an import into both saved buckets. An
// asset imported into one bucket is removed from the other, so an asset that
// changed status moves rather than appearing twice.
func MergeConnectivityBuckets(connected, notConnected []ConnectivityRowDraft, result ConnectivityImportResult) ([]ConnectivityRowDraft, []ConnectivityRowDraft) {
	mergedConnected := MergeConnectivity(withoutKeys(connected, result.NotConnected), result.Connected)
	mergedNotConnected := MergeConnectivity(withoutKeys(notConnected, result.Connected), result.NotConnected)
	return mergedConnected, mergedNotConnected
}

func withoutKeys(rows, drop []ConnectivityRowDraft) []ConnectivityRowDraft {
	if len(drop) == 0 {
		return rows
	}
	dropped := make(map[string]struct{}, len(drop))
	for _, row := range drop {
		dropped[ConnectivityKey(row)] = struct{}{}
	}
	kept := make([]ConnectivityRowDraft, 0, len(rows))
	for _, row := range rows {
		if _, ok := dropped[ConnectivityKey(row)]; !ok {
			kept = append(kept, row)
		}
	}
	return kept
}
