package importer

import (
	"sort"
	"strings"
)

// TopProductsLimit is the fixed number of rows the dashboard renders.
const TopProductsLimit = 7

var (
	topProductNameHeaders = []string{
		"product",
		"product name",
		"product family",
		"product line",
		"product model",
		"platform",
		"model",
		"name",
	}
	topProductCountHeaders = []string{
		"count",
		"case count",
		"cases",
		"number of cases",
		"total cases",
		"sr count",
		"total",
		"quantity",
		"qty",
	}
	topProductPercentHeaders = []string{
		"percent",
		"percentage",
		"% of cases",
		"case %",
		"share",
		"pct",
		"%",
	}
	topProductRankHeaders = []string{
		"rank",
		"ranking",
		"position",
		"#",
	}
)

type topProductAggregate struct {
	product    string
	count      int
	percent    float64
	hasPercent bool
	rank       float64
	hasRank    bool
}

// ImportTopProducts aggregates case counts per product. Rows without an
// explicit count contribute 1; aggregates without an explicit percent get
// one inferred from their share of the total count.
func ImportTopProducts(rows []CsvRow, opts Options) TopProductsImportResult {
	result := TopProductsImportResult{ImportStats: ImportStats{TotalRows: len(rows)}}

	byKey := make(map[string]*topProductAggregate)
	aggregates := make([]*topProductAggregate, 0)

	for _, raw := range rows {
		row := NormaliseRow(raw)
		product := collapseWhitespace(pick(row, topProductNameHeaders))
		if product == "" {
			result.Skipped++
			continue
		}
		if !result.admit(row, opts.CustomerName) {
			continue
		}

		key := strings.ToLower(product)
		agg, ok := byKey[key]
		if !ok {
			agg = &topProductAggregate{product: product}
			byKey[key] = agg
			aggregates = append(aggregates, agg)
		}

		if count, ok := parseNumber(pick(row, topProductCountHeaders)); ok {
			agg.count += nonNegativeInt(count)
		} else {
			agg.count++
			result.Inferred.Counts = true
		}

		if percent, ok := parseNumber(pick(row, topProductPercentHeaders)); ok {
			agg.percent = percent
			agg.hasPercent = true
		}

		if rank, ok := parseNumber(pick(row, topProductRankHeaders)); ok && rank > 0 {
			if !agg.hasRank || rank < agg.rank {
				agg.rank = rank
				agg.hasRank = true
			}
		}
	}

	total := 0
	missingPercent := false
	for _, agg := range aggregates {
		total += agg.count
		if !agg.hasPercent {
			missingPercent = true
		}
	}
	if missingPercent {
		result.Inferred.Percents = true
		for _, agg := range aggregates {
			if agg.hasPercent {
				continue
			}
			agg.percent = 0
			if total > 0 {
				agg.percent = float64(agg.count) / float64(total) * 100
			}
		}
	}

	// Aggregates are still in first-seen order, so the stable sort breaks
	// full ties by it.
	sort.SliceStable(aggregates, func(i, j int) bool {
		return topProductBefore(aggregates[i].row(), aggregates[j].row())
	})

	products := make([]DashboardTopProduct, 0, len(aggregates))
	for _, agg := range aggregates {
		row := agg.row()
		row.Percent = roundPercent(agg.percent)
		products = append(products, row)
	}
	result.TopProducts = padTopProducts(products)
	return result
}

// row is the aggregate with its unrounded percent.
func (a *topProductAggregate) row() DashboardTopProduct {
	row := DashboardTopProduct{Product: a.product, Count: a.count, Percent: a.percent}
	if a.hasRank {
		row.Rank = a.rank
	}
	return row
}

// topProductBefore orders ranked rows first by ascending rank, then by count
// and percent descending.
func topProductBefore(a, b DashboardTopProduct) bool {
	aRanked, bRanked := a.Rank > 0, b.Rank > 0
	if aRanked != bRanked {
		return aRanked
	}
	if aRanked && a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Percent > b.Percent
}

// padTopProducts truncates to TopProductsLimit and pads with empty
// placeholder rows so the output always has exactly that many entries.
func padTopProducts(rows []DashboardTopProduct) []DashboardTopProduct {
	out := make([]DashboardTopProduct, TopProductsLimit)
	copy(out, rows)
	return out
}
