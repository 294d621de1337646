package importer

import (
	"sort"
	"strings"
)

var (
	codeCurrencyModelHeaders = []string{
		"system model",
		"product",
		"product name",
		"model",
		"platform",
		"product family",
		"system",
	}
	installedCodeHeaders = []string{
		"installed code",
		"installed code version",
		"code version",
		"current code",
		"installed version",
		"firmware version",
		"software version",
		"version",
	}
)

type codeCurrencyBucket struct {
	systemModel string
	assetCount  int
	codes       []string
	seen        map[string]struct{}
}

// ImportCodeCurrency counts assets per system model and collects the
// distinct installed code levels seen for each. Support status and target
// versions are left empty; they are filled in by an editor afterwards.
func ImportCodeCurrency(rows []CsvRow, opts Options) CodeCurrencyImportResult {
	result := CodeCurrencyImportResult{ImportStats: ImportStats{TotalRows: len(rows)}}

	buckets := make(map[string]*codeCurrencyBucket)
	for _, raw := range rows {
		row := NormaliseRow(raw)
		model := collapseWhitespace(pick(row, codeCurrencyModelHeaders))
		if model == "" {
			result.Skipped++
			continue
		}
		if !result.admit(row, opts.CustomerName) {
			continue
		}

		key := strings.ToLower(model)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &codeCurrencyBucket{systemModel: model, seen: map[string]struct{}{}}
			buckets[key] = bucket
		}
		bucket.assetCount++

		code := pick(row, installedCodeHeaders)
		if code == "" {
			continue
		}
		if _, dup := bucket.seen[code]; dup {
			continue
		}
		bucket.seen[code] = struct{}{}
		bucket.codes = append(bucket.codes, code)
	}

	result.Rows = make([]CodeCurrencyRowDraft, 0, len(buckets))
	for _, bucket := range buckets {
		result.Rows = append(result.Rows, CodeCurrencyRowDraft{
			SystemModel:   bucket.systemModel,
			AssetCount:    bucket.assetCount,
			InstalledCode: strings.Join(bucket.codes, "\n"),
		})
	}
	sortCodeCurrency(result.Rows)
	return result
}

func codeCurrencyKey(row CodeCurrencyRowDraft) string {
	return strings.ToLower(collapseWhitespace(row.SystemModel))
}

func sortCodeCurrency(rows []CodeCurrencyRowDraft) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := strings.ToLower(rows[i].SystemModel), strings.ToLower(rows[j].SystemModel)
		if a != b {
			return a < b
		}
		return rows[i].SystemModel < rows[j].SystemModel
	})
}
