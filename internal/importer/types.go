package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CsvRow is one parsed line of a vendor export keyed by its raw header.
type CsvRow map[string]string

// NormalizedRow is a CsvRow with lower-cased, whitespace-collapsed headers
// and trimmed values.
type NormalizedRow map[string]string

type Options struct {
	CustomerName string `json:"customerName,omitempty"`
}

type FilteredCounts struct {
	ByCustomer int `json:"byCustomer"`
}

type Metadata struct {
	CustomerColumn *string `json:"customerColumn"`
}

// ImportStats is the bookkeeping shared by every importer result.
type ImportStats struct {
	Skipped       int            `json:"skipped"`
	TotalRows     int            `json:"totalRows"`
	ProcessedRows int            `json:"processedRows"`
	Filtered      FilteredCounts `json:"filtered"`
	Metadata      Metadata       `json:"metadata"`
}

// admit runs the customer filter for one row and records the outcome.
func (s *ImportStats) admit(row NormalizedRow, customerName string) bool {
	decision := EvaluateCustomerFilter(row, customerName)
	if decision.Column != "" && s.Metadata.CustomerColumn == nil {
		column := decision.Column
		s.Metadata.CustomerColumn = &column
	}
	if !decision.Include {
		s.Filtered.ByCustomer++
		return false
	}
	s.ProcessedRows++
	return true
}

// DashboardTopProduct is one dashboard row. Rank is the vendor's explicit
// rank; zero means unranked.
type DashboardTopProduct struct {
	Product string  `json:"product"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
	Rank    float64 `json:"rank,omitempty"`
}

type InferredFlags struct {
	Counts   bool `json:"counts"`
	Percents bool `json:"percents"`
}

type TopProductsImportResult struct {
	TopProducts []DashboardTopProduct `json:"topProducts"`
	Inferred    InferredFlags         `json:"inferred"`
	ImportStats
}

type CodeCurrencyStatuses struct {
	O bool `json:"o,omitempty"`
	M bool `json:"m,omitempty"`
	R bool `json:"r,omitempty"`
	L bool `json:"l,omitempty"`
}

type CodeCurrencyRowDraft struct {
	SystemModel   string               `json:"systemModel"`
	AssetCount    int                  `json:"assetCount"`
	InstalledCode string               `json:"installedCode"`
	Statuses      CodeCurrencyStatuses `json:"statuses"`
	MinSupported7 string               `json:"minSupported7"`
	MinSupported8 string               `json:"minSupported8"`
	Recommended7  string               `json:"recommended7"`
	Recommended8  string               `json:"recommended8"`
	Latest7       string               `json:"latest7"`
	Latest8       string               `json:"latest8"`
}

type CodeCurrencyImportResult struct {
	Rows []CodeCurrencyRowDraft `json:"rows"`
	ImportStats
}

// HealthScore is a connectivity health score that serializes as a JSON
// number, or as "" when the score is unknown.
type HealthScore struct {
	Value float64
	Valid bool
}

func Score(v float64) HealthScore {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return HealthScore{}
	}
	return HealthScore{Value: v, Valid: true}
}

func (s HealthScore) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte(`""`), nil
	}
	return json.Marshal(s.Value)
}

func (s *HealthScore) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = HealthScore{}
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("decode health score: %w", err)
		}
		*s = parseHealthScore(raw)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("decode health score: %w", err)
	}
	*s = Score(v)
	return nil
}

func (s HealthScore) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func parseHealthScore(raw string) HealthScore {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return HealthScore{}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return HealthScore{}
	}
	return Score(v)
}

const (
	HealthGood = "Good"
	HealthFair = "Fair"
	HealthPoor = "Poor"
)

type ConnectivityRowDraft struct {
	AssetID          string      `json:"assetId"`
	AlternateAssetID string      `json:"alternateAssetId"`
	ProductName      string      `json:"productName"`
	AssetAlias       string      `json:"assetAlias"`
	LastAlertAt      string      `json:"lastAlertAt"`
	ConnectionType   string      `json:"connectionType"`
	HealthScore      HealthScore `json:"healthScore"`
	HealthLabel      string      `json:"healthLabel"`
}

type ConnectivitySummary struct {
	TotalAssets    int `json:"totalAssets"`
	ConnectedCount int `json:"connectedCount"`
}

type ConnectivityImportResult struct {
	Connected    []ConnectivityRowDraft `json:"connected"`
	NotConnected []ConnectivityRowDraft `json:"notConnected"`
	Summary      ConnectivitySummary    `json:"summary"`
	StatusCounts map[string]int         `json:"statusCounts"`
	ImportStats
}
