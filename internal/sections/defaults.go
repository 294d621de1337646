package sections

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unified-report/apps/api/internal/importer"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

// Defaults holds the seed content served for sections that have never been
// saved for an engagement.
type Defaults struct {
	Version           string
	SHA256            string
	TopProducts       []importer.DashboardTopProduct
	CodeCurrency      []importer.CodeCurrencyRowDraft
	ConnectivityNotes string
	DashboardSummary  string
}

type defaultsFile struct {
	Version           string           `yaml:"version"`
	TopProducts       []map[string]any `yaml:"top_products"`
	CodeCurrency      []map[string]any `yaml:"code_currency"`
	ConnectivityNotes string           `yaml:"connectivity_notes"`
	DashboardSummary  string           `yaml:"dashboard_summary"`
}

// LoadDefaults reads section defaults from path, or from the built-in table
// when path is empty.
func LoadDefaults(path string) (Defaults, error) {
	if strings.TrimSpace(path) == "" {
		return ParseDefaults(embeddedDefaults)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("read section defaults: %w", err)
	}
	return ParseDefaults(raw)
}

func ParseDefaults(raw []byte) (Defaults, error) {
	var file defaultsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Defaults{}, fmt.Errorf("parse section defaults: %w", err)
	}
	if strings.TrimSpace(file.Version) == "" {
		return Defaults{}, errors.New("section defaults: version is required")
	}

	sum := sha256.Sum256(raw)
	return Defaults{
		Version:           file.Version,
		SHA256:            hex.EncodeToString(sum[:]),
		TopProducts:       importer.CoerceTopProducts(file.TopProducts),
		CodeCurrency:      importer.CoerceCodeCurrency(file.CodeCurrency),
		ConnectivityNotes: strings.TrimSpace(file.ConnectivityNotes),
		DashboardSummary:  strings.TrimSpace(file.DashboardSummary),
	}, nil
}

// For returns the default value for a section key in the same shape Decode
// produces.
func (d Defaults) For(key string) (any, error) {
	switch key {
	case KeyTopProducts:
		return append([]importer.DashboardTopProduct(nil), d.TopProducts...), nil
	case KeyCodeCurrency:
		return append([]importer.CodeCurrencyRowDraft{}, d.CodeCurrency...), nil
	case KeyConnectivityConnected, KeyConnectivityNotConnect:
		return []importer.ConnectivityRowDraft{}, nil
	case KeyConnectivityNotes:
		return d.ConnectivityNotes, nil
	case KeyDashboardSummary:
		return d.DashboardSummary, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSection, key)
}
