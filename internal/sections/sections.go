// Package sections knows which report sections exist, how their JSON
// documents are validated on the way in and out of storage, and what they
// contain before anything has been saved.
package sections

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/unified-report/apps/api/internal/importer"
)

const (
	KeyTopProducts            = "dashboard.topProducts"
	KeyDashboardSummary       = "dashboard.summary"
	KeyCodeCurrency           = "codeCurrency.rows"
	KeyConnectivityConnected  = "connectivity.connected"
	KeyConnectivityNotConnect = "connectivity.notConnected"
	KeyConnectivityNotes      = "connectivity.notes"
)

type Kind string

const (
	KindTopProducts  Kind = "top_products"
	KindCodeCurrency Kind = "code_currency"
	KindConnectivity Kind = "connectivity"
	KindText         Kind = "text"
)

var (
	ErrUnknownSection = errors.New("unknown section")
	ErrInvalidContent = errors.New("invalid section content")
)

var registry = map[string]Kind{
	KeyTopProducts:            KindTopProducts,
	KeyDashboardSummary:       KindText,
	KeyCodeCurrency:           KindCodeCurrency,
	KeyConnectivityConnected:  KindConnectivity,
	KeyConnectivityNotConnect: KindConnectivity,
	KeyConnectivityNotes:      KindText,
}

func Lookup(key string) (Kind, bool) {
	kind, ok := registry[key]
	return kind, ok
}

// Keys returns every known section key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Decode parses a stored document and re-validates it through the importer
// coercers. The result is one of []importer.DashboardTopProduct,
// []importer.CodeCurrencyRowDraft, []importer.ConnectivityRowDraft or string.
func Decode(key, raw string) (any, error) {
	kind, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, key)
	}
	switch kind {
	case KindTopProducts:
		return DecodeTopProducts(raw)
	case KindCodeCurrency:
		return DecodeCodeCurrency(raw)
	case KindConnectivity:
		return DecodeConnectivity(raw)
	}
	return decodeText(raw), nil
}

func DecodeTopProducts(raw string) ([]importer.DashboardTopProduct, error) {
	items, err := decodeItems(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyTopProducts, err)
	}
	return importer.CoerceTopProducts(items), nil
}

func DecodeCodeCurrency(raw string) ([]importer.CodeCurrencyRowDraft, error) {
	items, err := decodeItems(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyCodeCurrency, err)
	}
	return importer.CoerceCodeCurrency(items), nil
}

func DecodeConnectivity(raw string) ([]importer.ConnectivityRowDraft, error) {
	items, err := decodeItems(raw)
	if err != nil {
		return nil, fmt.Errorf("decode connectivity rows: %w", err)
	}
	return importer.CoerceConnectivity(items), nil
}

// Normalize validates an editor-supplied body for key and returns the
// canonical text to persist.
func Normalize(key string, body json.RawMessage) (string, error) {
	kind, ok := Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSection, key)
	}
	if kind == KindText {
		var text string
		if err := json.Unmarshal(body, &text); err != nil {
			return "", fmt.Errorf("%w: %s expects a string", ErrInvalidContent, key)
		}
		return Encode(key, text)
	}
	value, err := Decode(key, string(body))
	if err != nil {
		return "", err
	}
	return Encode(key, value)
}

// Encode produces the canonical JSON text persisted for a section.
func Encode(key string, value any) (string, error) {
	kind, ok := Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSection, key)
	}

	switch v := value.(type) {
	case string:
		if kind != KindText {
			return "", fmt.Errorf("%w: %s expects rows", ErrInvalidContent, key)
		}
	case []importer.DashboardTopProduct:
		if kind != KindTopProducts {
			return "", fmt.Errorf("%w: top products rows for %s", ErrInvalidContent, key)
		}
		if v == nil {
			value = []importer.DashboardTopProduct{}
		}
	case []importer.CodeCurrencyRowDraft:
		if kind != KindCodeCurrency {
			return "", fmt.Errorf("%w: code currency rows for %s", ErrInvalidContent, key)
		}
		if v == nil {
			value = []importer.CodeCurrencyRowDraft{}
		}
	case []importer.ConnectivityRowDraft:
		if kind != KindConnectivity {
			return "", fmt.Errorf("%w: connectivity rows for %s", ErrInvalidContent, key)
		}
		if v == nil {
			value = []importer.ConnectivityRowDraft{}
		}
	default:
		return "", fmt.Errorf("%w: unsupported value %T", ErrInvalidContent, value)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	return string(encoded), nil
}

func decodeItems(raw string) ([]map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return items, nil
}

// decodeText accepts a JSON string or, for rows written before content was
// JSON-encoded, the bare text.
func decodeText(raw string) string {
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err == nil {
		return text
	}
	return raw
}
