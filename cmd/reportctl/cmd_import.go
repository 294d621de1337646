package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unified-report/apps/api/internal/importer"
	"github.com/unified-report/apps/api/internal/sections"
	"github.com/unified-report/apps/api/internal/upload"
)

var importFlags struct {
	customer  string
	mergeWith string
	maxRows   int
}

var importCmd = &cobra.Command{
	Use:   "import <top-products|code-currency|connectivity> <file>",
	Short: "Run an importer over a CSV or XLSX export and print the result",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importFlags.customer, "customer", "", "Keep only rows whose customer column contains this name")
	f.StringVar(&importFlags.mergeWith, "merge-with", "", "JSON file of saved rows to merge the import into")
	f.IntVar(&importFlags.maxRows, "max-rows", 0, "Reject files with more data rows than this (0 = no limit)")
}

type importOutput struct {
	Upload upload.Meta    `json:"upload"`
	Result any            `json:"result"`
	Merged map[string]any `json:"merged,omitempty"`
}

// connectivityFile is the --merge-with shape for connectivity imports.
type connectivityFile struct {
	Connected    json.RawMessage `json:"connected"`
	NotConnected json.RawMessage `json:"notConnected"`
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, path := strings.ToLower(args[0]), args[1]

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, meta, err := upload.Read(filepath.Base(path), file, importFlags.maxRows)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var saved []byte
	if importFlags.mergeWith != "" {
		if saved, err = os.ReadFile(importFlags.mergeWith); err != nil {
			return fmt.Errorf("read merge file: %w", err)
		}
	}

	opts := importer.Options{CustomerName: importFlags.customer}
	out := importOutput{Upload: meta}
	switch kind {
	case "top-products":
		result := importer.ImportTopProducts(rows, opts)
		out.Result = result
		if saved != nil {
			current, err := sections.DecodeTopProducts(string(saved))
			if err != nil {
				return err
			}
			out.Merged = map[string]any{sections.KeyTopProducts: importer.MergeTopProducts(current, result.TopProducts)}
		}
	case "code-currency":
		result := importer.ImportCodeCurrency(rows, opts)
		out.Result = result
		if saved != nil {
			current, err := sections.DecodeCodeCurrency(string(saved))
			if err != nil {
				return err
			}
			out.Merged = map[string]any{sections.KeyCodeCurrency: importer.MergeCodeCurrency(current, result.Rows)}
		}
	case "connectivity":
		result := importer.ImportConnectivity(rows, opts)
		out.Result = result
		if saved != nil {
			var buckets connectivityFile
			if err := json.Unmarshal(saved, &buckets); err != nil {
				return fmt.Errorf("merge file must be {\"connected\":[...],\"notConnected\":[...]}: %w", err)
			}
			connected, err := sections.DecodeConnectivity(string(buckets.Connected))
			if err != nil {
				return err
			}
			notConnected, err := sections.DecodeConnectivity(string(buckets.NotConnected))
			if err != nil {
				return err
			}
			mergedConnected, mergedNotConnected := importer.MergeConnectivityBuckets(connected, notConnected, result)
			out.Merged = map[string]any{
				sections.KeyConnectivityConnected:  mergedConnected,
				sections.KeyConnectivityNotConnect: mergedNotConnected,
			}
		}
	default:
		return fmt.Errorf("unknown import kind %q", args[0])
	}

	return writeJSON(cmd.OutOrStdout(), out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
