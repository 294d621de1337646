package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	importFlags.customer, importFlags.mergeWith, importFlags.maxRows = "", "", 0
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportMergesSavedTopProducts(t *testing.T) {
	csvPath := writeFile(t, "cases.csv", "Product,Cases,Customer Name\nPowerEdge,12,Acme Corp\nPowerStore,4,Acme Corp\nUnity XT,9,Globex\n")
	saved := writeFile(t, "saved.json", `[{"product":"Unity XT","count":7,"percent":0},{"product":"","count":0,"percent":0}]`)

	out, err := execute(t, "import", "top-products", csvPath, "--customer", "acme", "--merge-with", saved)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}

	var result struct {
		Merged struct {
			Rows []struct {
				Product string `json:"product"`
			} `json:"dashboard.topProducts"`
		} `json:"merged"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	products := []string{}
	for _, row := range result.Merged.Rows {
		products = append(products, row.Product)
	}
	want := []string{"PowerEdge", "Unity XT", "PowerStore", "", "", "", ""}
	if diff := cmp.Diff(want, products); diff != "" {
		t.Fatalf("merged products mismatch (-want +got):\n%s", diff)
	}
}

func TestImportRejectsUnknownKind(t *testing.T) {
	csvPath := writeFile(t, "rows.csv", "A\n1\n")
	if _, err := execute(t, "import", "licenses", csvPath); err == nil || !strings.Contains(err.Error(), "unknown import kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestImportConnectivityMergeFileShape(t *testing.T) {
	csvPath := writeFile(t, "assets.csv", "Asset ID,Connectivity Status\nSVC1,Connected\n")
	bad := writeFile(t, "bad.json", `[1,2]`)
	if _, err := execute(t, "import", "connectivity", csvPath, "--merge-with", bad); err == nil {
		t.Fatalf("expected an error for a list-shaped connectivity merge file")
	}
}

func TestHashTokenPrintsHash(t *testing.T) {
	out, err := execute(t, "hash-token", "operator-token")
	if err != nil {
		t.Fatalf("hash-token: %v", err)
	}
	if !strings.HasPrefix(out, "API_TOKEN_HASH=$argon2id$") {
		t.Fatalf("unexpected output %q", out)
	}
}
