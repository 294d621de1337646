package importer

import "testing"

func TestEvaluateCustomerFilter(t *testing.T) {
	cases := []struct {
		name     string
		row      NormalizedRow
		customer string
		want     FilterDecision
	}{
		{
			name:     "empty target disables filtering",
			row:      NormalizedRow{"customer": "Globex"},
			customer: "  --  ",
			want:     FilterDecision{Include: true},
		},
		{
			name:     "target contained in value",
			row:      NormalizedRow{"customer": "Acme Corp"},
			customer: "acme",
			want:     FilterDecision{Include: true, Column: "customer"},
		},
		{
			name:     "value contained in target",
			row:      NormalizedRow{"account name": "ACME"},
			customer: "Acme Corporation Ltd.",
			want:     FilterDecision{Include: true, Column: "account name"},
		},
		{
			name:     "punctuation is ignored",
			row:      NormalizedRow{"site": "Acme-Corp (Austin)"},
			customer: "acme corp",
			want:     FilterDecision{Include: true, Column: "site"},
		},
		{
			name:     "mismatch excludes and names first populated column",
			row:      NormalizedRow{"customer": "", "account": "Acme Corp", "location": "Austin"},
			customer: "Globex",
			want:     FilterDecision{Include: false, Column: "account"},
		},
		{
			name:     "later column can still match",
			row:      NormalizedRow{"customer": "Initech", "site name": "Globex Springfield"},
			customer: "globex",
			want:     FilterDecision{Include: true, Column: "site name"},
		},
		{
			name:     "no customer column fails open",
			row:      NormalizedRow{"product": "Unity"},
			customer: "Globex",
			want:     FilterDecision{Include: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateCustomerFilter(tc.row, tc.customer)
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestCustomerFilterSymmetry(t *testing.T) {
	row := NormaliseRow(CsvRow{"Customer": "Acme Corp", "Product": "Unity"})

	if got := EvaluateCustomerFilter(row, "acme"); !got.Include {
		t.Fatalf("expected Acme Corp row to be included for acme")
	}
	if got := EvaluateCustomerFilter(row, "Globex"); got.Include {
		t.Fatalf("expected Acme Corp row to be excluded for Globex")
	}
}
