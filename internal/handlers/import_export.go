package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/httpx"
	"github.com/unified-report/apps/api/internal/importer"
	"github.com/unified-report/apps/api/internal/middleware"
	"github.com/unified-report/apps/api/internal/sections"
	"github.com/unified-report/apps/api/internal/store"
	"github.com/unified-report/apps/api/internal/upload"
)

type importMode string

const (
	importModeDryRun importMode = "dry_run"
	importModeApply  importMode = "apply"
)

type importKind string

const (
	importKindTopProducts  importKind = "top-products"
	importKindCodeCurrency importKind = "code-currency"
	importKindConnectivity importKind = "connectivity"
)

var importKinds = map[string]importKind{
	string(importKindTopProducts):  importKindTopProducts,
	string(importKindCodeCurrency): importKindCodeCurrency,
	string(importKindConnectivity): importKindConnectivity,
}

// importSectionKeys lists the sections each import kind merges into.
var importSectionKeys = map[importKind][]string{
	importKindTopProducts:  {sections.KeyTopProducts},
	importKindCodeCurrency: {sections.KeyCodeCurrency},
	importKindConnectivity: {sections.KeyConnectivityConnected, sections.KeyConnectivityNotConnect},
}

var importTemplates = map[string]string{
	string(importKindTopProducts): strings.Join([]string{
		"Rank,Product,Case Count,Percent,Customer Name",
		"1,PowerEdge,42,35.5,Acme Corp",
	}, "\n"),
	string(importKindCodeCurrency): strings.Join([]string{
		"System Model,Installed Code,Service Tag,Customer Name",
		"PowerStore 1000T,3.5.0.1,ABC1234,Acme Corp",
	}, "\n"),
	string(importKindConnectivity): strings.Join([]string{
		"Asset ID,Alternate Asset ID,Product Name,Asset Alias,Last Alert,Connection Type,Health Score,Connectivity Status,Customer Name",
		"ABC1234,PSNT0001,PowerStore 1000T,array-01,2024-06-01 10:15,Secure Connect Gateway,92,Connected,Acme Corp",
	}, "\n"),
}

type importOptionsPayload struct {
	CustomerName string `json:"customerName"`
	Mode         string `json:"mode,omitempty"`
}

type parsedImportUpload struct {
	rows    []importer.CsvRow
	meta    upload.Meta
	options importOptionsPayload
	mode    importMode
}

type importSummary struct {
	TotalRows          int     `json:"totalRows"`
	ProcessedRows      int     `json:"processedRows"`
	Skipped            int     `json:"skipped"`
	FilteredByCustomer int     `json:"filteredByCustomer"`
	CustomerColumn     *string `json:"customerColumn"`
	MergedRows         int     `json:"mergedRows"`
}

type importResponse struct {
	ImportRunID openapi_types.UUID `json:"importRunId"`
	Kind        importKind         `json:"kind"`
	Mode        importMode         `json:"mode"`
	Upload      upload.Meta        `json:"upload"`
	Summary     importSummary      `json:"summary"`
	Result      any                `json:"result"`
	Merged      map[string]any     `json:"merged"`
	RequestID   string             `json:"requestId"`
}

// importOutcome is what one importer run produces before persistence.
type importOutcome struct {
	result  any
	stats   importer.ImportStats
	merged  map[string]any
	mergedN int
}

// sectionLoader returns the stored rows of one section, without defaults.
type sectionLoader func(key string) (loadedSection, error)

type appError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (s *Server) PostImport(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID, kindParam string) {
	kind, ok := importKinds[strings.ToLower(strings.TrimSpace(kindParam))]
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "import_kind_not_found", "Unknown import kind", map[string]any{"kind": kindParam})
		return
	}

	parsed, appErr := parseImportUpload(r, s.Config.ImportMaxRows)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	opts := importer.Options{CustomerName: strings.TrimSpace(parsed.options.CustomerName)}

	var (
		outcome   importOutcome
		summary   importSummary
		runParams store.CreateImportRunParams
	)
	prepare := func(load sectionLoader) error {
		var err error
		if outcome, err = runImport(kind, parsed.rows, opts, load); err != nil {
			return err
		}
		summary = summarizeImport(outcome)
		runParams, err = importRunParams(engagementId, kind, parsed, opts, summary)
		return err
	}

	var run store.ImportRun
	if parsed.mode == importModeApply {
		var err error
		run, _, err = s.Imports.ApplyImport(r.Context(), engagementId, importSectionKeys[kind], func(current map[string]store.ReportNote) (store.ImportPlan, error) {
			if err := prepare(s.storedSections(engagementId, current)); err != nil {
				return store.ImportPlan{}, err
			}
			docs, err := encodeSections(outcome.merged)
			if err != nil {
				return store.ImportPlan{}, err
			}
			return store.ImportPlan{Docs: docs, Run: runParams}, nil
		})
		if err != nil {
			s.internalError(w, r, "Failed to apply import", err)
			return
		}
	} else {
		ctx := r.Context()
		err := prepare(func(key string) (loadedSection, error) {
			return s.loadSection(ctx, engagementId, key, false)
		})
		if err != nil {
			s.internalError(w, r, "Failed to run import", err)
			return
		}
		run, err = s.Imports.CreateImportRun(ctx, runParams)
		if err != nil {
			s.internalError(w, r, "Failed to record import run", err)
			return
		}
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	event := "import_previewed"
	action := "import.dry_run_completed"
	if parsed.mode == importModeApply {
		event = "import_applied"
		action = "import.apply_completed"
	}
	s.Logger.Info(event,
		"engagement_id", engagementId.String(),
		"import_run_id", run.ID.String(),
		"kind", kind,
		"format", parsed.meta.Format,
		"total_rows", summary.TotalRows,
		"processed_rows", summary.ProcessedRows,
		"filtered_by_customer", summary.FilteredByCustomer,
		"request_id", requestID,
	)
	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(engagementId),
		Action:       action,
		EntityType:   "import_run",
		EntityID:     uuidPtr(run.ID),
		Metadata: map[string]any{
			"kind":       kind,
			"mode":       parsed.mode,
			"filename":   parsed.meta.Filename,
			"fileSha256": parsed.meta.SHA256,
			"summary":    summary,
		},
	})

	httpx.WriteJSON(w, http.StatusOK, importResponse{
		ImportRunID: run.ID,
		Kind:        kind,
		Mode:        parsed.mode,
		Upload:      parsed.meta,
		Summary:     summary,
		Result:      outcome.result,
		Merged:      outcome.merged,
		RequestID:   requestID,
	})
}

func summarizeImport(outcome importOutcome) importSummary {
	return importSummary{
		TotalRows:          outcome.stats.TotalRows,
		ProcessedRows:      outcome.stats.ProcessedRows,
		Skipped:            outcome.stats.Skipped,
		FilteredByCustomer: outcome.stats.Filtered.ByCustomer,
		CustomerColumn:     outcome.stats.Metadata.CustomerColumn,
		MergedRows:         outcome.mergedN,
	}
}

func importRunParams(engagementID uuid.UUID, kind importKind, parsed parsedImportUpload, opts importer.Options, summary importSummary) (store.CreateImportRunParams, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return store.CreateImportRunParams{}, fmt.Errorf("encode import summary: %w", err)
	}
	params := store.CreateImportRunParams{
		EngagementID: engagementID,
		Kind:         string(kind),
		Mode:         string(parsed.mode),
		Filename:     parsed.meta.Filename,
		FileSha256:   parsed.meta.SHA256,
		SummaryJson:  summaryJSON,
	}
	if opts.CustomerName != "" {
		customer := opts.CustomerName
		params.CustomerName = &customer
	}
	return params, nil
}

// storedSections serves documents already read inside the import
// transaction. Keys missing from current decode as empty.
func (s *Server) storedSections(engagementID uuid.UUID, current map[string]store.ReportNote) sectionLoader {
	return func(key string) (loadedSection, error) {
		note, ok := current[key]
		if !ok {
			return s.resolveSection(engagementID, key, nil, false)
		}
		return s.resolveSection(engagementID, key, &note, false)
	}
}

// runImport runs the importer for kind and merges its output over the rows
// load returns. Defaults are not part of the merge baseline.
func runImport(kind importKind, rows []importer.CsvRow, opts importer.Options, load sectionLoader) (importOutcome, error) {
	switch kind {
	case importKindTopProducts:
		result := importer.ImportTopProducts(rows, opts)
		current, err := storedTopProducts(load)
		if err != nil {
			return importOutcome{}, err
		}
		merged := importer.MergeTopProducts(current, result.TopProducts)
		return importOutcome{
			result:  result,
			stats:   result.ImportStats,
			merged:  map[string]any{sections.KeyTopProducts: merged},
			mergedN: len(merged),
		}, nil

	case importKindCodeCurrency:
		result := importer.ImportCodeCurrency(rows, opts)
		loaded, err := load(sections.KeyCodeCurrency)
		if err != nil {
			return importOutcome{}, err
		}
		current, _ := loaded.Value.([]importer.CodeCurrencyRowDraft)
		merged := importer.MergeCodeCurrency(current, result.Rows)
		return importOutcome{
			result:  result,
			stats:   result.ImportStats,
			merged:  map[string]any{sections.KeyCodeCurrency: merged},
			mergedN: len(merged),
		}, nil

	case importKindConnectivity:
		result := importer.ImportConnectivity(rows, opts)
		connectedSection, err := load(sections.KeyConnectivityConnected)
		if err != nil {
			return importOutcome{}, err
		}
		notConnectedSection, err := load(sections.KeyConnectivityNotConnect)
		if err != nil {
			return importOutcome{}, err
		}
		currentConnected, _ := connectedSection.Value.([]importer.ConnectivityRowDraft)
		currentNotConnected, _ := notConnectedSection.Value.([]importer.ConnectivityRowDraft)
		connected, notConnected := importer.MergeConnectivityBuckets(currentConnected, currentNotConnected, result)
		return importOutcome{
			result: result,
			stats:  result.ImportStats,
			merged: map[string]any{
				sections.KeyConnectivityConnected:  connected,
				sections.KeyConnectivityNotConnect: notConnected,
			},
			mergedN: len(connected) + len(notConnected),
		}, nil
	}
	return importOutcome{}, fmt.Errorf("unsupported import kind %q", kind)
}

// storedTopProducts returns only real saved rows; padding placeholders are
// dropped so they never outrank imported products.
func storedTopProducts(load sectionLoader) ([]importer.DashboardTopProduct, error) {
	loaded, err := load(sections.KeyTopProducts)
	if err != nil {
		return nil, err
	}
	rows, _ := loaded.Value.([]importer.DashboardTopProduct)
	current := make([]importer.DashboardTopProduct, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Product) == "" {
			continue
		}
		current = append(current, row)
	}
	return current, nil
}

func encodeSections(values map[string]any) (map[string]string, error) {
	docs := make(map[string]string, len(values))
	for key, value := range values {
		doc, err := sections.Encode(key, value)
		if err != nil {
			return nil, err
		}
		docs[key] = doc
	}
	return docs, nil
}

func (s *Server) GetImportTemplate(w http.ResponseWriter, r *http.Request, file string) {
	normalized := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(file), ".csv"))
	content, ok := importTemplates[normalized]
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "template_not_found", "Import template not found", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-template.csv\"", normalized))
	_, _ = w.Write([]byte(content))
}

func (s *Server) GetSectionExport(w http.ResponseWriter, r *http.Request, engagementId openapi_types.UUID, file string) {
	sectionKey := strings.TrimSuffix(strings.TrimSpace(file), ".csv")
	kind, ok := sections.Lookup(sectionKey)
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "section_not_found", "Unknown section key", map[string]any{"sectionKey": sectionKey})
		return
	}
	if kind == sections.KindText {
		httpx.WriteError(w, r, http.StatusBadRequest, "export_not_supported", "Text sections cannot be exported as CSV", map[string]any{"sectionKey": sectionKey})
		return
	}

	loaded, err := s.loadSection(r.Context(), engagementId, sectionKey, true)
	if err != nil {
		s.internalError(w, r, "Failed to load section", err)
		return
	}
	records := sectionRecords(loaded.Value)

	s.writeExportCSV(w, r, engagementId, sectionKey, sectionKey+".csv", records)
}

func (s *Server) writeExportCSV(w http.ResponseWriter, r *http.Request, engagementID uuid.UUID, sectionKey, filename string, records [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		s.Logger.Error("export_stream_failed", "section_key", sectionKey, "error", err)
		return
	}

	s.audit(r, audit.Entry{
		EngagementID: uuidPtr(engagementID),
		Action:       "export.download",
		EntityType:   "report_note",
		Metadata: map[string]any{
			"filename":   filename,
			"sectionKey": sectionKey,
			"rows":       len(records) - 1,
		},
	})
}

func sectionRecords(value any) [][]string {
	switch rows := value.(type) {
	case []importer.DashboardTopProduct:
		records := [][]string{{"product", "count", "percent", "rank"}}
		for _, row := range rows {
			rank := ""
			if row.Rank > 0 {
				rank = strconv.FormatFloat(row.Rank, 'f', -1, 64)
			}
			records = append(records, []string{
				row.Product,
				strconv.Itoa(row.Count),
				strconv.FormatFloat(row.Percent, 'f', -1, 64),
				rank,
			})
		}
		return records
	case []importer.CodeCurrencyRowDraft:
		records := [][]string{{"system_model", "asset_count", "installed_code", "o", "m", "r", "l", "min_supported_7", "min_supported_8", "recommended_7", "recommended_8", "latest_7", "latest_8"}}
		for _, row := range rows {
			records = append(records, []string{
				row.SystemModel,
				strconv.Itoa(row.AssetCount),
				row.InstalledCode,
				formatFlag(row.Statuses.O),
				formatFlag(row.Statuses.M),
				formatFlag(row.Statuses.R),
				formatFlag(row.Statuses.L),
				row.MinSupported7,
				row.MinSupported8,
				row.Recommended7,
				row.Recommended8,
				row.Latest7,
				row.Latest8,
			})
		}
		return records
	case []importer.ConnectivityRowDraft:
		records := [][]string{{"asset_id", "alternate_asset_id", "product_name", "asset_alias", "last_alert_at", "connection_type", "health_score", "health_label"}}
		for _, row := range rows {
			records = append(records, []string{
				row.AssetID,
				row.AlternateAssetID,
				row.ProductName,
				row.AssetAlias,
				row.LastAlertAt,
				row.ConnectionType,
				row.HealthScore.String(),
				row.HealthLabel,
			})
		}
		return records
	}
	return nil
}

func formatFlag(v bool) string {
	if v {
		return "x"
	}
	return ""
}

func parseImportUpload(r *http.Request, maxRows int) (parsedImportUpload, *appError) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_content_type",
			Message: "Content-Type must be multipart/form-data",
		}
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return parsedImportUpload{}, &appError{
				Status:  http.StatusRequestEntityTooLarge,
				Code:    "body_too_large",
				Message: "Uploaded file is too large",
				Details: map[string]any{"maxBytes": maxErr.Limit},
			}
		}
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_multipart",
			Message: "Failed to parse multipart form",
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "missing_file",
			Message: "file is required",
		}
	}
	defer file.Close()

	var options importOptionsPayload
	if optionsRaw := strings.TrimSpace(r.FormValue("options")); optionsRaw != "" {
		if err := json.Unmarshal([]byte(optionsRaw), &options); err != nil {
			return parsedImportUpload{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_options",
				Message: "options must be valid JSON",
			}
		}
	}

	mode := importMode(strings.ToLower(strings.TrimSpace(options.Mode)))
	switch mode {
	case "":
		mode = importModeDryRun
	case importModeDryRun, importModeApply:
	default:
		return parsedImportUpload{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "validation_error",
			Message: "options.mode must be dry_run or apply",
		}
	}

	rows, meta, err := upload.Read(header.Filename, file, maxRows)
	if err != nil {
		return parsedImportUpload{}, uploadError(err, maxRows)
	}

	return parsedImportUpload{rows: rows, meta: meta, options: options, mode: mode}, nil
}

func uploadError(err error, maxRows int) *appError {
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		return &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file_type",
			Message: "Only .csv and .xlsx uploads are supported",
		}
	case errors.Is(err, upload.ErrEmptyFile):
		return &appError{
			Status:  http.StatusBadRequest,
			Code:    "empty_file",
			Message: "Uploaded file is empty",
		}
	case errors.Is(err, upload.ErrRowLimit):
		return &appError{
			Status:  http.StatusBadRequest,
			Code:    "row_limit_exceeded",
			Message: "Upload row limit exceeded",
			Details: map[string]any{"maxRows": maxRows},
		}
	}
	return &appError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_file",
		Message: "Failed to read uploaded file",
	}
}
