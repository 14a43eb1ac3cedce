package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"budgetledger/services"
	"budgetledger/testhelpers"
)

func TestHandleEstimateReconcile_Workbook(t *testing.T) {
	xlsx := testhelpers.BuildEstimateWorkbook(t, "内訳", testhelpers.SampleEstimateRows())
	body, contentType := testhelpers.MultipartFile(t, "estimate.xlsx", xlsx)

	req := httptest.NewRequest(http.MethodPost, "/api/estimates/reconcile", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler := HandleEstimateReconcile(testConfig(), testLogger)
	if err := handler(newTestRequestEvent(nil, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res services.Result
	decodeBody(t, rec, &res)
	if len(res.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(res.Rows))
	}
	if res.Summary.GrandTotal != 645000 {
		t.Errorf("grand_total = %v, want 645000", res.Summary.GrandTotal)
	}
	if res.Rows[0].Amount == nil || *res.Rows[0].Amount != 30000 {
		t.Errorf("derived amount = %v, want 30000", res.Rows[0].Amount)
	}
	testhelpers.AssertJSONContains(t, rec.Body.String(), `"derived_flags":["amount"]`, `"sheets":["内訳"]`)
}

func TestHandleEstimateReconcile_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		content  []byte
	}{
		{"unsupported extension", "estimate.pdf", []byte("%PDF-1.4")},
		{"corrupt workbook", "estimate.xlsx", []byte("not a zip")},
		{"no header row", "memo.csv", []byte("hello\nworld\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := testhelpers.MultipartFile(t, tt.fileName, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/estimates/reconcile", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			handler := HandleEstimateReconcile(testConfig(), testLogger)
			if err := handler(newTestRequestEvent(nil, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			testhelpers.AssertJSONContains(t, rec.Body.String(), `"error":"invalid input`)
		})
	}
}

func TestHandleEstimateReconcile_MissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/estimates/reconcile", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler := HandleEstimateReconcile(testConfig(), testLogger)
	if err := handler(newTestRequestEvent(nil, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleEstimateReconcile_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadMB = 1
	body, contentType := testhelpers.MultipartFile(t, "big.csv", bytes.Repeat([]byte("a"), 2<<20))

	req := httptest.NewRequest(http.MethodPost, "/api/estimates/reconcile", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler := HandleEstimateReconcile(cfg, testLogger)
	if err := handler(newTestRequestEvent(nil, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleEstimateReconcileJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bare rows",
			body:       `[{"sheet_name":"S","row_no":1,"name":"鉄筋","quantity":2,"unit_price":1000}]`,
			wantStatus: http.StatusOK,
			wantBody:   `"amount":2000`,
		},
		{
			name:       "wrapped sheets",
			body:       `{"sheets":[{"name":"S","rows":[{"row_no":1,"name":"人工","quantity":3,"amount":75000}]}]}`,
			wantStatus: http.StatusOK,
			wantBody:   `"unit_price":25000`,
		},
		{
			name:       "empty sheet list",
			body:       `{"sheets":[]}`,
			wantStatus: http.StatusOK,
			wantBody:   `"grand_total":0`,
		},
		{
			name:       "malformed json",
			body:       `{"sheets":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `"error"`,
		},
		{
			name:       "missing sheets",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `no sheets supplied`,
		},
		{
			name:       "row number zero takes its position",
			body:       `[{"sheet_name":"S","row_no":0,"name":"x"}]`,
			wantStatus: http.StatusOK,
			wantBody:   `"row_no":1`,
		},
		{
			name:       "bare row without row number",
			body:       `[{"name":"コンクリート材料","quantity":10,"unit_price":5000},{"row_no":2,"name":"作業員派遣","amount":80000}]`,
			wantStatus: http.StatusOK,
			wantBody:   `"grand_total":130000`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/estimates/reconcile/json", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler := HandleEstimateReconcileJSON(testConfig(), testLogger)
			if err := handler(newTestRequestEvent(nil, req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			testhelpers.AssertJSONContains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandleEstimateTemplate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/estimates/template", nil)
	rec := httptest.NewRecorder()

	if err := HandleEstimateTemplate(testLogger)(newTestRequestEvent(nil, req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "estimate_template.xlsx") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	sheets, err := services.ParseEstimateFile(bytes.NewReader(rec.Body.Bytes()), "estimate_template.xlsx", services.DefaultParseOptions())
	if err != nil {
		t.Fatalf("template should parse: %v", err)
	}
	if len(sheets) != 1 || len(sheets[0].Rows) != 0 {
		t.Errorf("expected one empty sheet, got %+v", sheets)
	}
}
