// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"bytes"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"budgetledger/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	if err := collections.Setup(app, zap.NewNop()); err != nil {
		t.Fatalf("failed to set up collections: %v", err)
	}

	return app
}

// CreateTestProject creates a project record with the given name and returns it.
func CreateTestProject(t *testing.T, app *pocketbase.PocketBase, name string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		t.Fatalf("failed to find projects collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("client_name", "Test Client")
	record.Set("status", "active")

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test project: %v", err)
	}

	return record
}

// BuildEstimateWorkbook writes rows (row-major from A1) into a single-sheet
// xlsx file and returns its bytes. Nil cells are left blank.
func BuildEstimateWorkbook(t *testing.T, sheetName string, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		t.Fatalf("failed to rename sheet: %v", err)
	}
	for r, cells := range rows {
		for c, v := range cells {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("bad cell coordinates: %v", err)
			}
			if err := f.SetCellValue(sheetName, ref, v); err != nil {
				t.Fatalf("failed to set %s: %v", ref, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf.Bytes()
}

// SampleEstimateRows is a small estimate sheet covering each category and
// each derivation case.
func SampleEstimateRows() [][]any {
	return [][]any{
		{"工事名", "サンプル改修工事"},
		{"名称", "内訳", "数量", "単位", "単価", "金額", "備考"},
		{"生コンクリート", "18-8-20", 10, "m3", 3000, nil, ""},
		{"外注 型枠工事", nil, 2, "式", nil, 500000, ""},
		{"普通作業員", nil, nil, "人", 25000, 75000, ""},
		{"バックホウ損料", nil, 1, "日", 40000, 40000, ""},
		{"小計", nil, nil, nil, nil, 645000, ""},
		{"共通仮設", nil, nil, nil, nil, nil, ""},
	}
}

// MultipartFile builds a multipart body with a single "file" field.
// It returns the body and its content type.
func MultipartFile(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

// AssertJSONContains checks that body contains all specified fragments.
func AssertJSONContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected body to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
