package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Movimientos", 2024, "2024 Movimientos"},
		{"  Movimientos ", 2025, "2025 Movimientos"},
		{"2023 Movimientos", 2024, "2023 Movimientos"},
		{"Q1 Movimientos", 2024, "2024 Q1 Movimientos"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
				t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
			}
		})
	}
}

func TestRowValues(t *testing.T) {
	recID := int64(3)
	row := ports.RowFromTransaction(core.Transaction{
		ID:           42,
		Type:         core.Expense,
		Amount:       core.Money{Cents: 85000},
		Description:  "Alquiler (Auto)",
		Date:         time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		RecurrenceID: &recID,
	})

	got := rowValues(row)
	want := []any{"2024-03-15", "EXPENSE", "Alquiler (Auto)", "850.00", "-850.00", "recurring", "42"}
	if len(got) != len(want) {
		t.Fatalf("rowValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewWithService_RequiresSpreadsheet(t *testing.T) {
	if _, err := NewWithService(nil, "  ", "Movimientos"); err == nil {
		t.Error("NewWithService() accepted an empty spreadsheet id")
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-1", "Movimientos")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("New() error = %v, want missing credentials", err)
	}
}

func TestClient_AppendRow(t *testing.T) {
	var (
		gotPath   string
		gotOption string
		gotValues [][]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOption = r.URL.Query().Get("valueInputOption")
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotValues = vr.Values
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"'2024 Movimientos'!A7:G7","updatedRows":1}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	client, err := NewWithService(svc, "sheet-1", "Movimientos")
	if err != nil {
		t.Fatalf("NewWithService() error = %v", err)
	}

	ref, err := client.AppendRow(ctx, ports.LedgerRow{
		TransactionID: 9,
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Type:          core.Income,
		Description:   "Sueldo",
		Amount:        core.Money{Cents: 200000},
		Source:        ports.SourceManual,
	})
	if err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}
	if ref != "'2024 Movimientos'!A7:G7" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.HasSuffix(gotPath, ":append") || !strings.Contains(gotPath, "2024 Movimientos") {
		t.Errorf("request path = %q", gotPath)
	}
	if gotOption != "USER_ENTERED" {
		t.Errorf("valueInputOption = %q", gotOption)
	}
	if len(gotValues) != 1 || len(gotValues[0]) != 7 || gotValues[0][2] != "Sueldo" || gotValues[0][4] != "2000.00" {
		t.Errorf("appended values = %v", gotValues)
	}
}

func TestClient_AppendRowRejectsZeroAmount(t *testing.T) {
	client := &Client{svc: &gsheet.Service{}, spreadsheetID: "sheet-1", sheetBase: "Movimientos"}
	_, err := client.AppendRow(context.Background(), ports.LedgerRow{Date: time.Now(), Type: core.Expense})
	if err == nil {
		t.Error("AppendRow() accepted a zero amount")
	}
}
