package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"inline json wins", Config{CredentialsJSON: `{"inline":true}`, CredentialsFile: path}, `{"inline":true}`, false},
		{"file", Config{CredentialsFile: path}, `{"type":"service_account"}`, false},
		{"missing file", Config{CredentialsFile: filepath.Join(dir, "nope.json")}, "", true},
		{"nothing", Config{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credentials(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("credentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("credentials() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAppendRows(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  struct {
			Values [][]string `json:"values"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"spreadsheetId":"sheet-1","updates":{"updatedRange":"Ledger!A1:G2","updatedRows":2}}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	exp, err := New(ctx, Config{SpreadsheetID: "sheet-1"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rng, err := exp.AppendRows(ctx, [][]string{
		{"Date", "Description", "Amount", "Category", "Paid From", "Notes", "Recurring"},
		{"2026-01-31", "Rent", "1200.00", "Home", "SELF", "", "Yes"},
	})
	if err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if rng != "Ledger!A1:G2" {
		t.Errorf("range = %q", rng)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-1/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=RAW") {
		t.Errorf("expected RAW input option, got %q", gotQuery)
	}
	if len(gotBody.Values) != 2 || gotBody.Values[1][2] != "1200.00" {
		t.Errorf("unexpected body %+v", gotBody.Values)
	}
}

func TestAppendRows_Empty(t *testing.T) {
	exp := &Exporter{}
	if _, err := exp.AppendRows(context.Background(), nil); err == nil {
		t.Fatal("expected error for uninitialized service")
	}
}
