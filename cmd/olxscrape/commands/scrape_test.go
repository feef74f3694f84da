package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"olx-scraper/models"
)

const fixturePage = `<html><head><title>Celulares | OLX</title></head><body>
<section class="olx-adcard">
  <a href="https://mg.olx.com.br/bh/celulares/iphone-13-1311111111"><h2 class="olx-adcard__title">iPhone 13 128GB</h2></a>
  <h3 class="olx-adcard__price">R$ 3.200</h3>
  <p class="olx-adcard__location">Belo Horizonte, MG</p>
</section>
<section class="olx-adcard">
  <a href="https://mg.olx.com.br/bh/celulares/iphone-12-1322222222"><h2 class="olx-adcard__title">iPhone 12 64GB</h2></a>
  <h3 class="olx-adcard__price">R$ 2.500</h3>
  <p class="olx-adcard__location">Contagem, MG</p>
</section>
</body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScrapeCommandWritesReportAndFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fixturePage)
	}))
	defer srv.Close()

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "listings.csv")
	jsonPath := filepath.Join(dir, "out", "result.json")

	out, err := execute(t, "scrape", srv.URL+"/celulares",
		"--mode", "static", "--limit", "5", "--csv", csvPath, "--json", jsonPath)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	if !strings.Contains(out, "OLX SCRAPE SUMMARY") || !strings.Contains(out, "Contagem, MG") {
		t.Errorf("report missing expected content:\n%s", out)
	}

	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("reading JSON output: %v", err)
	}
	var result models.ScrapeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decoding JSON output: %v", err)
	}
	if result.Meta.RequestedLimit != 5 || len(result.Items) != 2 || result.Meta.FetchMode != "static" {
		t.Errorf("result meta = %+v, %d items", result.Meta, len(result.Items))
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("opening CSV output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) != 3 {
		t.Errorf("CSV rows = %d, err %v; want header + 2", len(rows), err)
	}
}

func TestScrapeParams(t *testing.T) {
	defer viper.Reset()

	tests := []struct {
		limit     int
		dateFrom  string
		wantLimit int
		wantDate  string
		wantErr   bool
	}{
		{20, "", 20, "", false},
		{0, "", 1, "", false},
		{900, "", 300, "", false},
		{10, "2024-11-01", 10, "2024-11-01", false},
		{10, "01/11/2024", 10, "2024-11-01", false},
		{10, "ontem", 10, "", true},
	}

	for _, tt := range tests {
		viper.Set("limit", tt.limit)
		viper.Set("date_from", tt.dateFrom)
		viper.Set("timezone", "UTC")

		p, err := scrapeParams("https://www.olx.com.br")
		if (err != nil) != tt.wantErr {
			t.Errorf("limit=%d date=%q: err = %v; wantErr %v", tt.limit, tt.dateFrom, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if p.Limit != tt.wantLimit {
			t.Errorf("limit=%d: Limit = %d; want %d", tt.limit, p.Limit, tt.wantLimit)
		}
		var got string
		if p.DateFrom != nil {
			got = p.DateFrom.Format("2006-01-02")
		}
		if got != tt.wantDate {
			t.Errorf("date=%q: DateFrom = %q; want %q", tt.dateFrom, got, tt.wantDate)
		}
	}
}
