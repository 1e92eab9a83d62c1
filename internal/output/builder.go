// internal/output/builder.go
package output

import (
	"fmt"
	"strconv"

	"github.com/valpere/MarktScout/internal/scraper"
)

// Export column layouts. The full export always carries these seven
// columns in this order.
var (
	PhoneHeaders  = []string{"phone"}
	LinkHeaders   = []string{"url"}
	RecordHeaders = []string{"listing_name", "seller_name", "location", "phone", "price", "whatsapp", "url"}
)

// Dataset is one tabular export ready for serialization.
type Dataset struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// PhoneRows projects the phone-only export.
func PhoneRows(results *scraper.Results) [][]string {
	rows := make([][]string, 0, len(results.Phones))
	for _, phone := range results.Phones {
		rows = append(rows, []string{phone})
	}
	return rows
}

// LinkRows projects the URL-only export.
func LinkRows(results *scraper.Results) [][]string {
	rows := make([][]string, 0, len(results.Links))
	for _, link := range results.Links {
		rows = append(rows, []string{link})
	}
	return rows
}

// RecordRows projects the full seven-column export. No deduplication
// happens here; the ledger already guarantees uniqueness.
func RecordRows(results *scraper.Results) [][]string {
	rows := make([][]string, 0, len(results.Records))
	for _, rec := range results.Records {
		price := ""
		if rec.HasPrice {
			price = strconv.FormatFloat(rec.Price, 'f', 2, 64)
		}
		rows = append(rows, []string{
			rec.ListingName,
			rec.SellerName,
			rec.Location,
			rec.Phone,
			price,
			rec.WhatsApp,
			rec.URL,
		})
	}
	return rows
}

// Datasets builds the three session exports: phones, links, full records.
func Datasets(results *scraper.Results) []Dataset {
	return []Dataset{
		{Name: "phones", Headers: PhoneHeaders, Rows: PhoneRows(results)},
		{Name: "links", Headers: LinkHeaders, Rows: LinkRows(results)},
		{Name: "all_info", Headers: RecordHeaders, Rows: RecordRows(results)},
	}
}

// Write serializes one dataset in the requested format ("csv" or "excel").
func Write(ds Dataset, path, format string) error {
	switch format {
	case "csv":
		return WriteCSV(path, ds.Headers, ds.Rows)
	case "excel":
		return WriteExcel(path, ds.Name, ds.Headers, ds.Rows)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	if format == "excel" {
		return ".xlsx"
	}
	return ".csv"
}
