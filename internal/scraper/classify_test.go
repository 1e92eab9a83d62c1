// internal/scraper/classify_test.go
package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestIsBusinessSeller(t *testing.T) {
	tests := []struct {
		name   string
		seller string
		want   bool
	}{
		{"legal entity suffix", "Jansen BV", true},
		{"private person", "Jan de Vries", false},
		{"empty name never flagged", "", false},
		{"all caps long name", "FIETSENWINKEL", true},
		{"short caps allowed", "ABC", false},
		{"domain suffix", "fietsen.nl", true},
		{"digit run", "Verkoper 12345", true},
		{"email address", "jan@voorbeeld", true},
		{"webshop keyword", "De Webshop van Piet", true},
		{"capital density", "De GROTE Fiets Zaak", true},
		{"kringloop keyword", "Kringloop Noord", true},
		{"vof with dots", "Bakker v.o.f.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBusinessSeller(tt.seller); got != tt.want {
				t.Errorf("IsBusinessSeller(%q) = %v, want %v", tt.seller, got, tt.want)
			}
		})
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestHasWebsiteButton(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"website icon",
			`<html><body><i class="hz-SvgIconWebsite"></i></body></html>`,
			true,
		},
		{
			"contact link text",
			`<html><body><a class="SellerContactOptions-link" href="#">Bezoek Website</a></body></html>`,
			true,
		},
		{
			"admarkt redirect",
			`<html><body><a href="https://admarkt.marktplaats.nl/bside/url/abc">shop</a></body></html>`,
			true,
		},
		{
			"plain listing",
			`<html><body><a href="/v/fietsen/a123">listing</a></body></html>`,
			false,
		},
		{
			"contact link without website text",
			`<html><body><a class="SellerContactOptions-link" href="#">Bel verkoper</a></body></html>`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasWebsiteButton(mustDoc(t, tt.html)); got != tt.want {
				t.Errorf("HasWebsiteButton = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyUnionsBothChecks(t *testing.T) {
	html := `<html><body><i class="hz-SvgIconWebsite"></i></body></html>`
	reasons := Classify(mustDoc(t, html), "Jansen BV")

	if len(reasons) != 2 {
		t.Fatalf("expected both skip reasons, got %v", reasons)
	}
	if reasons[0] != SkipWebsiteButton || reasons[1] != SkipBusinessSeller {
		t.Errorf("unexpected reasons: %v", reasons)
	}
}
