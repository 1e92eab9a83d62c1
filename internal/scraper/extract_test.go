// internal/scraper/extract_test.go
package scraper

import (
	"strings"
	"testing"
)

const listingPageHTML = `<!DOCTYPE html>
<html>
<head>
<title>page</title>
<script type="application/ld+json">
{"@type":"BreadcrumbList","itemListElement":[{"name":"Fietsen"},{"name":"Stadsfiets Gazelle"}]}
</script>
<script>
window.__CONFIG__ = {
  "listing": {
    "title": "Gazelle stadsfiets 28 inch",
    "seller": {
      "name": "Jan de Vries",
      "location": {"cityName": "Utrecht"},
      "phoneNumber": "06 12 34 56 78"
    },
    "priceInfo": {"priceCents": 12550},
  },
};
</script>
</head>
<body>
<h1>Gazelle stadsfiets</h1>
</body>
</html>`

func TestExtractListing_ConfigObject(t *testing.T) {
	rec, err := ExtractListing(listingPageHTML, "https://www.marktplaats.nl/v/a1")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	// Breadcrumb wins over config title and h1
	if rec.ListingName != "Stadsfiets Gazelle" {
		t.Errorf("expected breadcrumb listing name, got %q", rec.ListingName)
	}
	if rec.SellerName != "Jan de Vries" {
		t.Errorf("expected seller from config object, got %q", rec.SellerName)
	}
	if rec.Location != "Utrecht" {
		t.Errorf("expected Utrecht, got %q", rec.Location)
	}
	if rec.PhoneRaw != "0612345678" {
		t.Errorf("expected cleaned phone, got %q", rec.PhoneRaw)
	}
	if !rec.HasPrice || rec.Price != 125.50 {
		t.Errorf("expected price 125.50 from cents, got %v (has=%v)", rec.Price, rec.HasPrice)
	}
	if len(rec.SkipReasons) != 0 {
		t.Errorf("expected no skip reasons, got %v", rec.SkipReasons)
	}
}

func TestExtractListing_DialogFallback(t *testing.T) {
	html := `<html><body>
<h1>Oude kast</h1>
<div class="PhoneDialog-name">Piet Bakker</div>
<div class="PhoneDialog-location">, 3512 JE Utrecht</div>
<div class="PhoneDialog-phone">06-87654321</div>
<div class="ListingHeader-price">€ 1.234,56</div>
</body></html>`

	rec, err := ExtractListing(html, "https://www.marktplaats.nl/v/a2")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	if rec.ListingName != "Oude kast" {
		t.Errorf("expected h1 fallback title, got %q", rec.ListingName)
	}
	if rec.SellerName != "Piet Bakker" {
		t.Errorf("expected dialog seller name, got %q", rec.SellerName)
	}
	// Postal code prefix reduces to the city token
	if rec.Location != "Utrecht" {
		t.Errorf("expected Utrecht from location tail, got %q", rec.Location)
	}
	if rec.PhoneRaw != "0687654321" {
		t.Errorf("expected cleaned dialog phone, got %q", rec.PhoneRaw)
	}
	if !rec.HasPrice || rec.Price != 1234.56 {
		t.Errorf("expected 1234.56 from price element, got %v", rec.Price)
	}
}

func TestExtractListing_MetaTitleFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Antieke klok"></head><body></body></html>`
	rec, err := ExtractListing(html, "https://www.marktplaats.nl/v/a3")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if rec.ListingName != "Antieke klok" {
		t.Errorf("expected og:title fallback, got %q", rec.ListingName)
	}
}

func TestExtractListing_CustomDimensionSeller(t *testing.T) {
	html := `<html><body><script>
window.__CONFIG__ = {"listing": {"customDimensions": [{"index": "ad_type", "value": "x"}, {"index": "seller_name", "value": "Kees"}]}};
</script></body></html>`

	rec, err := ExtractListing(html, "https://www.marktplaats.nl/v/a4")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if rec.SellerName != "Kees" {
		t.Errorf("expected custom dimension seller, got %q", rec.SellerName)
	}
}

func TestFindConfigObject(t *testing.T) {
	t.Run("braces inside strings", func(t *testing.T) {
		raw := `foo; window.__CONFIG__ = {"a": "has { and } inside", "b": {"c": 1}}; bar`
		cfg := findConfigObject(raw)
		if cfg == nil {
			t.Fatal("expected config object")
		}
		if cfg["a"] != "has { and } inside" {
			t.Errorf("unexpected value: %v", cfg["a"])
		}
	})

	t.Run("trailing commas cleaned", func(t *testing.T) {
		raw := `window.__CONFIG__ = {"list": [1, 2,], "obj": {"k": "v",},};`
		cfg := findConfigObject(raw)
		if cfg == nil {
			t.Fatal("expected config object after trailing-comma cleanup")
		}
	})

	t.Run("missing assignment", func(t *testing.T) {
		if cfg := findConfigObject("<html>nothing here</html>"); cfg != nil {
			t.Errorf("expected nil, got %v", cfg)
		}
	})

	t.Run("unterminated object", func(t *testing.T) {
		if cfg := findConfigObject(`window.__CONFIG__ = {"a": 1`); cfg != nil {
			t.Errorf("expected nil for unterminated object, got %v", cfg)
		}
	})
}

func TestExtractBracedObject(t *testing.T) {
	text := `{"a": {"b": "}"}, "c": 'single {'}`
	obj, ok := extractBracedObject(text, 0)
	if !ok {
		t.Fatal("expected balanced object")
	}
	if obj != text {
		t.Errorf("expected full object, got %q", obj)
	}
}

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"1.234,56", 1234.56, true},
		{"1234.56", 123456, true}, // lone dot is a thousands separator
		{"1234,56", 1234.56, true},
		{"€ 1.234,56", 1234.56, true},
		{"750", 750, true},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParsePriceText(tt.input)
		if ok != tt.ok {
			t.Errorf("ParsePriceText(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParsePriceText(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExtractListing_GraphBreadcrumb(t *testing.T) {
	html := `<html><head><script type="application/ld+json">
{"@graph": [{"@type": "BreadcrumbList", "itemListElement": [{"name": "Audio"}, {"name": "Platenspeler"}]}]}
</script></head><body></body></html>`

	rec, err := ExtractListing(html, "https://www.marktplaats.nl/v/a5")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if rec.ListingName != "Platenspeler" {
		t.Errorf("expected @graph breadcrumb name, got %q", rec.ListingName)
	}
}

func TestExtractListing_MalformedConfigDegrades(t *testing.T) {
	html := strings.ReplaceAll(listingPageHTML, "window.__CONFIG__", "window.__BROKEN__")
	rec, err := ExtractListing(html, "https://www.marktplaats.nl/v/a6")
	if err != nil {
		t.Fatalf("extraction must not fail on missing config: %v", err)
	}
	// Breadcrumb tier still supplies the name; config-only fields stay empty
	if rec.ListingName != "Stadsfiets Gazelle" {
		t.Errorf("expected breadcrumb name, got %q", rec.ListingName)
	}
	if rec.SellerName != "" {
		t.Errorf("expected no seller without config/dialog, got %q", rec.SellerName)
	}
}
