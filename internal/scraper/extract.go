// internal/scraper/extract.go
package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Listing detail markup selectors.
const (
	jsonLDSelector         = `script[type="application/ld+json"]`
	sellerNameSelector     = "div.PhoneDialog-name"
	sellerLocationSelector = "div.PhoneDialog-location"
	sellerPhoneSelector    = "div.PhoneDialog-phone"
	priceSelector          = "div.ListingHeader-price"
	priceClassFragment     = "ListingHeader-price"
)

// Record is the structured result of extracting one listing page.
type Record struct {
	URL         string
	ListingName string
	SellerName  string
	Location    string
	PhoneRaw    string
	Price       float64
	HasPrice    bool
	SkipReasons []SkipReason
}

// pageContext carries the parsed document and raw markup through the
// extraction tiers. The embedded config object lives in a script block
// that only the raw text can reach.
type pageContext struct {
	doc *goquery.Document
	raw string
}

// extractTier fills unset Record fields from one source. Tiers run in
// order; a tier never overwrites a field an earlier tier populated.
type extractTier func(*pageContext, *Record)

var extractTiers = []extractTier{
	extractBreadcrumbName,
	extractConfigFields,
	extractDialogFields,
	extractPriceFallback,
	extractTitleFallback,
}

// ExtractListing parses a listing page body into a Record, applying the
// tiered fallback chain and attaching classification skip reasons last.
// Records carrying skip reasons are still returned so callers can tally
// statistics without re-fetching.
func ExtractListing(body, pageURL string) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	ctx := &pageContext{doc: doc, raw: body}
	rec := &Record{URL: pageURL}

	for _, tier := range extractTiers {
		tier(ctx, rec)
	}

	rec.SkipReasons = Classify(doc, rec.SellerName)
	return rec, nil
}

// extractBreadcrumbName reads the listing name from a JSON-LD breadcrumb
// block: the name of the last itemListElement entry, including entries
// nested under @graph. Invalid JSON gets one brace-slice rescue attempt.
func extractBreadcrumbName(ctx *pageContext, rec *Record) {
	if rec.ListingName != "" {
		return
	}

	ctx.doc.Find(jsonLDSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		var parsed interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			first, last := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
			if first == -1 || last <= first {
				return true
			}
			if err := json.Unmarshal([]byte(raw[first:last+1]), &parsed); err != nil {
				return true
			}
		}

		var objects []map[string]interface{}
		switch v := parsed.(type) {
		case map[string]interface{}:
			objects = append(objects, v)
		case []interface{}:
			for _, item := range v {
				if obj, ok := item.(map[string]interface{}); ok {
					objects = append(objects, obj)
				}
			}
		}

		for _, obj := range objects {
			if name := lastBreadcrumbName(obj["itemListElement"]); name != "" {
				rec.ListingName = name
				return false
			}
			if graph, ok := obj["@graph"].([]interface{}); ok {
				for _, node := range graph {
					nodeObj, ok := node.(map[string]interface{})
					if !ok {
						continue
					}
					if name := lastBreadcrumbName(nodeObj["itemListElement"]); name != "" {
						rec.ListingName = name
						return false
					}
				}
			}
		}
		return true
	})
}

// lastBreadcrumbName returns the name of the final breadcrumb item.
func lastBreadcrumbName(v interface{}) string {
	items, ok := v.([]interface{})
	if !ok || len(items) == 0 {
		return ""
	}
	last, ok := items[len(items)-1].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := last["name"].(string)
	return name
}

var (
	configAssignRe   = regexp.MustCompile(`window\.__CONFIG__\s*=\s*\{`)
	configAssignAlt  = regexp.MustCompile(`__CONFIG__\s*=\s*\{`)
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	leadingNonWordRe = regexp.MustCompile(`^\W+`)
)

// extractBracedObject returns the balanced {...} object starting at start,
// tracking string literals and escapes so braces inside strings do not
// unbalance the scan. Returns false when the object never closes.
func extractBracedObject(text string, start int) (string, bool) {
	depth := 0
	inStr := false
	var strChar byte
	escape := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inStr {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == strChar:
				inStr = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inStr = true
			strChar = ch
		case '{':
			depth++
		case '}':
			depth--
			if depth <= 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// findConfigObject locates the page-configuration assignment in the raw
// markup and parses the brace-delimited object as JSON. The surrounding
// script is not valid standalone JSON, so the object is carved out
// textually first. A failed parse gets one retry with trailing commas
// before closing brackets removed.
func findConfigObject(raw string) map[string]interface{} {
	loc := configAssignRe.FindStringIndex(raw)
	if loc == nil {
		loc = configAssignAlt.FindStringIndex(raw)
	}
	if loc == nil {
		return nil
	}

	objStart := strings.Index(raw[loc[0]:], "{")
	if objStart == -1 {
		return nil
	}
	objStart += loc[0]

	objText, ok := extractBracedObject(raw, objStart)
	if !ok {
		return nil
	}
	objText = strings.TrimSuffix(strings.TrimSpace(objText), ";")

	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(objText), &cfg); err == nil {
		return cfg
	}

	cleaned := trailingCommaRe.ReplaceAllString(objText, "$1")
	if err := json.Unmarshal([]byte(cleaned), &cfg); err == nil {
		return cfg
	}
	return nil
}

// extractConfigFields reads seller and price data from the embedded page
// configuration object.
func extractConfigFields(ctx *pageContext, rec *Record) {
	cfg := findConfigObject(ctx.raw)
	if cfg == nil {
		return
	}

	listing, _ := cfg["listing"].(map[string]interface{})
	if listing == nil {
		return
	}
	seller, _ := listing["seller"].(map[string]interface{})

	if rec.SellerName == "" && seller != nil {
		if name, _ := seller["name"].(string); name != "" {
			rec.SellerName = name
		}
	}
	if rec.SellerName == "" {
		rec.SellerName = customDimension(listing, "seller_name")
	}

	if rec.Location == "" && seller != nil {
		if loc, ok := seller["location"].(map[string]interface{}); ok {
			if city, _ := loc["cityName"].(string); city != "" {
				rec.Location = city
			} else if city, _ := loc["city"].(string); city != "" {
				rec.Location = city
			}
		}
	}

	if rec.PhoneRaw == "" && seller != nil {
		phone, _ := seller["phoneNumber"].(string)
		if phone == "" {
			phone, _ = seller["phone"].(string)
		}
		if phone != "" {
			rec.PhoneRaw = cleanPhone(phone)
		}
	}

	if !rec.HasPrice {
		if priceInfo, ok := listing["priceInfo"].(map[string]interface{}); ok {
			if cents, ok := priceInfo["priceCents"].(float64); ok {
				rec.Price = cents / 100.0
				rec.HasPrice = true
			}
		}
	}

	if rec.ListingName == "" {
		if title, _ := listing["title"].(string); title != "" {
			rec.ListingName = title
		}
	}
}

// customDimension returns the value of the custom dimension entry keyed by
// the given index name.
func customDimension(listing map[string]interface{}, index string) string {
	dims, ok := listing["customDimensions"].([]interface{})
	if !ok {
		return ""
	}
	for _, d := range dims {
		dim, ok := d.(map[string]interface{})
		if !ok {
			continue
		}
		if idx, _ := dim["index"].(string); idx == index {
			value, _ := dim["value"].(string)
			return value
		}
	}
	return ""
}

// extractDialogFields fills seller name, location and phone from the
// contact dialog elements when earlier tiers left them unset.
func extractDialogFields(ctx *pageContext, rec *Record) {
	if rec.SellerName == "" {
		rec.SellerName = strings.TrimSpace(ctx.doc.Find(sellerNameSelector).First().Text())
	}

	if rec.Location == "" {
		loc := strings.TrimSpace(ctx.doc.Find(sellerLocationSelector).First().Text())
		if loc != "" {
			// Postal code prefixes like "1234 AB Amsterdam" reduce to the city.
			loc = leadingNonWordRe.ReplaceAllString(loc, "")
			parts := strings.Fields(loc)
			if len(parts) > 0 {
				rec.Location = parts[len(parts)-1]
			} else {
				rec.Location = loc
			}
		}
	}

	if rec.PhoneRaw == "" {
		phone := strings.TrimSpace(ctx.doc.Find(sellerPhoneSelector).First().Text())
		if phone != "" {
			rec.PhoneRaw = cleanPhone(phone)
		}
	}
}

// extractPriceFallback parses the listing header price element.
func extractPriceFallback(ctx *pageContext, rec *Record) {
	if rec.HasPrice {
		return
	}

	el := ctx.doc.Find(priceSelector).First()
	if el.Length() == 0 {
		el = ctx.doc.Find(fmt.Sprintf("[class*=%q]", priceClassFragment)).First()
	}
	if el.Length() == 0 {
		return
	}

	if price, ok := ParsePriceText(el.Text()); ok {
		rec.Price = price
		rec.HasPrice = true
	}
}

// extractTitleFallback uses the page h1, then og:title / twitter:title.
func extractTitleFallback(ctx *pageContext, rec *Record) {
	if rec.ListingName != "" {
		return
	}

	if h1 := strings.TrimSpace(ctx.doc.Find("h1").First().Text()); h1 != "" {
		rec.ListingName = h1
		return
	}

	meta := ctx.doc.Find(`meta[property="og:title"]`).First()
	if meta.Length() == 0 {
		meta = ctx.doc.Find(`meta[name="twitter:title"]`).First()
	}
	if content, ok := meta.Attr("content"); ok && content != "" {
		rec.ListingName = content
	}
}

var priceCharsRe = regexp.MustCompile(`[^\d.,\-]`)

// ParsePriceText parses a human-formatted price into a decimal value.
// When both separators occur the dot is a thousands separator and the
// comma the decimal separator (European convention); a lone dot is a
// thousands separator and a lone comma a decimal separator.
func ParsePriceText(text string) (float64, bool) {
	txt := priceCharsRe.ReplaceAllString(strings.TrimSpace(text), "")
	if txt == "" {
		return 0, false
	}

	hasDot := strings.Contains(txt, ".")
	hasComma := strings.Contains(txt, ",")
	switch {
	case hasDot && hasComma:
		txt = strings.ReplaceAll(txt, ".", "")
		txt = strings.ReplaceAll(txt, ",", ".")
	case hasDot:
		txt = strings.ReplaceAll(txt, ".", "")
	case hasComma:
		txt = strings.ReplaceAll(txt, ",", ".")
	}

	price, err := strconv.ParseFloat(txt, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

var nonPhoneCharsRe = regexp.MustCompile(`[^\d+]`)

// cleanPhone strips everything except digits and a plus sign.
func cleanPhone(raw string) string {
	return nonPhoneCharsRe.ReplaceAllString(raw, "")
}
