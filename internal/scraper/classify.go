// internal/scraper/classify.go
package scraper

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// SkipReason identifies why a listing was excluded from the results.
type SkipReason string

const (
	SkipWebsiteButton  SkipReason = "website_button"
	SkipBusinessSeller SkipReason = "business_seller"
	SkipNoPhone        SkipReason = "no_phone"
	SkipDuplicate      SkipReason = "duplicate"
	SkipFetchFailed    SkipReason = "fetch_failed"
)

// AllSkipReasons lists every reason in reporting order.
var AllSkipReasons = []SkipReason{
	SkipWebsiteButton,
	SkipBusinessSeller,
	SkipNoPhone,
	SkipDuplicate,
	SkipFetchFailed,
}

// commercialPatterns is the curated keyword list marking commercial
// sellers: retail and rental vocabulary, company-form tokens, domain
// suffixes and trade jargon, Dutch and English. Matching any of them
// flags the seller name as business.
var commercialPatterns = []string{
	`\bop voorraad\b`, `\bleverbaar\b`, `\brefurbished\b`, `\bgarantie\b`,
	`\bshowroom\b`, `\bmontage\b`, `\binstallatie\b`, `\blegservice\b`,
	`\btickets\b`, `\bverhuur\b`, `\bte huur\b`, `\bdeal prijs\b`,
	`\bincl\.?\b`, `\binclusief\b`, `\bstuks\b`, `\bpartijen\b`,
	`\bpartijkoop\b`, `\bpartijverkoop\b`, `\bautomaat\b`, `\bwaardebonnen\b`,
	`\blegbordstelling\b`, `\bvitrine\b`, `\bwinkelkast\b`, `\bhoreca\b`,
	`\bmeubelrestauratie\b`, `\bgevraagd\b`, `\bgezocht\b`, `\brenovatie\b`,
	`\bvloer\b`, `\btrap\b`, `\bairco\b`, `\bvakantie\b`, `\bchalet\b`,
	`\bbed and breakfast\b`, `\bb&b\b`, `\bkantoor\b`, `\bbureau\b`,
	`\bgratis verzenden\b`, `\btotaal overzicht\b`, `\baanbieding\b`,
	`\bkoopje\b`, `\bop=op\b`, `\breparatie\b`, `\bverkoop\b`,
	`\bshop\b`, `\bstore\b`, `\bjuwelier\b`, `\bbv\b`, `\bvof\b`,
	`\bgroup\b`, `\bgroep\b`, `\bservice\b`, `\bhandel\b`,
	`\bgroothandel\b`, `\batelier\b`, `\bonderneming\b`, `\bspecialist\b`,
	`\bmodelbouw\b`, `\bbikesland\b`,
	`\.nl\b`, `\.com\b`, `\.be\b`, `\.eu\b`, `\.org\b`,
	`\bwww\.\b`, `\bhttp\b`, `\bwebsite\b`, `\bwebshop\b`,
	`\bonline\b`, `\be-commerce\b`, `\bgrote aantallen\b`,
	`\bwholesale\b`, `\bretail\b`, `\bbedrijf\b`, `\bcompany\b`,
	`\bltd\b`, `\blimited\b`, `\bcorp\b`, `\bcorporation\b`,
	`\bfabrikant\b`, `\bimporteur\b`, `\bdistributeur\b`,
	`\bvoordeel\b`, `\bactie\b`, `\bkorting\b`, `\bsale\b`,
	`\bpakket\b`, `\bset van\b`, `\bbulk\b`, `\bvoorraad\b`,
	`\blevertijd\b`, `\blevering\b`, `\bmagazijn\b`, `\bopslag\b`,
	`\bvakman\b`, `\binstallateur\b`, `\bmonteur\b`, `\btechniek\b`,
	`\bverhuurservice\b`, `\brentals?\b`, `\blease\b`, `\bleasing\b`,
	`\breclame\b`, `\bpromotie\b`, `\bsponsoring\b`,
	`\bzoekt\b`, `\bwil kopen\b`, `\bgroot aantal\b`,
	`\bper stuk\b`, `\bper set\b`, `\bminimum afname\b`,
	`\bcertificaat\b`, `\bgediplomeerd\b`, `\berkend\b`,
	`\ball-in\b`, `\bpakket deal\b`, `\bcombinatie\b`,
	`\btweedehands zaak\b`, `\bkringloop\b`, `\bopkoper\b`,
}

var commercialRe = regexp.MustCompile(`(?i)` + strings.Join(commercialPatterns, "|"))

// legalEntityTokens are company-form abbreviations matched as substrings
// of the lowercased name.
var legalEntityTokens = []string{"bv ", " bv", "b.v.", "vof ", " vof", "v.o.f."}

var digitRunRe = regexp.MustCompile(`\d{3,}`)

// sellerRule is one business-seller heuristic with a name for inspection.
type sellerRule struct {
	name  string
	match func(name string) bool
}

// sellerRules are evaluated in order; the first hit flags the name.
// All heuristics, false positives and negatives are accepted.
var sellerRules = []sellerRule{
	{"commercial_keyword", func(name string) bool {
		return commercialRe.MatchString(name)
	}},
	{"capital_density", func(name string) bool {
		capitals := 0
		for _, r := range name {
			if unicode.IsUpper(r) {
				capitals++
			}
		}
		return capitals > 5 && len([]rune(name)) > 10
	}},
	{"legal_entity", func(name string) bool {
		lower := strings.ToLower(name)
		for _, token := range legalEntityTokens {
			if strings.Contains(lower, token) {
				return true
			}
		}
		return false
	}},
	{"digits_or_email", func(name string) bool {
		return digitRunRe.MatchString(name) || strings.Contains(name, "@")
	}},
	{"all_caps", func(name string) bool {
		return len([]rune(name)) > 8 && isAllUpper(name)
	}},
}

// isAllUpper reports whether the name contains letters and none of them
// is lowercase, matching Python's str.isupper.
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		hasLetter = true
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return hasLetter
}

// IsBusinessSeller applies the seller-name heuristics. An absent name is
// never flagged.
func IsBusinessSeller(sellerName string) bool {
	if sellerName == "" {
		return false
	}
	for _, rule := range sellerRules {
		if rule.match(sellerName) {
			return true
		}
	}
	return false
}

// Storefront markup indicators.
const (
	websiteIconSelector   = "i.hz-SvgIconWebsite"
	contactOptionSelector = "a.SellerContactOptions-link"
	admarktRedirectPrefix = "https://admarkt.marktplaats.nl/bside/url/"
)

// HasWebsiteButton reports whether the listing page carries an external
// "visit website" action: the website icon, a contact link mentioning
// "website", or a sponsored admarkt redirect anchor.
func HasWebsiteButton(doc *goquery.Document) bool {
	if doc.Find(websiteIconSelector).Length() > 0 {
		return true
	}

	found := false
	doc.Find(contactOptionSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), "website") {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, admarktRedirectPrefix) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Classify runs both storefront checks and returns the union of skip
// reasons that apply.
func Classify(doc *goquery.Document, sellerName string) []SkipReason {
	var reasons []SkipReason
	if HasWebsiteButton(doc) {
		reasons = append(reasons, SkipWebsiteButton)
	}
	if IsBusinessSeller(sellerName) {
		reasons = append(reasons, SkipBusinessSeller)
	}
	return reasons
}
