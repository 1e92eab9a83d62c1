// internal/scraper/phone.go
package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Dutch mobile numbers: 06 plus 8 digits, optionally with the +31/31
// country prefix replacing the leading 0.
var (
	mobileNationalRe = regexp.MustCompile(`^06\d{8}$`)
	mobileIntlPlusRe = regexp.MustCompile(`^\+316\d{8}$`)
	mobileIntlRe     = regexp.MustCompile(`^316\d{8}$`)
	phoneSepRe       = regexp.MustCompile(`[\s\-()]`)
)

// expandScientific converts a scientific-notation rendering of a number
// (a spreadsheet-origin artifact like 3.16e+10) back to plain digits.
// Returns the input unchanged when it is not scientific notation.
func expandScientific(raw string) (string, bool) {
	if !strings.Contains(strings.ToLower(raw), "e+") {
		return raw, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', 0, 64), true
}

// IsDutchMobile reports whether the raw phone string is a valid Dutch
// mobile number in national or international form.
func IsDutchMobile(raw string) bool {
	if raw == "" {
		return false
	}
	expanded, ok := expandScientific(raw)
	if !ok {
		return false
	}
	clean := phoneSepRe.ReplaceAllString(expanded, "")
	return mobileNationalRe.MatchString(clean) ||
		mobileIntlPlusRe.MatchString(clean) ||
		mobileIntlRe.MatchString(clean)
}

// NormalizePhone canonicalizes a phone number to the +31-prefixed
// international form. Strings that are not Dutch mobiles pass through
// cleaned; they are rejected by IsDutchMobile upstream.
func NormalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	expanded, ok := expandScientific(raw)
	if !ok {
		return ""
	}
	clean := phoneSepRe.ReplaceAllString(expanded, "")

	switch {
	case mobileNationalRe.MatchString(clean):
		return "+31" + clean[1:]
	case mobileIntlPlusRe.MatchString(clean):
		return clean
	case mobileIntlRe.MatchString(clean):
		return "+" + clean
	}
	return clean
}

// Deep-link message fallbacks when the listing carries no seller or title.
const (
	fallbackSeller  = "verkoper"
	fallbackListing = "advertentie"
	unknownPrice    = "prijs onbekend"
)

// dutchPrinter renders prices the way a Dutch reader expects (€1.234,56).
var dutchPrinter = message.NewPrinter(language.Dutch)

// WhatsAppLink builds a pre-filled outbound-message URL for a normalized
// phone number. Returns an empty string when phone is empty.
func WhatsAppLink(phone, sellerName, listingName string, price float64, hasPrice bool) string {
	if phone == "" {
		return ""
	}

	digits := cleanPhone(phone)
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "0") {
		digits = "31" + digits[1:]
	}

	seller := sellerName
	if seller == "" {
		seller = fallbackSeller
	}
	listing := listingName
	if listing == "" {
		listing = fallbackListing
	}
	priceStr := unknownPrice
	if hasPrice {
		priceStr = dutchPrinter.Sprintf("€%.2f", price)
	}

	msg := fmt.Sprintf("Hallo %s, ik heb interesse in uw advertentie '%s' (%s). Is deze nog beschikbaar?",
		seller, listing, priceStr)
	encoded := strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")

	return fmt.Sprintf("https://wa.me/%s/?text=%s", digits, encoded)
}
