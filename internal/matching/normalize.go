// Package matching normalises receipt line names and barcodes so they can be
// compared with what the inventory service and stores report.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonDigitRe       = regexp.MustCompile(`[^0-9]`)
	placeholderRe    = regexp.MustCompile(`^0+$`)
	variableWeightRe = regexp.MustCompile(`^2[0-9]`) // EAN-13 prefix 20-29
	nonWordRe        = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// NormalizeBarcode handles UPC-A vs EAN-13, separators and invalid codes.
// Returns empty string for invalid/placeholder barcodes that should be skipped.
func NormalizeBarcode(barcode string) string {
	bc := nonDigitRe.ReplaceAllString(barcode, "")
	if bc == "" || placeholderRe.MatchString(bc) {
		return ""
	}

	// In-store variable weight labels encode the price, not the product
	if len(bc) == 13 && variableWeightRe.MatchString(bc) {
		return ""
	}

	// UPC-A (12 digits) -> EAN-13
	if len(bc) == 12 {
		bc = "0" + bc
	}

	if len(bc) != 13 {
		// EAN-8 and store-internal codes are kept as they are
		return bc
	}
	if !validateEAN13CheckDigit(bc) {
		return ""
	}
	return bc
}

func validateEAN13CheckDigit(bc string) bool {
	if len(bc) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(bc[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	checkDigit := (10 - (sum % 10)) % 10
	return int(bc[12]-'0') == checkDigit
}

// RemoveDiacritics strips combining marks, e.g. macrons: "Kūmara" -> "Kumara".
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeReceiptName folds a receipt line name for comparison: diacritics
// removed, case folded, punctuation dropped and whitespace collapsed.
// "ANCHOR BTR 500G." and "Anchor btr  500g" normalise to the same key.
func NormalizeReceiptName(name string) string {
	s := RemoveDiacritics(name)
	s = cases.Fold().String(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

