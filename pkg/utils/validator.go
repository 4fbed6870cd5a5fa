package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	fiscalCodeRegex = regexp.MustCompile(`^[A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z]$`)
	vatNumberRegex  = regexp.MustCompile(`^\d{11}$`)
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// IsPersonalFiscalCode reports whether s has the shape of an individual's codice fiscale
// (6 letters, 2 digits, 1 letter, 2 digits, 1 letter, 3 digits, 1 letter).
// Companies use their 11-digit VAT number as fiscal code, which does not match.
func IsPersonalFiscalCode(s string) bool {
	return fiscalCodeRegex.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidateVATNumber validates an Italian partita IVA, including its check digit
func ValidateVATNumber(vat string) error {
	vat = strings.TrimSpace(vat)
	if !vatNumberRegex.MatchString(vat) {
		return fmt.Errorf("VAT number must be 11 digits: %s", vat)
	}

	sum := 0
	for i := 0; i < 10; i++ {
		d := int(vat[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	if check != int(vat[10]-'0') {
		return fmt.Errorf("VAT number check digit mismatch: %s", vat)
	}
	return nil
}

// SanitizeString removes control characters that XML 1.0 cannot carry; tabs and line breaks stay
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
