package allfunds

import "fmt"

// ISINLength is the fixed length of an ISIN.
const ISINLength = 12

// ValidateISIN checks the shape of an ISIN: twelve characters, a two-letter
// country prefix, and only upper-case letters and digits after it.
// The check digit is not verified.
func ValidateISIN(isin string) error {
	if len(isin) != ISINLength {
		return &FetchError{Kind: ErrInvalidISIN, ISIN: isin,
			Err: fmt.Errorf("expected %d characters, got %d", ISINLength, len(isin))}
	}
	if !isUpperLetter(isin[0]) || !isUpperLetter(isin[1]) {
		return &FetchError{Kind: ErrInvalidISIN, ISIN: isin,
			Err: fmt.Errorf("first two-letter country code is unavailable")}
	}
	for i := 2; i < len(isin); i++ {
		if !isUpperLetter(isin[i]) && !isDigit(isin[i]) {
			return &FetchError{Kind: ErrInvalidISIN, ISIN: isin,
				Err: fmt.Errorf("unexpected character %q at position %d", isin[i], i)}
		}
	}
	return nil
}

func isUpperLetter(b byte) bool { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool       { return b >= '0' && b <= '9' }
