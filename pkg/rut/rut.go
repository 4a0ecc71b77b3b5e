// Package rut validates and formats Chilean RUT (Rol Único Tributario)
// identification numbers using the standard Modulo-11 check digit
// algorithm.
package rut

import (
	"fmt"
	"strings"

	"dispatch/pkg/apperror"
)

var multipliers = [6]int{2, 3, 4, 5, 6, 7}

// Clean strips dots, hyphens, and surrounding whitespace and upper-cases
// the check digit.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '.', '-', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// checkDigit computes the expected check digit for a numeric RUT body.
func checkDigit(number string) string {
	total := 0
	reversed := []byte(number)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	for i, d := range reversed {
		total += int(d-'0') * multipliers[i%6]
	}
	remainder := total % 11
	digit := 11 - remainder
	switch digit {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return fmt.Sprintf("%d", digit)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate checks a RUT's format and check digit, returning an
// apperror.CodeInvalidInput error describing the first rule violated.
func Validate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperror.InvalidInput("rut", "must not be empty")
	}

	cleaned := Clean(raw)

	if len(cleaned) < 8 {
		return apperror.InvalidInput("rut", "must have at least 7 digits plus check digit")
	}
	if len(cleaned) > 9 {
		return apperror.InvalidInput("rut", "must not have more than 8 digits")
	}

	number := cleaned[:len(cleaned)-1]
	provided := cleaned[len(cleaned)-1:]

	if !isDigits(number) {
		return apperror.InvalidInput("rut", "body must contain only digits")
	}
	if !isDigits(provided) && provided != "K" {
		return apperror.InvalidInput("rut", "check digit must be 0-9 or K")
	}

	expected := checkDigit(number)
	if provided != expected {
		return apperror.InvalidInput("rut", "check digit does not match").
			WithDetail("expected", expected).
			WithDetail("received", provided)
	}

	return nil
}

// Format renders a cleaned RUT as XX.XXX.XXX-X. It does not validate;
// callers should run Validate first if correctness matters.
func Format(raw string) string {
	cleaned := Clean(raw)
	if len(cleaned) < 2 {
		return raw
	}

	number := cleaned[:len(cleaned)-1]
	check := cleaned[len(cleaned)-1:]

	var formatted []byte
	for i := 0; i < len(number); i++ {
		digit := number[len(number)-1-i]
		if i > 0 && i%3 == 0 {
			formatted = append([]byte{'.'}, formatted...)
		}
		formatted = append([]byte{digit}, formatted...)
	}

	return fmt.Sprintf("%s-%s", string(formatted), check)
}

// Normalize validates raw and, if valid, returns it in standard format.
func Normalize(raw string) (string, error) {
	if err := Validate(raw); err != nil {
		return "", err
	}
	return Format(raw), nil
}
