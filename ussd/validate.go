package ussd

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"bitbucket.org/vservices/utils/v4/errors"
)

var (
	pinRegex         = regexp.MustCompile(`^[0-9]{4}$`)
	msisdnLocalRegex = regexp.MustCompile(`^0[17][0-9]{8}$`)
	msisdnIntlRegex  = regexp.MustCompile(`^254[17][0-9]{8}$`)
	accountRefRegex  = regexp.MustCompile(`^[0-9]+$`)
)

//ValidateAmount() accepts any string that parses as a finite number > 0
//amounts are otherwise opaque: they are forwarded verbatim to the gateway
func ValidateAmount(input string) (string, error) {
	s := strings.TrimSpace(input)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return "", errors.Errorf("Invalid amount")
	}
	return s, nil
}

//ValidatePIN() checks format only - the backend is authoritative on the value
func ValidatePIN(input string) error {
	if !pinRegex.MatchString(input) {
		return errors.Errorf("Invalid PIN, must be 4 digits")
	}
	return nil
}

//NormalizeMsisdn() maps the two accepted local prefixes (07x, 01x) onto the
//canonical international 254 form; already-canonical numbers pass through
//unchanged and anything else is rejected
func NormalizeMsisdn(input string) (string, error) {
	s := strings.TrimSpace(input)
	if msisdnIntlRegex.MatchString(s) {
		return s, nil
	}
	if msisdnLocalRegex.MatchString(s) {
		return "254" + s[1:], nil
	}
	return "", errors.Errorf("Invalid phone number")
}

//ValidateSelection() resolves a 1-based menu index into the chosen item
func ValidateSelection(input string, items []string) (string, error) {
	i, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || i < 1 || i > len(items) {
		return "", errors.Errorf("Invalid selection")
	}
	return items[i-1], nil
}

//ValidateReference() accepts a numeric account/reference number within
//length bounds
func ValidateReference(input string, minLen int, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if len(s) < minLen || len(s) > maxLen || !accountRefRegex.MatchString(s) {
		return "", errors.Errorf("Invalid account number")
	}
	return s, nil
}

//ValidateText() bounds free text entry
func ValidateText(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" || len(s) > maxLen {
		return "", errors.Errorf("Invalid entry")
	}
	return s, nil
}
