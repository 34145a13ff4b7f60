package payment

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvcPattern    = regexp.MustCompile(`^\d{3}$`)
	numberPattern = regexp.MustCompile(`^\d{16}$`)
)

// ValidateCard runs the local checks that must pass before the adapter is
// called. Passing them does not mean the processor will accept the card.
func ValidateCard(card Card, now time.Time) error {
	fields := make(map[string]string)

	if !numberPattern.MatchString(strings.ReplaceAll(card.Number, " ", "")) {
		fields["number"] = "must be exactly 16 digits"
	}

	expiry := strings.TrimSpace(card.Expiry)
	if !expiryPattern.MatchString(expiry) {
		fields["expiry"] = "must be in MM/YY format"
	} else if expired(expiry, now) {
		fields["expiry"] = "card has expired"
	}

	if !cvcPattern.MatchString(strings.TrimSpace(card.CVC)) {
		fields["cvc"] = "must be exactly 3 digits"
	}

	if len(fields) > 0 {
		return &CardError{Fields: fields}
	}
	return nil
}

// expired expects an MM/YY value that already matched expiryPattern.
// The expiry month itself is still valid.
func expired(expiry string, now time.Time) bool {
	month, _ := strconv.Atoi(expiry[:2])
	year, _ := strconv.Atoi(expiry[3:])
	year += 2000

	if year != now.Year() {
		return year < now.Year()
	}
	return month < int(now.Month())
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
