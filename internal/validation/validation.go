// Package validation checks user-entered fields on the client.
//
// Every validator returns an empty string when the value is acceptable and a
// human-readable message otherwise, so results map straight onto inline
// field errors.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Phone number limits, counted in digits after stripping formatting.
const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 13
)

// Name limits, in characters.
const (
	MinNameLength = 2
	MaxNameLength = 100
)

// digits returns s with every non-digit removed.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Phone validates a phone number. Spaces, dashes, parentheses and a leading
// "+" are tolerated; any other non-digit is rejected.
func Phone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "Phone number is required"
	}
	for _, r := range phone {
		if !unicode.IsDigit(r) && !strings.ContainsRune(" -()+", r) {
			return "Phone number can only contain digits"
		}
	}
	n := len(digits(phone))
	if n < MinPhoneDigits {
		return fmt.Sprintf("Phone number must be at least %d digits", MinPhoneDigits)
	}
	if n > MaxPhoneDigits {
		return fmt.Sprintf("Phone number must be at most %d digits", MaxPhoneDigits)
	}
	return ""
}

// NormalizePhone strips formatting characters, keeping digits only.
func NormalizePhone(phone string) string {
	return digits(phone)
}

// Name validates a person's name: letters, spaces, apostrophes, dots and hyphens.
func Name(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Name is required"
	}
	n := len([]rune(name))
	if n < MinNameLength {
		return fmt.Sprintf("Name must be at least %d characters", MinNameLength)
	}
	if n > MaxNameLength {
		return fmt.Sprintf("Name must be at most %d characters", MaxNameLength)
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !strings.ContainsRune(" '.-", r) {
			return "Name can only contain letters, spaces, apostrophes and hyphens"
		}
	}
	return ""
}

// Luhn reports whether number passes the Luhn checksum. Spaces and dashes
// are stripped first; any other non-digit makes the number invalid.
func Luhn(number string) bool {
	number = strings.NewReplacer(" ", "", "-", "").Replace(number)
	if len(number) < 13 || len(number) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CardNumber validates a card number.
func CardNumber(number string) string {
	if strings.TrimSpace(number) == "" {
		return "Card number is required"
	}
	if !Luhn(number) {
		return "Invalid card number"
	}
	return ""
}

// CardHolder validates the name printed on the card.
func CardHolder(holder string) string {
	if strings.TrimSpace(holder) == "" {
		return "Cardholder name is required"
	}
	return Name(holder)
}

// ExpiryDate validates an MM/YY expiry against now. A card is valid through
// the last day of its expiry month.
func ExpiryDate(expiry string, now time.Time) string {
	expiry = strings.TrimSpace(expiry)
	if expiry == "" {
		return "Expiry date is required"
	}
	month, year, ok := strings.Cut(expiry, "/")
	if !ok || len(month) != 2 || len(year) != 2 {
		return "Expiry date must be in MM/YY format"
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "Invalid expiry month"
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "Invalid expiry year"
	}
	// First instant after the expiry month.
	end := time.Date(2000+y, time.Month(m)+1, 1, 0, 0, 0, 0, now.Location())
	if !now.Before(end) {
		return "Card has expired"
	}
	return ""
}

// CVV validates a 3 or 4 digit security code.
func CVV(cvv string) string {
	cvv = strings.TrimSpace(cvv)
	if cvv == "" {
		return "CVV is required"
	}
	if len(cvv) < 3 || len(cvv) > 4 || digits(cvv) != cvv {
		return "CVV must be 3 or 4 digits"
	}
	return ""
}

// Amount validates a payment amount against inclusive bounds.
func Amount(amount, min, max float64) string {
	if amount <= 0 {
		return "Amount must be greater than zero"
	}
	if amount < min {
		return fmt.Sprintf("Amount must be at least %s", strconv.FormatFloat(min, 'f', -1, 64))
	}
	if amount > max {
		return fmt.Sprintf("Amount must not exceed %s", strconv.FormatFloat(max, 'f', -1, 64))
	}
	return ""
}

// Required validates that a free-text field is present.
func Required(value, field string) string {
	if strings.TrimSpace(value) == "" {
		return field + " is required"
	}
	return ""
}

// First returns the first non-empty message, or "" when all passed.
func First(messages ...string) string {
	for _, m := range messages {
		if m != "" {
			return m
		}
	}
	return ""
}
