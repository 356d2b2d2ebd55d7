package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payfees/internal/models"
)

// Places is the number of decimal places amounts are rounded to.
const Places = 2

// Sum adds the amounts of all lines exactly, without rounding.
func Sum(lines []models.CheckoutService) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.Amount))
	}
	return sum.InexactFloat64()
}

// Subtotal sums the amounts of all lines, rounded to cents for charging.
func Subtotal(lines []models.CheckoutService) float64 {
	return decimal.NewFromFloat(Sum(lines)).Round(Places).InexactFloat64()
}

// ServiceFee computes percent% of subtotal, rounded half away from zero.
func ServiceFee(subtotal, percent float64) float64 {
	fee := decimal.NewFromFloat(subtotal).
		Mul(decimal.NewFromFloat(percent)).
		Div(decimal.NewFromInt(100))
	return fee.Round(Places).InexactFloat64()
}

// ComputeTotals calculates subtotal, service fee and final amount for a cart.
// Based on: final = subtotal + subtotal × (feePercent / 100)
func ComputeTotals(lines []models.CheckoutService, feePercent float64, currency string) (models.Totals, error) {
	if len(lines) == 0 {
		return models.Totals{}, fmt.Errorf("must have at least one service")
	}
	if feePercent < 0 {
		return models.Totals{}, fmt.Errorf("service fee percent cannot be negative")
	}
	for _, l := range lines {
		if l.Amount <= 0 {
			return models.Totals{}, fmt.Errorf("service %q has non-positive amount %v", l.ID, l.Amount)
		}
	}

	subtotal := Subtotal(lines)
	fee := ServiceFee(subtotal, feePercent)
	final := decimal.NewFromFloat(subtotal).Add(decimal.NewFromFloat(fee)).Round(Places)

	return models.Totals{
		Subtotal:   subtotal,
		ServiceFee: fee,
		Final:      final.InexactFloat64(),
		Currency:   currency,
	}, nil
}

// FormatAmount renders an amount with a currency symbol, e.g. "USh 150,000.00".
func FormatAmount(amount float64, symbol string) string {
	s := decimal.NewFromFloat(amount).StringFixed(Places)
	intPart, frac := s, ""
	for i := range s {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i:]
			break
		}
	}
	neg := false
	if len(intPart) > 0 && intPart[0] == '-' {
		neg = true
		intPart = intPart[1:]
	}
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	res := string(out) + frac
	if neg {
		res = "-" + res
	}
	if symbol == "" {
		return res
	}
	return symbol + " " + res
}
