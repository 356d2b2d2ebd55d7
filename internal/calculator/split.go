package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payfees/internal/models"
)

// StudentShare is one student's part of a paid cart.
type StudentShare struct {
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	Subtotal    float64 `json:"subtotal"`
	ServiceFee  float64 `json:"serviceFee"`
	Total       float64 `json:"total"`
}

// SplitByStudent breaks a cart down per student, charging each a share of
// the service fee proportional to their subtotal.
// Based on: student_total = student_subtotal × (1 + (fee / cart_subtotal))
//
// Shares are rounded to cents; the last student (by ID) absorbs the rounding
// remainder so the fees add up to fee exactly.
func SplitByStudent(lines []models.CheckoutService, fee float64) ([]StudentShare, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("must have at least one service")
	}

	subtotals := make(map[string]decimal.Decimal)
	names := make(map[string]string)
	cart := decimal.Zero
	for _, l := range lines {
		amt := decimal.NewFromFloat(l.Amount)
		subtotals[l.StudentID] = subtotals[l.StudentID].Add(amt)
		if _, ok := names[l.StudentID]; !ok {
			names[l.StudentID] = l.StudentName
		}
		cart = cart.Add(amt)
	}
	if cart.IsZero() {
		return nil, fmt.Errorf("subtotal cannot be zero")
	}

	ids := make([]string, 0, len(subtotals))
	for id := range subtotals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	totalFee := decimal.NewFromFloat(fee).Round(Places)
	allocated := decimal.Zero
	shares := make([]StudentShare, 0, len(ids))
	for i, id := range ids {
		sub := subtotals[id].Round(Places)
		var share decimal.Decimal
		if i == len(ids)-1 {
			share = totalFee.Sub(allocated)
		} else {
			share = sub.Mul(totalFee).Div(cart).Round(Places)
			allocated = allocated.Add(share)
		}
		shares = append(shares, StudentShare{
			StudentID:   id,
			StudentName: names[id],
			Subtotal:    sub.InexactFloat64(),
			ServiceFee:  share.InexactFloat64(),
			Total:       sub.Add(share).InexactFloat64(),
		})
	}
	return shares, nil
}
