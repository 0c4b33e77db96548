package emi

import (
	"errors"
	"math"
)

var ErrInvalidInput = errors.New("emi: invalid input")

// Result holds the full-precision output of an EMI calculation.
// Callers round with Round2 right before persisting, so stored 2-decimal
// values stay auditable against the repayment totals.
type Result struct {
	EMI           float64 `json:"emi"`
	TotalPayable  float64 `json:"total_payable"`
	TotalInterest float64 `json:"total_interest"`
}

// Calculate computes the fixed monthly installment for a reducing-balance
// loan of the given principal, annual rate (percent) and tenure in months.
//
//	monthlyRate = annualRate / (12 * 100)
//	emi         = P * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate degenerates to an even split of the principal.
func Calculate(principal, annualRate float64, tenureMonths int) (Result, error) {
	if principal <= 0 || tenureMonths <= 0 || annualRate < 0 {
		return Result{}, ErrInvalidInput
	}

	n := float64(tenureMonths)
	r := annualRate / (12 * 100)

	var payment float64
	if r == 0 {
		payment = principal / n
	} else {
		factor := math.Pow(1+r, n)
		payment = principal * r * factor / (factor - 1)
	}

	total := payment * n
	return Result{
		EMI:           payment,
		TotalPayable:  total,
		TotalInterest: total - principal,
	}, nil
}

// Round2 rounds a monetary value to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
