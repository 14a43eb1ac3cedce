package services

import (
	"math"
	"testing"
)

func TestCalcAmount(t *testing.T) {
	tests := []struct {
		name      string
		qty       float64
		unitPrice float64
		expect    float64
	}{
		{"basic multiplication", 10, 5000, 50000},
		{"zero qty", 0, 100, 0},
		{"decimal quantity", 2.5, 1200, 3000},
		{"rounds half up", 1.5, 333, 500},
		{"rounds down", 3, 33.3, 100},
		{"negative discount", 1, -15000, -15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcAmount(tt.qty, tt.unitPrice)
			if got != tt.expect {
				t.Errorf("CalcAmount(%v, %v) = %v, want %v",
					tt.qty, tt.unitPrice, got, tt.expect)
			}
		})
	}
}

func TestCalcUnitPrice(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		qty    float64
		expect float64
		ok     bool
	}{
		{"exact", 50000, 10, 5000, true},
		{"rounded", 10000, 3, 3333, true},
		{"zero qty", 10000, 0, 0, false},
		{"fractional qty", 3000, 2.5, 1200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CalcUnitPrice(tt.amount, tt.qty)
			if ok != tt.ok || got != tt.expect {
				t.Errorf("CalcUnitPrice(%v, %v) = (%v, %v), want (%v, %v)",
					tt.amount, tt.qty, got, ok, tt.expect, tt.ok)
			}
		})
	}
}

func TestCalcQuantity(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		unitPrice float64
		expect    float64
		ok        bool
	}{
		{"exact", 50000, 5000, 10, true},
		{"fractional", 3000, 1200, 2.5, true},
		{"three places", 10000, 3000, 3.333, true},
		{"zero price", 10000, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CalcQuantity(tt.amount, tt.unitPrice, DefaultQuantityPlaces)
			if ok != tt.ok || got != tt.expect {
				t.Errorf("CalcQuantity(%v, %v) = (%v, %v), want (%v, %v)",
					tt.amount, tt.unitPrice, got, ok, tt.expect, tt.ok)
			}
		})
	}
}

func TestAmountsAgree(t *testing.T) {
	tests := []struct {
		name      string
		qty       float64
		unitPrice float64
		amount    float64
		tolerance float64
		expect    bool
	}{
		{"balanced", 3, 100, 300, 0, true},
		{"mismatch", 3, 100, 400, 0, false},
		{"within rounding", 3, 33.3, 100, 0, true},
		{"within tolerance", 3, 100, 301, 1, true},
		{"outside tolerance", 3, 100, 302, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountsAgree(tt.qty, tt.unitPrice, tt.amount, tt.tolerance)
			if got != tt.expect {
				t.Errorf("AmountsAgree(%v, %v, %v, %v) = %v, want %v",
					tt.qty, tt.unitPrice, tt.amount, tt.tolerance, got, tt.expect)
			}
		})
	}
}

func TestSumAmounts(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		expect  float64
	}{
		{"nil", nil, 0},
		{"integers", []float64{30000, 70000}, 100000},
		{"float drift", []float64{0.1, 0.2, 0.7}, 1},
		{"with discount", []float64{100000, -5000}, 95000},
		{"non-finite skipped", []float64{1000, math.NaN(), math.Inf(1), 500}, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SumAmounts(tt.amounts).InexactFloat64()
			if got != tt.expect {
				t.Errorf("SumAmounts(%v) = %v, want %v", tt.amounts, got, tt.expect)
			}
		})
	}
}
