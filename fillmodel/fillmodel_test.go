package fillmodel

import (
	"context"
	"testing"

	"ekokampus/models"

	"github.com/shopspring/decimal"
)

func TestDecayCorrection(t *testing.T) {
	testCases := []struct {
		fill   string
		factor string
	}{
		{"0.00", "1"},
		{"0.74", "1"},
		{"0.75", "0.85"},
		{"0.89", "0.85"},
		{"0.90", "0.6"},
		{"1.00", "0.6"},
	}

	for _, testCase := range testCases {
		got := DecayCorrection(decimal.RequireFromString(testCase.fill))
		if !got.Equal(decimal.RequireFromString(testCase.factor)) {
			t.Errorf("DecayCorrection(%s) = %s, want %s", testCase.fill, got, testCase.factor)
		}
	}
}

func TestComputeDelta(t *testing.T) {
	m := New(nil, nil, nil)
	ctx := context.Background()

	testCases := []struct {
		name     string
		category models.WasteCategory
		fill     string

		deltaExpected string
	}{
		{
			name:          "Organic into a warn-level bin",
			category:      models.CategoryOrganic,
			fill:          "0.80",
			deltaExpected: "0.051",
		}, {
			name:          "Paper into an empty bin",
			category:      models.CategoryPaper,
			fill:          "0.00",
			deltaExpected: "0.04",
		}, {
			name:          "Electronic into a critical bin",
			category:      models.CategoryElectronic,
			fill:          "0.95",
			deltaExpected: "0.048",
		}, {
			name:          "Capped at remaining capacity",
			category:      models.CategoryElectronic,
			fill:          "0.99",
			deltaExpected: "0.01",
		}, {
			name:          "Full bin takes nothing",
			category:      models.CategoryGeneral,
			fill:          "1.00",
			deltaExpected: "0",
		},
	}

	for _, testCase := range testCases {
		got := m.ComputeDelta(ctx, testCase.category, decimal.RequireFromString(testCase.fill))
		if !got.Equal(decimal.RequireFromString(testCase.deltaExpected)) {
			t.Errorf("%s: delta = %s, want %s", testCase.name, got, testCase.deltaExpected)
		}
	}
}

func TestComputeDeltaNeverOverfills(t *testing.T) {
	m := New(nil, nil, nil)
	ctx := context.Background()

	for fill := decimal.Zero; fill.LessThanOrEqual(decimal.New(1, 0)); fill = fill.Add(decimal.RequireFromString("0.01")) {
		for cat := range baseVolumes {
			delta := m.ComputeDelta(ctx, cat, fill)
			if delta.IsNegative() {
				t.Fatalf("negative delta %s for %s at fill %s", delta, cat, fill)
			}
			if fill.Add(delta).GreaterThan(decimal.New(1, 0)) {
				t.Fatalf("fill %s + delta %s exceeds capacity for %s", fill, delta, cat)
			}
		}
	}
}
