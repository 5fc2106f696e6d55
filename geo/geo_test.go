package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters(t *testing.T) {
	testCases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64

		distanceExpected float64
		tolerance        float64
	}{
		{
			name: "Same point",
			lat1: 41.0082, lon1: 28.9784,
			lat2: 41.0082, lon2: 28.9784,
			distanceExpected: 0, tolerance: 0.001,
		}, {
			name: "One degree of latitude",
			lat1: 40.0, lon1: 29.0,
			lat2: 41.0, lon2: 29.0,
			distanceExpected: 111195, tolerance: 100,
		}, {
			name: "Across a campus quad",
			lat1: 41.00820, lon1: 28.97840,
			lat2: 41.00865, lon2: 28.97840,
			distanceExpected: 50, tolerance: 1,
		},
	}

	for _, testCase := range testCases {
		got := DistanceMeters(testCase.lat1, testCase.lon1, testCase.lat2, testCase.lon2)
		if math.Abs(got-testCase.distanceExpected) > testCase.tolerance {
			t.Errorf("%s: distance = %f, want %f ± %f",
				testCase.name, got, testCase.distanceExpected, testCase.tolerance)
		}
	}
}

func TestWithinRadius(t *testing.T) {
	// ~50m apart along a meridian.
	if !WithinRadius(41.00820, 28.97840, 41.00865, 28.97840, 60) {
		t.Error("expected points ~50m apart to be within 60m")
	}
	if WithinRadius(41.00820, 28.97840, 41.00865, 28.97840, 40) {
		t.Error("expected points ~50m apart to be outside 40m")
	}
}
