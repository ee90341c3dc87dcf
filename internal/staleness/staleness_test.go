// Package staleness provides unit tests for the staleness classifier.
package staleness

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return testNow.Add(-time.Duration(d) * 24 * time.Hour)
}

// TestPipelineCardBoundaries tests the 3-tier pipeline-card thresholds.
func TestPipelineCardBoundaries(t *testing.T) {
	policy := PipelineCard()

	cases := []struct {
		days int
		want Status
	}{
		{0, StatusFresh},
		{2, StatusFresh},
		{3, StatusStagnant},
		{5, StatusStagnant},
		{6, StatusStagnant},
		{7, StatusRotting},
		{10, StatusRotting},
		{100, StatusRotting},
	}

	for _, tc := range cases {
		got := policy.Classify(daysAgo(tc.days), testNow)
		if got.Status != tc.want {
			t.Errorf("days=%d: expected %s, got %s", tc.days, tc.want, got.Status)
		}
		if got.DaysSinceActivity != tc.days {
			t.Errorf("days=%d: expected DaysSinceActivity %d, got %d", tc.days, tc.days, got.DaysSinceActivity)
		}
	}
}

// TestDealHealthBoundaries tests the deal-health thresholds.
func TestDealHealthBoundaries(t *testing.T) {
	policy := DealHealth()

	cases := []struct {
		days int
		want Status
	}{
		{0, StatusHealthy},
		{7, StatusHealthy},
		{8, StatusStale},
		{14, StatusStale},
		{15, StatusRotting},
	}

	for _, tc := range cases {
		got := policy.Classify(daysAgo(tc.days), testNow)
		if got.Status != tc.want {
			t.Errorf("days=%d: expected %s, got %s", tc.days, tc.want, got.Status)
		}
	}
}

// TestClassifyFloorsPartialDays tests that elapsed days are floored.
func TestClassifyFloorsPartialDays(t *testing.T) {
	policy := PipelineCard()

	// 47 hours is still 1 elapsed day.
	got := policy.Classify(testNow.Add(-47*time.Hour), testNow)
	if got.DaysSinceActivity != 1 {
		t.Errorf("expected 1 day for 47h, got %d", got.DaysSinceActivity)
	}
	if got.Status != StatusFresh {
		t.Errorf("expected FRESH for 47h, got %s", got.Status)
	}

	// 72 hours crosses into the stagnant band.
	got = policy.Classify(testNow.Add(-72*time.Hour), testNow)
	if got.DaysSinceActivity != 3 {
		t.Errorf("expected 3 days for 72h, got %d", got.DaysSinceActivity)
	}
	if got.Status != StatusStagnant {
		t.Errorf("expected STAGNANT for 72h, got %s", got.Status)
	}
}

// TestClassifyClampsFutureTimestamps tests that future timestamps clamp to zero days.
func TestClassifyClampsFutureTimestamps(t *testing.T) {
	policy := DealHealth()

	got := policy.Classify(testNow.Add(6*time.Hour), testNow)
	if got.DaysSinceActivity != 0 {
		t.Errorf("expected 0 days for future timestamp, got %d", got.DaysSinceActivity)
	}
	if got.Status != StatusHealthy {
		t.Errorf("expected HEALTHY for future timestamp, got %s", got.Status)
	}
}

// TestClassifyColorHints tests that each band carries its presentation color.
func TestClassifyColorHints(t *testing.T) {
	policy := PipelineCard()

	cases := []struct {
		days int
		want string
	}{
		{1, "green"},
		{4, "yellow"},
		{9, "red"},
	}

	for _, tc := range cases {
		got := policy.Classify(daysAgo(tc.days), testNow)
		if got.Color != tc.want {
			t.Errorf("days=%d: expected color %s, got %s", tc.days, tc.want, got.Color)
		}
	}
}

// TestByName tests preset lookup by configuration name.
func TestByName(t *testing.T) {
	if p, ok := ByName(PresetPipelineCard); !ok || p.Name != PresetPipelineCard {
		t.Errorf("expected pipeline-card preset, got %+v (ok=%v)", p, ok)
	}
	if p, ok := ByName(PresetDealHealth); !ok || p.Name != PresetDealHealth {
		t.Errorf("expected deal-health preset, got %+v (ok=%v)", p, ok)
	}
	if _, ok := ByName("no-such-preset"); ok {
		t.Error("expected lookup failure for unknown preset")
	}
}
