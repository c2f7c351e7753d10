package models

import (
	"testing"
	"time"
)

func TestComputeAvailability(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	cases := []struct {
		name      string
		quantity  int32
		threshold int32
		scheduled *time.Time
		want      Availability
	}{
		{"positive above threshold", 100, 10, nil, AvailabilityInStock},
		{"at threshold", 10, 10, nil, AvailabilityLimited},
		{"below threshold", 3, 10, nil, AvailabilityLimited},
		{"zero", 0, 10, nil, AvailabilityOutOfStock},
		{"negative backorder", -5, 10, nil, AvailabilityOutOfStock},
		{"zero with future date", 0, 10, &future, AvailabilityScheduled},
		{"zero with past date", 0, 10, &past, AvailabilityOutOfStock},
		{"positive ignores schedule", 5, 3, &future, AvailabilityInStock},
		{"zero threshold positive", 1, 0, nil, AvailabilityInStock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeAvailability(tc.quantity, tc.threshold, tc.scheduled, now)
			if got != tc.want {
				t.Fatalf("ComputeAvailability(%d, %d) = %s, want %s", tc.quantity, tc.threshold, got, tc.want)
			}
		})
	}
}
