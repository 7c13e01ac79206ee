package domain

import (
	"testing"
	"time"
)

func TestBucketFor(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		received time.Time
		want     AgeBucket
	}{
		{name: "a few hours ago", received: now.Add(-6 * time.Hour), want: AgeToday},
		{name: "two days ago", received: now.AddDate(0, 0, -2), want: AgeWeek},
		{name: "exactly seven days is month", received: now.AddDate(0, 0, -7), want: AgeMonth},
		{name: "three weeks ago", received: now.AddDate(0, 0, -21), want: AgeMonth},
		{name: "two months ago", received: now.AddDate(0, -2, 0), want: Age3Months},
		{name: "five months ago", received: now.AddDate(0, -5, 0), want: Age6Months},
		{name: "ten months ago", received: now.AddDate(0, -10, 0), want: AgeYear},
		{name: "two years ago", received: now.AddDate(-2, 0, 0), want: AgeOlder},
		{name: "unparseable date lands oldest", received: time.Time{}, want: AgeOlder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BucketFor(tt.received, now); got != tt.want {
				t.Errorf("BucketFor(%v) = %q, want %q", tt.received, got, tt.want)
			}
		})
	}
}

func TestNewAgeDistributionCarriesFullLadder(t *testing.T) {
	dist := NewAgeDistribution()
	if len(dist) != len(AgeBuckets) {
		t.Fatalf("distribution has %d buckets, want %d", len(dist), len(AgeBuckets))
	}
	for _, b := range AgeBuckets {
		if n, ok := dist[b]; !ok || n != 0 {
			t.Errorf("bucket %q = %d, %v; want 0, present", b, n, ok)
		}
	}
}

func TestAgeDistributionMerge(t *testing.T) {
	a := NewAgeDistribution()
	a[AgeToday] = 2
	a[AgeOlder] = 1

	b := NewAgeDistribution()
	b[AgeToday] = 3
	b[AgeWeek] = 4

	a.Merge(b)

	if a[AgeToday] != 5 {
		t.Errorf("today = %d, want 5", a[AgeToday])
	}
	if a[AgeWeek] != 4 {
		t.Errorf("week = %d, want 4", a[AgeWeek])
	}
	if a[AgeOlder] != 1 {
		t.Errorf("older = %d, want 1", a[AgeOlder])
	}
}
