package domain

import (
	"time"
)

// MessageRecord holds the metadata of a single scanned message. Records are
// immutable once fetched; a rescan replaces them wholesale.
type MessageRecord struct {
	ID          string    `json:"id"`
	FromName    string    `json:"from_name"`
	FromEmail   string    `json:"from_email"`
	Domain      string    `json:"domain"`
	Subject     string    `json:"subject"`
	Snippet     string    `json:"snippet"`
	Received    time.Time `json:"received"`
	Size        int64     `json:"size"`
	Unsubscribe string    `json:"unsubscribe,omitempty"`
}

// AgeBucket is a recency category for a message.
type AgeBucket string

const (
	AgeToday   AgeBucket = "today"
	AgeWeek    AgeBucket = "week"
	AgeMonth   AgeBucket = "month"
	Age3Months AgeBucket = "3months"
	Age6Months AgeBucket = "6months"
	AgeYear    AgeBucket = "year"
	AgeOlder   AgeBucket = "older"
)

// AgeBuckets lists all buckets from newest to oldest. Stable order, used for
// presentation and deterministic serialization.
var AgeBuckets = []AgeBucket{
	AgeToday, AgeWeek, AgeMonth, Age3Months, Age6Months, AgeYear, AgeOlder,
}

// ageLadder maps each bucket to its upper bound in days.
var ageLadder = []struct {
	bucket  AgeBucket
	maxDays int
}{
	{AgeToday, 1},
	{AgeWeek, 7},
	{AgeMonth, 30},
	{Age3Months, 90},
	{Age6Months, 180},
	{AgeYear, 365},
}

// BucketFor returns the age bucket of a message received at the given time,
// relative to now. A zero received time means the Date header could not be
// parsed; those messages land in the oldest bucket.
func BucketFor(received, now time.Time) AgeBucket {
	if received.IsZero() {
		return AgeOlder
	}
	days := int(now.Sub(received).Hours() / 24)
	for _, step := range ageLadder {
		if days < step.maxDays {
			return step.bucket
		}
	}
	return AgeOlder
}

// AgeDistribution counts messages per bucket.
type AgeDistribution map[AgeBucket]int

// NewAgeDistribution returns a distribution with every bucket present at zero,
// so serialized output always carries the full ladder.
func NewAgeDistribution() AgeDistribution {
	dist := make(AgeDistribution, len(AgeBuckets))
	for _, b := range AgeBuckets {
		dist[b] = 0
	}
	return dist
}

// Merge adds other's counts into d.
func (d AgeDistribution) Merge(other AgeDistribution) {
	for b, n := range other {
		d[b] += n
	}
}
