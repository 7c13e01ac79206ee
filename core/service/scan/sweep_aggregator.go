// Package scan implements the scan pipeline: the aggregation fold and the
// orchestrator that drives it.
package scan

import (
	"time"

	"sweep_server/core/domain"
)

// Aggregator folds batches of message records into per-account group state.
// Fold is called once per fetched page, so the accumulated groups are the
// only state carried across pages. The fold is associative over the message
// sequence: any order-preserving split into pages yields the same groups.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates an aggregator. now may be nil; it exists so tests can
// pin the clock that age buckets are computed against.
func NewAggregator(now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{now: now}
}

// Fold merges one batch into the result set.
//
// Tie-breaks, in order:
//   - the sender key is the lower-cased address; a record with no parseable
//     address groups under the synthetic "unknown" key instead of being
//     dropped
//   - the display name and address casing of the first message seen win
//   - the first non-empty unsubscribe link wins (enforced in SenderGroup.Add)
func (a *Aggregator) Fold(res *domain.AccountResult, batch []domain.MessageRecord) {
	now := a.now()
	for _, rec := range batch {
		key := domain.SenderKey(rec.FromEmail)

		g, ok := res.Senders[key]
		if !ok {
			email := rec.FromEmail
			if key == domain.UnknownSender {
				email = domain.UnknownSender
			}
			dom := rec.Domain
			if dom == "" {
				dom = domain.DeriveDomain(rec.FromEmail)
			}
			g = domain.NewSenderGroup(email, domain.DisplayName(rec.FromName, rec.FromEmail), dom)
			res.Senders[key] = g
		}

		g.Add(rec, now)
		res.Total++
		res.TotalSize += rec.Size
	}
}
