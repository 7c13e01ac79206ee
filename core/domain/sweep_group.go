package domain

import "time"

// UnknownSender is the synthetic sender key for messages whose From header
// carries no parseable address. They are grouped rather than dropped so scan
// totals stay consistent with the fetched message count.
const UnknownSender = "unknown"

// SenderGroup aggregates all scanned messages from one sender address within
// one account. The key is the lower-cased address; Name keeps the casing of
// the first message seen.
type SenderGroup struct {
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Domain      string          `json:"domain"`
	Count       int             `json:"count"`
	TotalSize   int64           `json:"total_size"`
	Unsubscribe string          `json:"unsubscribe,omitempty"`
	Ages        AgeDistribution `json:"ages"`
	Messages    []MessageRecord `json:"-"`
}

// NewSenderGroup creates an empty group for the given sender.
func NewSenderGroup(email, name, domain string) *SenderGroup {
	return &SenderGroup{
		Email:  email,
		Name:   name,
		Domain: domain,
		Ages:   NewAgeDistribution(),
	}
}

// Add appends one message and updates the running aggregates. The first
// non-empty unsubscribe link wins; later ones are ignored.
func (g *SenderGroup) Add(rec MessageRecord, now time.Time) {
	g.Count++
	g.TotalSize += rec.Size
	g.Ages[BucketFor(rec.Received, now)]++
	if g.Unsubscribe == "" && rec.Unsubscribe != "" {
		g.Unsubscribe = rec.Unsubscribe
	}
	g.Messages = append(g.Messages, rec)
}

// Remove drops the messages whose IDs are in the given set and returns how
// many were removed and their total size. Ages are rebuilt from the surviving
// messages against the supplied clock so the histogram never goes stale.
func (g *SenderGroup) Remove(ids map[string]struct{}, now time.Time) (removed int, removedSize int64) {
	if len(ids) == 0 {
		return 0, 0
	}
	kept := g.Messages[:0]
	for _, m := range g.Messages {
		if _, gone := ids[m.ID]; gone {
			removed++
			removedSize += m.Size
			continue
		}
		kept = append(kept, m)
	}
	g.Messages = kept
	g.Count -= removed
	g.TotalSize -= removedSize
	g.Ages = NewAgeDistribution()
	for _, m := range g.Messages {
		g.Ages[BucketFor(m.Received, now)]++
	}
	return removed, removedSize
}

// MessageIDs returns the IDs of all member messages.
func (g *SenderGroup) MessageIDs() []string {
	ids := make([]string, len(g.Messages))
	for i, m := range g.Messages {
		ids[i] = m.ID
	}
	return ids
}

// DomainGroup is the derived aggregate over all SenderGroups sharing a
// domain within one account. It is recomputed from its senders, never
// maintained independently, so its totals always match theirs.
type DomainGroup struct {
	Domain      string          `json:"domain"`
	SenderCount int             `json:"sender_count"`
	TotalCount  int             `json:"total_count"`
	TotalSize   int64           `json:"total_size"`
	Ages        AgeDistribution `json:"ages"`
}

// BuildDomainGroups derives the per-domain aggregates from a sender map.
// Senders that became empty (count zero) are skipped.
func BuildDomainGroups(senders map[string]*SenderGroup) map[string]*DomainGroup {
	domains := make(map[string]*DomainGroup)
	for _, s := range senders {
		if s.Count == 0 {
			continue
		}
		d, ok := domains[s.Domain]
		if !ok {
			d = &DomainGroup{Domain: s.Domain, Ages: NewAgeDistribution()}
			domains[s.Domain] = d
		}
		d.SenderCount++
		d.TotalCount += s.Count
		d.TotalSize += s.TotalSize
		d.Ages.Merge(s.Ages)
	}
	return domains
}
