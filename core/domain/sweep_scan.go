package domain

import "time"

// ScanStatus is the lifecycle state of a scan job. Transitions are
// one-directional: pending -> running -> completed | failed.
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s ScanStatus) Terminal() bool {
	return s == ScanCompleted || s == ScanFailed
}

// ScanRequest describes one scan submission. An empty AccountID means all
// connected accounts. Query is passed to the provider verbatim.
type ScanRequest struct {
	AccountID   string `json:"account_id"`
	Query       string `json:"query"`
	MaxMessages int    `json:"max_messages"`
}

// ScanProgress is the polling snapshot of a job. Current counts messages
// folded so far across all accounts in the job; Total is the number
// enumerated by the listing pass and may grow while pagination runs.
type ScanProgress struct {
	JobID     string     `json:"job_id"`
	Status    ScanStatus `json:"status"`
	Account   string     `json:"account"`
	Current   int64      `json:"current"`
	Total     int64      `json:"total"`
	Error     string     `json:"error,omitempty"`
	StartedAt time.Time  `json:"started_at"`
}

// AccountResult is the scanned result set of one account. Sender and domain
// maps are never merged across accounts: message IDs and sender identity are
// only meaningful within the account they came from.
type AccountResult struct {
	AccountID string
	Email     string
	Senders   map[string]*SenderGroup
	Total     int
	TotalSize int64
}

// NewAccountResult creates an empty result set for an account.
func NewAccountResult(accountID, email string) *AccountResult {
	return &AccountResult{
		AccountID: accountID,
		Email:     email,
		Senders:   make(map[string]*SenderGroup),
	}
}

// Domains derives the domain aggregates from the current sender map.
func (r *AccountResult) Domains() map[string]*DomainGroup {
	return BuildDomainGroups(r.Senders)
}

// Recount rebuilds the account totals from the sender groups.
func (r *AccountResult) Recount() {
	r.Total = 0
	r.TotalSize = 0
	for _, s := range r.Senders {
		r.Total += s.Count
		r.TotalSize += s.TotalSize
	}
}
