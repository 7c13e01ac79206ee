// Package in defines the service interfaces consumed by inbound adapters.
package in

import (
	"context"

	"sweep_server/core/domain"
)

// SenderRow is one row of the senders view, attributed to its account.
type SenderRow struct {
	AccountID      string                 `json:"account_id"`
	Email          string                 `json:"email"`
	Name           string                 `json:"name"`
	Domain         string                 `json:"domain"`
	Count          int                    `json:"count"`
	TotalSize      int64                  `json:"total_size"`
	HasUnsubscribe bool                   `json:"has_unsubscribe"`
	Unsubscribe    string                 `json:"unsubscribe,omitempty"`
	Ages           domain.AgeDistribution `json:"ages"`
	RecentSubjects []string               `json:"recent_subjects,omitempty"`
}

// DomainRow is one row of the domains view.
type DomainRow struct {
	AccountID   string                 `json:"account_id"`
	Domain      string                 `json:"domain"`
	SenderCount int                    `json:"sender_count"`
	TotalCount  int                    `json:"total_count"`
	TotalSize   int64                  `json:"total_size"`
	Ages        domain.AgeDistribution `json:"ages"`
}

// SenderDetail is the full view of one sender group, messages included.
type SenderDetail struct {
	AccountID   string                 `json:"account_id"`
	Email       string                 `json:"email"`
	Name        string                 `json:"name"`
	Domain      string                 `json:"domain"`
	Count       int                    `json:"count"`
	TotalSize   int64                  `json:"total_size"`
	Unsubscribe string                 `json:"unsubscribe,omitempty"`
	Messages    []domain.MessageRecord `json:"messages"`
}

// ScanService starts scans, reports their progress and serves the scanned
// result set.
type ScanService interface {
	// StartScan submits a scan. It fails with a conflict error when any
	// targeted account already has an active job.
	StartScan(ctx context.Context, req domain.ScanRequest) (string, error)

	// Progress returns the polling snapshot for a job.
	Progress(jobID string) (*domain.ScanProgress, error)

	// Senders returns the senders view, count descending then email
	// ascending. accountID empty means all accounts; limit 0 means all.
	Senders(accountID string, limit int) []SenderRow

	// Domains returns the domains view with the same ordering contract.
	Domains(accountID string, limit int) []DomainRow

	// SenderDetail returns the full message list for one sender.
	SenderDetail(accountID, senderEmail string) (*SenderDetail, error)

	// DropAccount forgets an account's cached results and job history.
	DropAccount(accountID string)
}

// ActionService applies bulk mutations against scanned targets.
type ActionService interface {
	// Apply trashes or spams every scanned message of the target and
	// reports per-ID success. Rejected while the account is being scanned.
	Apply(ctx context.Context, action domain.BulkAction, target domain.ActionTarget) (*domain.ActionResult, error)

	// Unsubscribe returns the stored unsubscribe link for a sender
	// without mutating anything.
	Unsubscribe(accountID, senderEmail string) (string, error)

	// CreateFilter creates a server-side filter for the target. The
	// result set is untouched; filters only affect future mail.
	CreateFilter(ctx context.Context, target domain.ActionTarget, action domain.BulkAction) (*FilterResult, error)
}

// FilterResult reports a filter creation. A filter the provider already had
// is not an error; AlreadyExisted is set and FilterID stays empty.
type FilterResult struct {
	FilterID       string `json:"filter_id,omitempty"`
	AlreadyExisted bool   `json:"already_existed"`
}

// AccountService manages the OAuth lifecycle of connected accounts.
type AccountService interface {
	List(ctx context.Context) ([]domain.Account, error)

	// AuthURL returns the provider consent URL carrying the state nonce.
	AuthURL(state string) string

	// Connect exchanges an authorization code, stores the credential and
	// returns the connected account.
	Connect(ctx context.Context, code string) (*domain.Account, error)

	// Disconnect deletes the stored credential and drops cached results.
	Disconnect(ctx context.Context, accountID string) error
}

// ExportService renders the current in-memory result set as CSV. It never
// triggers a scan.
type ExportService interface {
	ExportCSV(view, accountID string) ([]byte, error)
}
