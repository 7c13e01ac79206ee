package scan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sweep_server/core/domain"
	"sweep_server/core/port/in"
	"sweep_server/core/port/out"
	"sweep_server/pkg/apperr"
)

// Config holds orchestrator tuning.
type Config struct {
	FetchChunk  int // IDs per metadata fetch call (default: 50)
	MaxMessages int // per-account cap applied when a scan omits its own (default: 500)
}

// DefaultConfig returns orchestrator defaults.
func DefaultConfig() Config {
	return Config{FetchChunk: 50, MaxMessages: 500}
}

// scanJob is the in-memory record of one scan. Progress counters are atomic
// so polling reads never tear while a fold is running; status, account and
// error are guarded by mu.
type scanJob struct {
	id        string
	accounts  []string
	query     string
	max       int
	startedAt time.Time

	current atomic.Int64
	total   atomic.Int64

	mu      sync.Mutex
	status  domain.ScanStatus
	account string
	errMsg  string
}

func (j *scanJob) setStatus(s domain.ScanStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = s
}

func (j *scanJob) setAccount(accountID string) {
	j.mu.Lock()
	j.account = accountID
	j.mu.Unlock()
}

func (j *scanJob) fail(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.status = domain.ScanFailed
	j.errMsg = reason
}

func (j *scanJob) snapshot() *domain.ScanProgress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return &domain.ScanProgress{
		JobID:     j.id,
		Status:    j.status,
		Account:   j.account,
		Current:   j.current.Load(),
		Total:     j.total.Load(),
		Error:     j.errMsg,
		StartedAt: j.startedAt,
	}
}

// accountSlot holds the installed result set of one account. Its lock is the
// exclusive section between bulk-action mutation and view reads; folds run on
// a private result set and only take the lock to install it.
type accountSlot struct {
	mu  sync.RWMutex
	res *domain.AccountResult
}

// Orchestrator drives scans: one active job per account, progress polling,
// and ownership of the in-memory result sets. All state dies with the
// process; nothing is persisted.
type Orchestrator struct {
	gateway  out.MailGateway
	accounts out.TokenStore
	agg      *Aggregator
	cfg      Config
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*scanJob
	active  map[string]string // accountID -> job ID with a pending/running job
	results map[string]*accountSlot
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(gateway out.MailGateway, accounts out.TokenStore, agg *Aggregator, cfg Config, log zerolog.Logger) *Orchestrator {
	if cfg.FetchChunk <= 0 {
		cfg.FetchChunk = DefaultConfig().FetchChunk
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultConfig().MaxMessages
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		gateway:  gateway,
		accounts: accounts,
		agg:      agg,
		cfg:      cfg,
		log:      log.With().Str("component", "scan").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]*scanJob),
		active:   make(map[string]string),
		results:  make(map[string]*accountSlot),
	}
}

// Stop abandons all running scans. Their jobs fail with a cancellation
// reason; no partial result set is installed.
func (o *Orchestrator) Stop() {
	o.cancel()
}

// StartScan submits a scan for one account, or for every connected account
// when req.AccountID is empty. At most one job per account may be pending or
// running; a conflicting request is rejected, never queued.
func (o *Orchestrator) StartScan(ctx context.Context, req domain.ScanRequest) (string, error) {
	targets := []string{req.AccountID}
	if req.AccountID == "" {
		ids, err := o.accounts.ListAccounts(ctx)
		if err != nil {
			return "", apperr.InternalWithError(err)
		}
		if len(ids) == 0 {
			return "", apperr.BadRequest("no connected accounts")
		}
		targets = ids
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, acc := range targets {
		if jobID, busy := o.active[acc]; busy {
			return "", apperr.Conflict(fmt.Sprintf("account %s already has an active scan (job %s)", acc, jobID))
		}
	}

	// A new scan replaces any finished job that covered these accounts.
	o.pruneTerminalJobs(targets)

	max := req.MaxMessages
	if max <= 0 {
		max = o.cfg.MaxMessages
	}

	job := &scanJob{
		id:        uuid.NewString(),
		accounts:  targets,
		query:     req.Query,
		max:       max,
		startedAt: time.Now(),
		status:    domain.ScanPending,
	}
	o.jobs[job.id] = job
	for _, acc := range targets {
		o.active[acc] = job.id
	}

	go o.run(job)

	o.log.Info().Str("job_id", job.id).Strs("accounts", targets).Str("query", req.Query).Msg("scan started")
	return job.id, nil
}

// pruneTerminalJobs removes finished jobs that touched any of the given
// accounts. Caller holds o.mu.
func (o *Orchestrator) pruneTerminalJobs(accounts []string) {
	touched := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		touched[a] = struct{}{}
	}
	for id, job := range o.jobs {
		job.mu.Lock()
		terminal := job.status.Terminal()
		job.mu.Unlock()
		if !terminal {
			continue
		}
		for _, a := range job.accounts {
			if _, ok := touched[a]; ok {
				delete(o.jobs, id)
				break
			}
		}
	}
}

func (o *Orchestrator) run(job *scanJob) {
	defer o.release(job)

	job.setStatus(domain.ScanRunning)

	for _, acc := range job.accounts {
		job.setAccount(acc)
		if err := o.scanAccount(o.ctx, job, acc); err != nil {
			reason := failureReason(err)
			job.fail(reason)
			o.log.Error().Err(err).Str("job_id", job.id).Str("account", acc).Msg("scan failed")
			return
		}
	}

	job.setStatus(domain.ScanCompleted)
	o.log.Info().Str("job_id", job.id).
		Int64("messages", job.current.Load()).
		Msg("scan completed")
}

func (o *Orchestrator) release(job *scanJob) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, acc := range job.accounts {
		if o.active[acc] == job.id {
			delete(o.active, acc)
		}
	}
}

// scanAccount pages through the account's messages, folding each fetched
// chunk into a private result set that is installed only on success. The
// fold itself never suspends; gateway calls are the only blocking points.
func (o *Orchestrator) scanAccount(ctx context.Context, job *scanJob, accountID string) error {
	email, err := o.gateway.Profile(ctx, accountID)
	if err != nil {
		return err
	}

	res := domain.NewAccountResult(accountID, email)
	enumerated := 0
	pageToken := ""

	for {
		page, err := o.gateway.ListMessageIDs(ctx, accountID, job.query, pageToken)
		if err != nil {
			return err
		}

		ids := page.IDs
		if job.max > 0 && enumerated+len(ids) > job.max {
			ids = ids[:job.max-enumerated]
		}
		enumerated += len(ids)
		job.total.Add(int64(len(ids)))

		for start := 0; start < len(ids); start += o.cfg.FetchChunk {
			end := start + o.cfg.FetchChunk
			if end > len(ids) {
				end = len(ids)
			}
			chunk := ids[start:end]

			records, err := o.gateway.FetchMetadata(ctx, accountID, chunk)
			if err != nil {
				return err
			}
			o.agg.Fold(res, records)
			job.current.Add(int64(len(chunk)))
		}

		pageToken = page.NextPageToken
		if pageToken == "" || (job.max > 0 && enumerated >= job.max) {
			break
		}
	}

	o.install(accountID, res)
	return nil
}

func (o *Orchestrator) install(accountID string, res *domain.AccountResult) {
	slot := o.slot(accountID, true)
	slot.mu.Lock()
	slot.res = res
	slot.mu.Unlock()
}

// slot returns the account's result slot, creating it when create is set.
func (o *Orchestrator) slot(accountID string, create bool) *accountSlot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.results[accountID]
	if !ok && create {
		s = &accountSlot{}
		o.results[accountID] = s
	}
	return s
}

// Progress returns the polling snapshot for a job.
func (o *Orchestrator) Progress(jobID string) (*domain.ScanProgress, error) {
	o.mu.Lock()
	job, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return nil, apperr.NotFound("scan job")
	}
	return job.snapshot(), nil
}

// accountBusy reports whether the account has a pending or running job.
func (o *Orchestrator) accountBusy(accountID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.active[accountID]
	return busy
}

// orderedSlots returns the slots to read for a view, with their account IDs
// sorted for deterministic iteration.
func (o *Orchestrator) orderedSlots(accountID string) []*accountSlot {
	o.mu.Lock()
	defer o.mu.Unlock()

	if accountID != "" {
		if s, ok := o.results[accountID]; ok {
			return []*accountSlot{s}
		}
		return nil
	}

	ids := make([]string, 0, len(o.results))
	for id := range o.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	slots := make([]*accountSlot, len(ids))
	for i, id := range ids {
		slots[i] = o.results[id]
	}
	return slots
}

// Senders returns the senders view: count descending, email ascending on
// ties. limit 0 means no limit.
func (o *Orchestrator) Senders(accountID string, limit int) []in.SenderRow {
	rows := []in.SenderRow{}
	for _, slot := range o.orderedSlots(accountID) {
		slot.mu.RLock()
		if slot.res == nil {
			slot.mu.RUnlock()
			continue
		}
		for _, g := range slot.res.Senders {
			if g.Count == 0 {
				continue
			}
			rows = append(rows, senderRow(slot.res.AccountID, g))
		}
		slot.mu.RUnlock()
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Email < rows[j].Email
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func senderRow(accountID string, g *domain.SenderGroup) in.SenderRow {
	subjects := make([]string, 0, 5)
	for _, m := range g.Messages {
		if len(subjects) == 5 {
			break
		}
		subjects = append(subjects, m.Subject)
	}
	return in.SenderRow{
		AccountID:      accountID,
		Email:          g.Email,
		Name:           g.Name,
		Domain:         g.Domain,
		Count:          g.Count,
		TotalSize:      g.TotalSize,
		HasUnsubscribe: g.Unsubscribe != "",
		Unsubscribe:    g.Unsubscribe,
		Ages:           g.Ages,
		RecentSubjects: subjects,
	}
}

// Domains returns the domains view with the same ordering contract as
// Senders, tie-broken by domain name.
func (o *Orchestrator) Domains(accountID string, limit int) []in.DomainRow {
	rows := []in.DomainRow{}
	for _, slot := range o.orderedSlots(accountID) {
		slot.mu.RLock()
		if slot.res == nil {
			slot.mu.RUnlock()
			continue
		}
		for _, d := range slot.res.Domains() {
			rows = append(rows, in.DomainRow{
				AccountID:   slot.res.AccountID,
				Domain:      d.Domain,
				SenderCount: d.SenderCount,
				TotalCount:  d.TotalCount,
				TotalSize:   d.TotalSize,
				Ages:        d.Ages,
			})
		}
		slot.mu.RUnlock()
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalCount != rows[j].TotalCount {
			return rows[i].TotalCount > rows[j].TotalCount
		}
		return rows[i].Domain < rows[j].Domain
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// SenderDetail returns the full message list for one sender. Messages are
// copied out so later bulk-action removal cannot mutate the caller's view.
func (o *Orchestrator) SenderDetail(accountID, senderEmail string) (*in.SenderDetail, error) {
	slot := o.slot(accountID, false)
	if slot == nil {
		return nil, apperr.NotFound("account results")
	}

	slot.mu.RLock()
	defer slot.mu.RUnlock()
	if slot.res == nil {
		return nil, apperr.NotFound("account results")
	}
	g, ok := slot.res.Senders[domain.SenderKey(senderEmail)]
	if !ok || g.Count == 0 {
		return nil, apperr.NotFound("sender")
	}

	return &in.SenderDetail{
		AccountID:   accountID,
		Email:       g.Email,
		Name:        g.Name,
		Domain:      g.Domain,
		Count:       g.Count,
		TotalSize:   g.TotalSize,
		Unsubscribe: g.Unsubscribe,
		Messages:    append([]domain.MessageRecord(nil), g.Messages...),
	}, nil
}

// DropAccount forgets an account's results and finished jobs.
func (o *Orchestrator) DropAccount(accountID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.results, accountID)
	o.pruneTerminalJobs([]string{accountID})
}

// ResolveTarget resolves the scanned message IDs a bulk action applies to.
// It is rejected while the account has an active job: the fold is not safe
// for a concurrent writer, and acting on a half-built group would be worse.
func (o *Orchestrator) ResolveTarget(target domain.ActionTarget) ([]string, error) {
	if o.accountBusy(target.AccountID) {
		return nil, apperr.Conflict("account is being scanned, retry when the scan finishes")
	}

	slot := o.slot(target.AccountID, false)
	if slot == nil {
		return nil, apperr.NotFound("account results")
	}

	slot.mu.RLock()
	defer slot.mu.RUnlock()
	if slot.res == nil {
		return nil, apperr.NotFound("account results")
	}

	var ids []string
	switch {
	case target.SenderEmail != "":
		if g, ok := slot.res.Senders[domain.SenderKey(target.SenderEmail)]; ok {
			ids = g.MessageIDs()
		}
	case target.Domain != "":
		want := strings.ToLower(target.Domain)
		for _, g := range slot.res.Senders {
			if g.Domain == want {
				ids = append(ids, g.MessageIDs()...)
			}
		}
	default:
		return nil, apperr.BadRequest("target needs a sender email or a domain")
	}

	if len(ids) == 0 {
		return nil, apperr.NotFound("scanned messages for target")
	}
	return ids, nil
}

// RemoveScanned drops the given message IDs from the account's groups after
// a successful mutation, keeping counts consistent with membership. Groups
// that reach zero disappear from every view.
func (o *Orchestrator) RemoveScanned(accountID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	slot := o.slot(accountID, false)
	if slot == nil {
		return
	}

	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}

	now := time.Now()
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.res == nil {
		return
	}
	for key, g := range slot.res.Senders {
		g.Remove(gone, now)
		if g.Count == 0 {
			delete(slot.res.Senders, key)
		}
	}
	slot.res.Recount()
}

// UnsubscribeLink returns the stored unsubscribe link for a sender without
// mutating any group. An empty string means the sender never advertised one.
func (o *Orchestrator) UnsubscribeLink(accountID, senderEmail string) (string, error) {
	slot := o.slot(accountID, false)
	if slot == nil {
		return "", apperr.NotFound("account results")
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	if slot.res == nil {
		return "", apperr.NotFound("account results")
	}
	g, ok := slot.res.Senders[domain.SenderKey(senderEmail)]
	if !ok {
		return "", apperr.NotFound("sender")
	}
	return g.Unsubscribe, nil
}

// failureReason turns a gateway error into the human-readable reason stored
// on the failed job.
func failureReason(err error) string {
	switch out.GatewayCode(err) {
	case out.GatewayErrAuth:
		return "account credential expired or revoked; reconnect the account"
	case out.GatewayErrRateLimit:
		return "provider rate limit exhausted; wait and rescan"
	case out.GatewayErrTransient:
		return "network error talking to the mail provider; rescan to retry"
	default:
		return fmt.Sprintf("scan failed: %v", err)
	}
}

var _ in.ScanService = (*Orchestrator)(nil)
