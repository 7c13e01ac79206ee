// Package provider implements the Gmail gateway adapter.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"sweep_server/core/domain"
	"sweep_server/core/port/out"
	"sweep_server/pkg/ratelimit"
)

// Gmail quota units per call type (250 units per user per second).
const (
	unitsList        = 5
	unitsGet         = 5
	unitsBatchModify = 50
	unitsFilter      = 5
)

// metadataHeaders are the only headers requested per message. The body is
// never fetched.
var metadataHeaders = []string{"From", "Subject", "Date", "List-Unsubscribe"}

// Config holds Gmail adapter configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	PageSize        int64         // message IDs per listing page (default: 100)
	ModifyBatchSize int           // IDs per batchModify call, provider max 1000 (default: 1000)
	FetchWorkers    int           // concurrent metadata fetches (default: 5)
	MaxRetries      int           // attempts allowed for retryable errors (default: 3)
	RetryBaseDelay  time.Duration // first backoff step, doubled per attempt (default: 500ms)
}

func (c *Config) withDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.ModifyBatchSize <= 0 || c.ModifyBatchSize > 1000 {
		c.ModifyBatchSize = 1000
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
}

// GmailAdapter implements out.MailGateway and out.OAuthExchanger on the
// Gmail API. It owns token refresh, quota pacing, rate-limit backoff and a
// circuit breaker; callers only see the gateway error taxonomy.
type GmailAdapter struct {
	cfg     Config
	oauth   *oauth2.Config
	tokens  out.TokenStore
	limiter *ratelimit.Limiter
	cb      *gobreaker.CircuitBreaker
	log     zerolog.Logger

	mu       sync.Mutex
	services map[string]*gmail.Service
}

// NewGmailAdapter creates a Gmail adapter.
func NewGmailAdapter(cfg Config, tokens out.TokenStore, limiter *ratelimit.Limiter, log zerolog.Logger) *GmailAdapter {
	cfg.withDefaults()

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			gmail.GmailModifyScope,
			gmail.GmailSettingsBasicScope,
		},
		Endpoint: google.Endpoint,
	}

	adapterLog := log.With().Str("component", "gmail").Logger()
	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			adapterLog.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &GmailAdapter{
		cfg:      cfg,
		oauth:    oauthCfg,
		tokens:   tokens,
		limiter:  limiter,
		cb:       gobreaker.NewCircuitBreaker(cbSettings),
		log:      adapterLog,
		services: make(map[string]*gmail.Service),
	}
}

// =============================================================================
// OAuth
// =============================================================================

// AuthURL returns the consent URL. Offline access is required so a refresh
// token is issued.
func (a *GmailAdapter) AuthURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token.
func (a *GmailAdapter) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, a.wrapError(err, "failed to exchange authorization code")
	}
	return token, nil
}

// ProfileForToken resolves the mailbox address behind a fresh token.
func (a *GmailAdapter) ProfileForToken(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(a.oauth.Client(ctx, token)))
	if err != nil {
		return "", a.wrapError(err, "failed to create gmail service")
	}
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", a.wrapError(err, "failed to get profile")
	}
	return profile.EmailAddress, nil
}

// =============================================================================
// Service plumbing
// =============================================================================

// persistingTokenSource writes refreshed tokens back to the store so the
// next process start does not need a new consent.
type persistingTokenSource struct {
	src       oauth2.TokenSource
	store     out.TokenStore
	accountID string

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	changed := token.AccessToken != p.last
	p.last = token.AccessToken
	p.mu.Unlock()
	if changed {
		// Best effort: a failed write means one extra refresh later.
		_ = p.store.Put(context.Background(), p.accountID, token)
	}
	return token, nil
}

func (a *GmailAdapter) getService(ctx context.Context, accountID string) (*gmail.Service, error) {
	a.mu.Lock()
	if svc, ok := a.services[accountID]; ok {
		a.mu.Unlock()
		return svc, nil
	}
	a.mu.Unlock()

	token, err := a.tokens.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, out.ErrTokenNotFound) {
			return nil, out.NewGatewayError(out.GatewayErrAuth, "no credential stored for account "+accountID, err, false)
		}
		return nil, out.NewGatewayError(out.GatewayErrFatal, "failed to load credential", err, false)
	}

	src := &persistingTokenSource{
		src:       a.oauth.TokenSource(context.Background(), token),
		store:     a.tokens,
		accountID: accountID,
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(nil, src)))
	if err != nil {
		return nil, out.NewGatewayError(out.GatewayErrFatal, "failed to create gmail service", err, false)
	}

	a.mu.Lock()
	a.services[accountID] = svc
	a.mu.Unlock()
	return svc, nil
}

// invalidate drops the cached service so the next call rebuilds it from the
// stored refresh token. Used for the single refresh-then-retry on auth
// failures.
func (a *GmailAdapter) invalidate(accountID string) {
	a.mu.Lock()
	delete(a.services, accountID)
	a.mu.Unlock()
}

// execute runs one provider call with quota pacing, the circuit breaker and
// the retry policy: auth errors get exactly one refresh-then-retry; rate
// limit and transient errors get bounded exponential backoff; fatal errors
// never retry.
func (a *GmailAdapter) execute(ctx context.Context, accountID, op string, units int, fn func(svc *gmail.Service) error) error {
	if err := a.limiter.Wait(ctx, units); err != nil {
		return out.NewGatewayError(out.GatewayErrTransient, "cancelled while waiting for quota", err, true)
	}

	authRetried := false
	delay := a.cfg.RetryBaseDelay

	for attempt := 0; ; attempt++ {
		svc, err := a.getService(ctx, accountID)
		if err != nil {
			return err
		}

		_, err = a.cb.Execute(func() (interface{}, error) {
			return nil, fn(svc)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return out.NewGatewayError(out.GatewayErrTransient, "provider circuit open", err, true)
		}

		werr := a.wrapError(err, op)
		var ge *out.GatewayError
		errors.As(werr, &ge)

		switch {
		case ge.Code == out.GatewayErrAuth && !authRetried:
			authRetried = true
			a.invalidate(accountID)
			a.log.Warn().Str("account", accountID).Str("op", op).Msg("auth failure, retrying once after refresh")
			continue
		case ge.Retryable && attempt < a.cfg.MaxRetries:
			a.log.Warn().Str("account", accountID).Str("op", op).
				Int("attempt", attempt+1).Dur("backoff", delay).
				Str("code", string(ge.Code)).Msg("retrying provider call")
			if err := sleepCtx(ctx, delay); err != nil {
				return out.NewGatewayError(out.GatewayErrTransient, "cancelled during backoff", err, true)
			}
			delay *= 2
			continue
		default:
			return werr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// =============================================================================
// MailGateway
// =============================================================================

// Profile returns the mailbox address for a connected account.
func (a *GmailAdapter) Profile(ctx context.Context, accountID string) (string, error) {
	var email string
	err := a.execute(ctx, accountID, "get profile", unitsGet, func(svc *gmail.Service) error {
		profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
		if err != nil {
			return err
		}
		email = profile.EmailAddress
		return nil
	})
	return email, err
}

// ListMessageIDs returns one page of message IDs matching the query. The
// query string is Gmail search syntax and passes through verbatim.
func (a *GmailAdapter) ListMessageIDs(ctx context.Context, accountID, query, pageToken string) (*out.ListPage, error) {
	var page *out.ListPage
	err := a.execute(ctx, accountID, "list messages", unitsList, func(svc *gmail.Service) error {
		req := svc.Users.Messages.List("me").MaxResults(a.cfg.PageSize)
		if query != "" {
			req = req.Q(query)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		resp, err := req.Context(ctx).Do()
		if err != nil {
			return err
		}
		ids := make([]string, len(resp.Messages))
		for i, m := range resp.Messages {
			ids[i] = m.Id
		}
		page = &out.ListPage{
			IDs:           ids,
			NextPageToken: resp.NextPageToken,
			Estimate:      resp.ResultSizeEstimate,
		}
		return nil
	})
	return page, err
}

// FetchMetadata fetches headers, snippet and size for the given IDs with
// bounded concurrency. IDs whose fetch failed with a non-fatal error are
// absent from the result; auth, exhausted-rate-limit and fatal errors abort
// the whole call.
func (a *GmailAdapter) FetchMetadata(ctx context.Context, accountID string, ids []string) ([]domain.MessageRecord, error) {
	type result struct {
		index int
		rec   domain.MessageRecord
		err   error
	}

	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, a.cfg.FetchWorkers)

	for i, id := range ids {
		go func(idx int, msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			var rec domain.MessageRecord
			err := a.execute(ctx, accountID, "get message metadata", unitsGet, func(svc *gmail.Service) error {
				msg, err := svc.Users.Messages.Get("me", msgID).
					Format("metadata").
					MetadataHeaders(metadataHeaders...).
					Context(ctx).
					Do()
				if err != nil {
					return err
				}
				rec = parseRecord(msg)
				return nil
			})
			results <- result{index: idx, rec: rec, err: err}
		}(i, id)
	}

	records := make([]domain.MessageRecord, len(ids))
	ok := make([]bool, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			switch out.GatewayCode(r.err) {
			case out.GatewayErrNotFound, out.GatewayErrTransient:
				// Skip: the message disappeared or stayed unreachable
				// after retries. The scan reconciles counts.
				a.log.Warn().Err(r.err).Str("account", accountID).Msg("skipping unfetchable message")
				continue
			default:
				return nil, r.err
			}
		}
		records[r.index] = r.rec
		ok[r.index] = true
	}

	fetched := make([]domain.MessageRecord, 0, len(ids))
	for i, rec := range records {
		if ok[i] {
			fetched = append(fetched, rec)
		}
	}
	return fetched, nil
}

// BatchModify applies a label change in provider-side batches. Gmail's
// batchModify is all-or-nothing per call, so per-ID reporting is per-chunk:
// a failed chunk fails exactly its own IDs and the remaining chunks still
// run.
func (a *GmailAdapter) BatchModify(ctx context.Context, accountID string, ids []string, change out.LabelChange) (*out.BatchResult, error) {
	res := &out.BatchResult{}

	for start := 0; start < len(ids); start += a.cfg.ModifyBatchSize {
		end := start + a.cfg.ModifyBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		err := a.execute(ctx, accountID, "batch modify", unitsBatchModify, func(svc *gmail.Service) error {
			req := &gmail.BatchModifyMessagesRequest{
				Ids:            chunk,
				AddLabelIds:    change.Add,
				RemoveLabelIds: change.Remove,
			}
			return svc.Users.Messages.BatchModify("me", req).Context(ctx).Do()
		})
		if err != nil {
			if out.GatewayCode(err) == out.GatewayErrAuth {
				// Nothing later will succeed either.
				return nil, err
			}
			a.log.Warn().Err(err).Str("account", accountID).Int("chunk", len(chunk)).Msg("batch modify chunk failed")
			res.Failed = append(res.Failed, chunk...)
			continue
		}
		res.Succeeded = append(res.Succeeded, chunk...)
	}

	return res, nil
}

// CreateFilter creates a persistent server-side rule. Gmail reports a
// duplicate criterion as HTTP 400 "Filter already exists"; that surfaces as
// GatewayErrAlreadyExists so callers can treat it as success.
func (a *GmailAdapter) CreateFilter(ctx context.Context, accountID string, criteria out.FilterCriteria, action out.FilterAction) (string, error) {
	var filterID string
	err := a.execute(ctx, accountID, "create filter", unitsFilter, func(svc *gmail.Service) error {
		filter := &gmail.Filter{
			Criteria: &gmail.FilterCriteria{From: criteria.From},
			Action: &gmail.FilterAction{
				AddLabelIds:    action.AddLabels,
				RemoveLabelIds: action.RemoveLabels,
			},
		}
		created, err := svc.Users.Settings.Filters.Create("me", filter).Context(ctx).Do()
		if err != nil {
			return err
		}
		filterID = created.Id
		return nil
	})
	return filterID, err
}

// =============================================================================
// Parsing
// =============================================================================

// parseRecord coerces a Gmail metadata response into the fixed MessageRecord
// shape at the boundary, so nothing loosely typed travels further in.
func parseRecord(msg *gmail.Message) domain.MessageRecord {
	rec := domain.MessageRecord{
		ID:      msg.Id,
		Snippet: msg.Snippet,
		Size:    msg.SizeEstimate,
	}
	if msg.InternalDate > 0 {
		rec.Received = time.Unix(msg.InternalDate/1000, 0)
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				rec.FromName, rec.FromEmail = parseFrom(h.Value)
			case "subject":
				rec.Subject = h.Value
			case "list-unsubscribe":
				rec.Unsubscribe = ExtractUnsubscribe(h.Value)
			}
		}
	}

	rec.Domain = domain.DeriveDomain(rec.FromEmail)
	return rec
}

// parseFrom splits a From header into display name and address. A header
// net/mail cannot parse yields an empty address, which groups the message
// under the synthetic unknown sender downstream.
func parseFrom(value string) (name, email string) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		// Some senders emit bare addresses or malformed names; keep a
		// bare address when that is all the header holds.
		trimmed := strings.TrimSpace(value)
		if strings.Contains(trimmed, "@") && !strings.ContainsAny(trimmed, " <>") {
			return "", trimmed
		}
		return "", ""
	}
	return addr.Name, addr.Address
}

// wrapError classifies a Gmail API failure into the gateway taxonomy.
func (a *GmailAdapter) wrapError(err error, defaultMsg string) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400:
			if strings.Contains(apiErr.Message, "already exists") {
				return out.NewGatewayError(out.GatewayErrAlreadyExists, "filter already exists", err, false)
			}
			return out.NewGatewayError(out.GatewayErrFatal, defaultMsg, err, false)
		case 401:
			return out.NewGatewayError(out.GatewayErrAuth, "credential expired or revoked", err, false)
		case 403:
			if strings.Contains(apiErr.Message, "Rate Limit") || strings.Contains(apiErr.Message, "rateLimitExceeded") {
				return out.NewGatewayError(out.GatewayErrRateLimit, "rate limit exceeded", err, true)
			}
			return out.NewGatewayError(out.GatewayErrAuth, "access denied", err, false)
		case 404:
			return out.NewGatewayError(out.GatewayErrNotFound, "not found", err, false)
		case 429:
			return out.NewGatewayError(out.GatewayErrRateLimit, "too many requests", err, true)
		case 500, 502, 503:
			return out.NewGatewayError(out.GatewayErrTransient, "provider server error", err, true)
		default:
			return out.NewGatewayError(out.GatewayErrFatal, defaultMsg, err, false)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return out.NewGatewayError(out.GatewayErrTransient, "call cancelled", err, false)
	}

	// Anything else at this level is network trouble.
	return out.NewGatewayError(out.GatewayErrTransient, fmt.Sprintf("%s: network error", defaultMsg), err, true)
}

// Interface compliance
var (
	_ out.MailGateway    = (*GmailAdapter)(nil)
	_ out.OAuthExchanger = (*GmailAdapter)(nil)
)
