package action

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"sweep_server/core/domain"
	"sweep_server/core/port/out"
	"sweep_server/pkg/apperr"
)

// fakeStore resolves every target to its canned IDs and records removals.
type fakeStore struct {
	ids        []string
	resolveErr error
	link       string
	linkErr    error

	removedAccount string
	removedIDs     []string
}

func (f *fakeStore) ResolveTarget(domain.ActionTarget) ([]string, error) {
	return f.ids, f.resolveErr
}

func (f *fakeStore) RemoveScanned(accountID string, ids []string) {
	f.removedAccount = accountID
	f.removedIDs = ids
}

func (f *fakeStore) UnsubscribeLink(string, string) (string, error) {
	return f.link, f.linkErr
}

// fakeModifier scripts BatchModify and CreateFilter outcomes.
type fakeModifier struct {
	failIDs   []string
	modifyErr error

	filterID   string
	filterErr  error
	gotChange  out.LabelChange
	gotIDs     []string
	gotFilter  out.FilterCriteria
	gotFAction out.FilterAction
}

func (f *fakeModifier) Profile(context.Context, string) (string, error) { return "", nil }

func (f *fakeModifier) ListMessageIDs(context.Context, string, string, string) (*out.ListPage, error) {
	return nil, nil
}

func (f *fakeModifier) FetchMetadata(context.Context, string, []string) ([]domain.MessageRecord, error) {
	return nil, nil
}

func (f *fakeModifier) BatchModify(_ context.Context, _ string, ids []string, change out.LabelChange) (*out.BatchResult, error) {
	if f.modifyErr != nil {
		return nil, f.modifyErr
	}
	f.gotIDs = ids
	f.gotChange = change

	failed := make(map[string]bool, len(f.failIDs))
	for _, id := range f.failIDs {
		failed[id] = true
	}
	res := &out.BatchResult{}
	for _, id := range ids {
		if failed[id] {
			res.Failed = append(res.Failed, id)
		} else {
			res.Succeeded = append(res.Succeeded, id)
		}
	}
	return res, nil
}

func (f *fakeModifier) CreateFilter(_ context.Context, _ string, criteria out.FilterCriteria, action out.FilterAction) (string, error) {
	if f.filterErr != nil {
		return "", f.filterErr
	}
	f.gotFilter = criteria
	f.gotFAction = action
	return f.filterID, nil
}

func ids(n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = string(rune('a' + i))
	}
	return s
}

func TestApplyFullSuccess(t *testing.T) {
	store := &fakeStore{ids: ids(4)}
	gw := &fakeModifier{}
	c := NewCoordinator(gw, store, zerolog.Nop())

	result, err := c.Apply(context.Background(), domain.ActionTrash, domain.ActionTarget{AccountID: "acc", SenderEmail: "a@x.com"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Succeeded != 4 || result.Failed != 0 {
		t.Errorf("result = %d/%d, want 4/0", result.Succeeded, result.Failed)
	}
	if store.removedAccount != "acc" || len(store.removedIDs) != 4 {
		t.Errorf("removed %d from %q, want all 4 from acc", len(store.removedIDs), store.removedAccount)
	}
	if len(gw.gotChange.Add) != 1 || gw.gotChange.Add[0] != "TRASH" {
		t.Errorf("label change = %+v, want TRASH added", gw.gotChange)
	}
}

func TestApplyPartialFailure(t *testing.T) {
	all := ids(10)
	store := &fakeStore{ids: all}
	gw := &fakeModifier{failIDs: all[:3]}
	c := NewCoordinator(gw, store, zerolog.Nop())

	result, err := c.Apply(context.Background(), domain.ActionSpam, domain.ActionTarget{AccountID: "acc", SenderEmail: "a@x.com"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Succeeded != 7 || result.Failed != 3 {
		t.Errorf("result = %d/%d, want 7/3", result.Succeeded, result.Failed)
	}
	if len(result.FailedIDs) != 3 {
		t.Errorf("failed ids = %v, want the 3 rejected", result.FailedIDs)
	}
	// Only acknowledged IDs leave the groups; the failed remainder stays
	// retryable.
	if len(store.removedIDs) != 7 {
		t.Errorf("removed %d ids, want 7", len(store.removedIDs))
	}
	if gw.gotChange.Add[0] != "SPAM" {
		t.Errorf("label change = %+v, want SPAM added", gw.gotChange)
	}
}

func TestApplyInvalidAction(t *testing.T) {
	c := NewCoordinator(&fakeModifier{}, &fakeStore{}, zerolog.Nop())
	if _, err := c.Apply(context.Background(), "archive", domain.ActionTarget{AccountID: "acc"}); err == nil {
		t.Error("unknown action accepted")
	}
}

func TestApplyResolveConflictPassesThrough(t *testing.T) {
	store := &fakeStore{resolveErr: apperr.Conflict("account is being scanned")}
	c := NewCoordinator(&fakeModifier{}, store, zerolog.Nop())

	_, err := c.Apply(context.Background(), domain.ActionTrash, domain.ActionTarget{AccountID: "acc", SenderEmail: "a@x.com"})
	if ae := apperr.AsAppError(err); ae.Code != apperr.CodeConflict {
		t.Errorf("code = %s, want %s", ae.Code, apperr.CodeConflict)
	}
}

func TestApplyGatewayAuthError(t *testing.T) {
	store := &fakeStore{ids: ids(2)}
	gw := &fakeModifier{modifyErr: out.NewGatewayError(out.GatewayErrAuth, "expired", nil, false)}
	c := NewCoordinator(gw, store, zerolog.Nop())

	_, err := c.Apply(context.Background(), domain.ActionTrash, domain.ActionTarget{AccountID: "acc", SenderEmail: "a@x.com"})
	if ae := apperr.AsAppError(err); ae.Code != apperr.CodeAuthExpired {
		t.Errorf("code = %s, want %s", ae.Code, apperr.CodeAuthExpired)
	}
	if store.removedIDs != nil {
		t.Error("groups mutated on gateway failure")
	}
}

func TestUnsubscribeIsReadOnly(t *testing.T) {
	store := &fakeStore{link: "https://x.com/unsub"}
	c := NewCoordinator(&fakeModifier{}, store, zerolog.Nop())

	link, err := c.Unsubscribe("acc", "a@x.com")
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if link != "https://x.com/unsub" {
		t.Errorf("link = %q", link)
	}
	if store.removedIDs != nil {
		t.Error("unsubscribe mutated the result set")
	}
}

func TestCreateFilter(t *testing.T) {
	tests := []struct {
		name       string
		target     domain.ActionTarget
		action     domain.BulkAction
		wantFrom   string
		wantLabels []string
	}{
		{
			name:       "sender filter to trash",
			target:     domain.ActionTarget{AccountID: "acc", SenderEmail: "a@x.com"},
			action:     domain.ActionTrash,
			wantFrom:   "a@x.com",
			wantLabels: []string{"TRASH"},
		},
		{
			name:       "domain filter to spam",
			target:     domain.ActionTarget{AccountID: "acc", Domain: "x.com"},
			action:     domain.ActionSpam,
			wantFrom:   "x.com",
			wantLabels: []string{"SPAM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeModifier{filterID: "f-1"}
			c := NewCoordinator(gw, &fakeStore{}, zerolog.Nop())

			result, err := c.CreateFilter(context.Background(), tt.target, tt.action)
			if err != nil {
				t.Fatalf("create filter: %v", err)
			}
			if result.FilterID != "f-1" || result.AlreadyExisted {
				t.Errorf("result = %+v, want fresh f-1", result)
			}
			if gw.gotFilter.From != tt.wantFrom {
				t.Errorf("criteria from = %q, want %q", gw.gotFilter.From, tt.wantFrom)
			}
			if gw.gotFAction.AddLabels[0] != tt.wantLabels[0] {
				t.Errorf("labels = %v, want %v", gw.gotFAction.AddLabels, tt.wantLabels)
			}
		})
	}
}

func TestCreateFilterAlreadyExists(t *testing.T) {
	gw := &fakeModifier{filterErr: out.NewGatewayError(out.GatewayErrAlreadyExists, "filter already exists", nil, false)}
	c := NewCoordinator(gw, &fakeStore{}, zerolog.Nop())

	result, err := c.CreateFilter(context.Background(), domain.ActionTarget{AccountID: "acc", SenderEmail: "a@x.com"}, domain.ActionTrash)
	if err != nil {
		t.Fatalf("duplicate filter should not error: %v", err)
	}
	if !result.AlreadyExisted || result.FilterID != "" {
		t.Errorf("result = %+v, want already existed", result)
	}
}

func TestCreateFilterNeedsTarget(t *testing.T) {
	c := NewCoordinator(&fakeModifier{}, &fakeStore{}, zerolog.Nop())
	if _, err := c.CreateFilter(context.Background(), domain.ActionTarget{AccountID: "acc"}, domain.ActionTrash); err == nil {
		t.Error("empty target accepted")
	}
}
