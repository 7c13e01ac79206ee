package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsCarryCodeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{name: "bad request", err: BadRequest("nope"), wantCode: CodeBadRequest, wantStatus: 400},
		{name: "missing field", err: MissingField("account_id"), wantCode: CodeMissingField, wantStatus: 400},
		{name: "not found", err: NotFound("sender"), wantCode: CodeNotFound, wantStatus: 404},
		{name: "conflict", err: Conflict("busy"), wantCode: CodeConflict, wantStatus: 409},
		{name: "auth expired", err: AuthExpired("a@x.com"), wantCode: CodeAuthExpired, wantStatus: 401},
		{name: "rate limited", err: RateLimited(""), wantCode: CodeRateLimited, wantStatus: 429},
		{name: "oauth failed", err: OAuthFailed(errors.New("bad code")), wantCode: CodeOAuthFailed, wantStatus: 502},
		{name: "external", err: ExternalError("mail provider", errors.New("boom")), wantCode: CodeExternalError, wantStatus: 502},
		{name: "internal", err: Internal("oops"), wantCode: CodeInternalError, wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.HTTPStatus() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.HTTPStatus(), tt.wantStatus)
			}
		})
	}
}

func TestAsAppErrorWrapsUnknownErrors(t *testing.T) {
	plain := errors.New("plain failure")
	ae := AsAppError(plain)
	if ae.Code != CodeInternalError {
		t.Errorf("code = %s, want %s", ae.Code, CodeInternalError)
	}

	wrapped := fmt.Errorf("context: %w", Conflict("busy"))
	ae = AsAppError(wrapped)
	if ae.Code != CodeConflict {
		t.Errorf("wrapped code = %s, want %s", ae.Code, CodeConflict)
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("root")
	err := InternalWithError(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}
