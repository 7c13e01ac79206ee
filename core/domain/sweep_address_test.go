package domain

import "testing"

func TestSenderKey(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "lowercase passthrough", email: "news@example.com", want: "news@example.com"},
		{name: "mixed case is lowered", email: "News@Example.COM", want: "news@example.com"},
		{name: "surrounding whitespace trimmed", email: "  a@x.com ", want: "a@x.com"},
		{name: "empty maps to unknown", email: "", want: UnknownSender},
		{name: "whitespace only maps to unknown", email: "   ", want: UnknownSender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SenderKey(tt.email); got != tt.want {
				t.Errorf("SenderKey(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestDeriveDomain(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{name: "plain address", email: "news@example.com", want: "example.com"},
		{name: "domain casing lowered", email: "a@Example.COM", want: "example.com"},
		{name: "last at sign wins", email: `"weird@quoted"@real.org`, want: "real.org"},
		{name: "no at sign", email: "not-an-address", want: UnknownSender},
		{name: "trailing at sign", email: "user@", want: UnknownSender},
		{name: "empty", email: "", want: UnknownSender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveDomain(tt.email); got != tt.want {
				t.Errorf("DeriveDomain(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		fromName  string
		fromEmail string
		want      string
	}{
		{name: "header name wins", fromName: "Acme News", fromEmail: "news@acme.com", want: "Acme News"},
		{name: "falls back to local part", fromName: "", fromEmail: "news@acme.com", want: "news"},
		{name: "address without at sign", fromName: "", fromEmail: "postmaster", want: "postmaster"},
		{name: "nothing at all", fromName: "", fromEmail: "", want: UnknownSender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.fromName, tt.fromEmail); got != tt.want {
				t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.fromName, tt.fromEmail, got, tt.want)
			}
		})
	}
}
