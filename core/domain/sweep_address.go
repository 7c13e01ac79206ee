package domain

import "strings"

// SenderKey normalizes an address for grouping. Comparison is a
// case-insensitive ASCII lowering of the whole address; the original casing
// is kept separately for display. An empty address maps to UnknownSender.
func SenderKey(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return UnknownSender
	}
	return strings.ToLower(email)
}

// DeriveDomain returns the lower-cased substring after the last '@' of an
// address, or UnknownSender when there is none.
func DeriveDomain(email string) string {
	idx := strings.LastIndex(email, "@")
	if idx < 0 || idx == len(email)-1 {
		return UnknownSender
	}
	return strings.ToLower(email[idx+1:])
}

// DisplayName picks the name shown for a sender: the header display name if
// present, otherwise the local part of the address, otherwise the address.
func DisplayName(name, email string) string {
	if name != "" {
		return name
	}
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	if email == "" {
		return UnknownSender
	}
	return email
}
