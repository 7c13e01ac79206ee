package provider

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	httpLinkRe   = regexp.MustCompile(`<(https?://[^>]+)>`)
	mailtoLinkRe = regexp.MustCompile(`<(mailto:[^>]+)>`)
)

// ExtractUnsubscribe pulls an unsubscribe link out of a raw List-Unsubscribe
// header value. Pure parsing, no network.
//
// When the header advertises both mechanisms, the HTTP(S) link wins over the
// mailto one: it can be opened directly in a browser, while mailto requires
// composing a separate message. That precedence is a choice of this tool,
// not a property of the header format.
//
// Returns "" when the header carries no usable link.
func ExtractUnsubscribe(raw string) string {
	if raw == "" {
		return ""
	}
	if m := httpLinkRe.FindStringSubmatch(raw); m != nil {
		if link := validateUnsubscribeURL(m[1]); link != "" {
			return link
		}
	}
	if m := mailtoLinkRe.FindStringSubmatch(raw); m != nil {
		return validateUnsubscribeURL(m[1])
	}
	return ""
}

// validateUnsubscribeURL rejects links that should never be surfaced to the
// user: non-mail, non-web schemes, and web links pointing at loopback hosts.
func validateUnsubscribeURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}

	switch parsed.Scheme {
	case "mailto":
		return link
	case "http", "https":
	default:
		return ""
	}

	if parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	switch host {
	case "localhost", "127.0.0.1", "0.0.0.0", "::1":
		return ""
	}
	return link
}
