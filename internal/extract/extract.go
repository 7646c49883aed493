// Package extract holds the pattern extractors for each forwarding
// category. All functions are pure: they take message text and return
// the category payloads found in it, never an error. No match means an
// empty result.
package extract

import (
	"regexp"
	"strings"
)

var (
	// Base58 token of Solana address length. The alphabet excludes
	// 0, O, I and l. Shape-only: no checksum validation, so other
	// base58 payloads of the same length will match too.
	solanaRe = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

	// 0x followed by exactly 40 hex characters.
	ethereumRe = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)

	// $ followed by 2-6 letters. Matched case-insensitively; payloads
	// are normalized to uppercase so $eth and $ETH share one identity.
	cashtagRe = regexp.MustCompile(`\$[A-Za-z]{2,6}\b`)
)

// SolanaAddress returns the first base58 token of Solana address shape
// in text, if any.
func SolanaAddress(text string) (string, bool) {
	m := solanaRe.FindString(text)
	return m, m != ""
}

// EthereumAddress returns the first 0x-prefixed 40-hex-char token in
// text, if any. Case is preserved as found.
func EthereumAddress(text string) (string, bool) {
	m := ethereumRe.FindString(text)
	return m, m != ""
}

// Cashtags returns every cashtag token in text, uppercased, in order of
// appearance. Unlike the address extractors it does not stop at the
// first match.
func Cashtags(text string) []string {
	ms := cashtagRe.FindAllString(text, -1)
	if len(ms) == 0 {
		return nil
	}
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, strings.ToUpper(m))
	}
	return out
}

// MatchesKeywords reports whether any keyword occurs in text as a
// case-insensitive substring.
//
// An empty keyword set matches every non-empty text. This mirrors the
// "leave keywords blank to forward every message" operator option; it
// is deliberate, not a fallthrough.
func MatchesKeywords(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
