// Package rwsdigest implements the client side of HTTP Digest access authentication (RFC 2617
// and RFC 7616) as used by robot web services, plus the helpers a server needs to verify the
// produced credentials. Parsing and hashing are delegated to github.com/icholy/digest.
package rwsdigest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/icholy/digest"
)

// A Digest challenge issued by a server in a WWW-Authenticate header.
type Challenge = digest.Challenge

// # Description
//
// Parse the Digest challenge carried by a WWW-Authenticate header value. The scheme token is
// matched case-insensitively and can be preceded by other challenges (Basic, ...).
//
// # Returns
//
// The parsed challenge or a ChallengeError if the header does not carry a valid Digest challenge.
func ParseChallenge(header string) (Challenge, error) {
	value, found := digestValue(header)
	if !found {
		return Challenge{}, ChallengeError{Header: header, Err: ErrNoChallenge}
	}
	challenge, err := digest.ParseChallenge(value)
	if err != nil {
		return Challenge{}, ChallengeError{Header: header, Err: err}
	}
	if challenge.Nonce == "" {
		return Challenge{}, ChallengeError{Header: header, Err: errors.New("challenge has no nonce")}
	}
	// qop options are matched as lowercase tokens
	options := challenge.QOP
	challenge.QOP = nil
	for _, option := range options {
		if option = strings.ToLower(strings.TrimSpace(option)); option != "" {
			challenge.QOP = append(challenge.QOP, option)
		}
	}
	return *challenge, nil
}

// # Description
//
// Find and parse the first Digest challenge among the WWW-Authenticate values of the provided
// response headers. Unlike digest.FindChallenge, challenges using an unsupported algorithm or
// qop are returned so that the caller can report them.
func FindChallenge(header http.Header) (Challenge, error) {
	var lastErr error = ChallengeError{Err: ErrNoChallenge}
	for _, value := range header.Values("WWW-Authenticate") {
		challenge, err := ParseChallenge(value)
		if err == nil {
			return challenge, nil
		}
		lastErr = err
	}
	return Challenge{}, lastErr
}

// Return the Digest part of a header value, with the canonical scheme prefix.
func digestValue(header string) (string, bool) {
	start := indexScheme(header)
	if start < 0 {
		return "", false
	}
	return digest.Prefix + strings.TrimSpace(header[start+len(digest.Prefix)-1:]), true
}

// Return the index of the Digest scheme token in a header value or -1.
func indexScheme(header string) int {
	lower := strings.ToLower(header)
	token := strings.ToLower(strings.TrimSpace(digest.Prefix))
	offset := 0
	for {
		idx := strings.Index(lower[offset:], token)
		if idx < 0 {
			return -1
		}
		idx += offset
		// Scheme must be a whole token: start of string or preceded by a separator
		before := idx == 0 || lower[idx-1] == ' ' || lower[idx-1] == ','
		after := idx+len(token) == len(lower) || lower[idx+len(token)] == ' '
		if before && after {
			return idx
		}
		offset = idx + len(token)
	}
}
