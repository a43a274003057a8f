package rwsdigest

import (
	"net/http"
	"sync"
)

// Stateful helper which answers Digest challenges on behalf of a user. The only state it owns is
// the nonce count associated with the last nonce received from the server.
type Authenticator struct {
	// User credentials
	credentials Credentials
	// Client nonce generator
	cnonce func() string
	// Last server nonce
	nonce string
	// Number of answers sent with the last server nonce
	count uint32
	// Internal mutex
	mu sync.Mutex
}

// # Description
//
// Factory which creates a new Authenticator.
//
// # Inputs
//
//   - credentials: User credentials used to answer challenges.
//   - cnonce: Optional client nonce generator. If nil, random UUIDs without dashes are used.
//
// # Returns
//
// A new Authenticator.
func NewAuthenticator(credentials Credentials, cnonce func() string) *Authenticator {
	if cnonce == nil {
		cnonce = newCNonce
	}
	return &Authenticator{
		credentials: credentials,
		cnonce:      cnonce,
		mu:          sync.Mutex{},
	}
}

// Return the username used by the authenticator.
func (auth *Authenticator) Username() string {
	return auth.credentials.Username
}

// # Description
//
// Answer the Digest challenge carried by a WWW-Authenticate header value.
//
// # Inputs
//
//   - header: WWW-Authenticate header value.
//   - method: Method of the request to authorize.
//   - uri: URI (path and query) of the request to authorize.
//   - body: Body of the request to authorize. Only used with auth-int.
//
// # Returns
//
// The Authorization header value or an error if the challenge cannot be parsed or answered.
func (auth *Authenticator) Authorize(header string, method string, uri string, body []byte) (string, error) {
	challenge, err := ParseChallenge(header)
	if err != nil {
		return "", err
	}
	return auth.AuthorizeChallenge(challenge, method, uri, body)
}

// # Description
//
// Same as Authorize, but the challenge is looked up in the WWW-Authenticate values of a response.
func (auth *Authenticator) AuthorizeResponse(header http.Header, method string, uri string, body []byte) (string, error) {
	challenge, err := FindChallenge(header)
	if err != nil {
		return "", err
	}
	return auth.AuthorizeChallenge(challenge, method, uri, body)
}

// Answer an already parsed challenge and update the nonce count.
func (auth *Authenticator) AuthorizeChallenge(challenge Challenge, method string, uri string, body []byte) (string, error) {
	auth.mu.Lock()
	defer auth.mu.Unlock()
	if challenge.Nonce != auth.nonce {
		auth.nonce = challenge.Nonce
		auth.count = 0
	}
	auth.count++
	return Compute(challenge, auth.credentials, Params{
		Method:     method,
		URI:        uri,
		Body:       body,
		NonceCount: auth.count,
		CNonce:     auth.cnonce(),
	})
}
