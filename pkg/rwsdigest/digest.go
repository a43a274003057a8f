package rwsdigest

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/icholy/digest"
)

// Supported quality of protection values
const (
	QOPAuth    = "auth"
	QOPAuthInt = "auth-int"
)

// Suffix of the session variants of the hash algorithms
const sessionSuffix = "-SESS"

// Username and password used to answer Digest challenges. Credentials are immutable.
type Credentials struct {
	Username string
	Password string
}

// Per-request parameters used to answer a challenge.
type Params struct {
	// Request method
	Method string
	// Request URI (escaped path and query, as sent on the request line)
	URI string
	// Request body. Only used with the auth-int qop.
	Body []byte
	// Number of requests sent with the challenge nonce, this one included. Starts at 1.
	NonceCount uint32
	// Client nonce. A random one is used if empty and the challenge offers a qop.
	CNonce string
}

// Parsed Authorization header produced in response to a challenge.
type Authorization = digest.Credentials

// # Description
//
// Compute the Authorization header value answering the provided challenge. The function is pure
// when params carries a client nonce: the same challenge, credentials and parameters always
// produce the same value.
//
// # Inputs
//
//   - challenge: Digest challenge sent by the server.
//   - credentials: User credentials.
//   - params: Request method, URI, optional body, nonce count and client nonce.
//
// # Returns
//
// The Authorization header value or an error if the challenge cannot be answered.
func Compute(challenge Challenge, credentials Credentials, params Params) (string, error) {
	authorization, err := Answer(challenge, credentials, params)
	if err != nil {
		return "", err
	}
	return authorization.String(), nil
}

// # Description
//
// Same as Compute, but the structured Authorization is returned instead of its header value.
//
// MD5, SHA-256, SHA-512 and SHA-512-256 are supported, as well as their session variants.
func Answer(challenge Challenge, credentials Credentials, params Params) (Authorization, error) {
	algorithm, session := baseAlgorithm(challenge.Algorithm)
	if err := checkChallenge(challenge, algorithm); err != nil {
		return Authorization{}, ChallengeError{Header: challenge.String(), Err: err}
	}
	if params.CNonce == "" && len(challenge.QOP) > 0 {
		params.CNonce = newCNonce()
	}
	body := func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(params.Body)), nil
	}
	options := digest.Options{
		Method:   params.Method,
		URI:      params.URI,
		GetBody:  body,
		Count:    int(params.NonceCount),
		Username: credentials.Username,
		Password: credentials.Password,
		Cnonce:   params.CNonce,
	}
	// Session variants only differ by A1, which digest.Digest accepts as an override
	answered := challenge
	if session {
		options.A1 = sessionA1(algorithm, credentials, challenge, params.CNonce)
		answered.Algorithm = algorithm
	}
	authorization, err := digest.Digest(&answered, options)
	if err != nil {
		return Authorization{}, ChallengeError{Header: challenge.String(), Err: err}
	}
	authorization.Algorithm = challenge.Algorithm
	return *authorization, nil
}

// # Description
//
// Check the response digest of an Authorization against the expected password. This is the
// server side counterpart of Compute.
//
// # Returns
//
// True if the response digest matches, false otherwise or if the authorization is malformed.
func Verify(authorization Authorization, password string, method string, body []byte) bool {
	if authorization.Userhash {
		return false
	}
	challenge := Challenge{
		Realm:     authorization.Realm,
		Nonce:     authorization.Nonce,
		Opaque:    authorization.Opaque,
		Algorithm: authorization.Algorithm,
	}
	if authorization.QOP != "" {
		if authorization.Nc <= 0 || authorization.Cnonce == "" {
			return false
		}
		challenge.QOP = []string{authorization.QOP}
	}
	expected, err := Answer(challenge, Credentials{Username: authorization.Username, Password: password}, Params{
		Method:     method,
		URI:        authorization.URI,
		Body:       body,
		NonceCount: uint32(authorization.Nc),
		CNonce:     authorization.Cnonce,
	})
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected.Response), []byte(strings.ToLower(authorization.Response))) == 1
}

// # Description
//
// Parse an Authorization header value using the Digest scheme.
func ParseAuthorization(header string) (Authorization, error) {
	value, found := digestValue(header)
	if !found {
		return Authorization{}, ChallengeError{Header: header, Err: ErrNoChallenge}
	}
	authorization, err := digest.ParseCredentials(value)
	if err != nil {
		return Authorization{}, ChallengeError{Header: header, Err: err}
	}
	return *authorization, nil
}

/*************************************************************************************************/
/* UTILS                                                                                         */
/*************************************************************************************************/

// Split an algorithm name into its base algorithm and whether the session variant is used.
func baseAlgorithm(algorithm string) (string, bool) {
	if strings.HasSuffix(strings.ToUpper(algorithm), sessionSuffix) {
		return algorithm[:len(algorithm)-len(sessionSuffix)], true
	}
	return algorithm, false
}

// Return a typed error if the challenge algorithm or qop options cannot be used.
func checkChallenge(challenge Challenge, algorithm string) error {
	if !digest.CanDigest(&Challenge{Algorithm: algorithm}) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, challenge.Algorithm)
	}
	if !digest.CanDigest(&Challenge{QOP: challenge.QOP}) {
		return fmt.Errorf("%w: %s", ErrUnsupportedQOP, strings.Join(challenge.QOP, ","))
	}
	return nil
}

// Compute the session A1 hash: H(H(username:realm:password):nonce:cnonce).
func sessionA1(algorithm string, credentials Credentials, challenge Challenge, cnonce string) string {
	var hasher hash.Hash
	switch strings.ToUpper(algorithm) {
	case "SHA-256":
		hasher = sha256.New()
	case "SHA-512":
		hasher = sha512.New()
	case "SHA-512-256":
		hasher = sha512.New512_256()
	default:
		hasher = md5.New()
	}
	h := func(parts ...string) string {
		hasher.Reset()
		hasher.Write([]byte(strings.Join(parts, ":")))
		return hex.EncodeToString(hasher.Sum(nil))
	}
	return h(h(credentials.Username, challenge.Realm, credentials.Password), challenge.Nonce, cnonce)
}

// Return a random client nonce.
func newCNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
