package rwsdigest

import (
	"errors"
	"fmt"
)

var (
	// The header does not carry a Digest challenge.
	ErrNoChallenge = errors.New("no digest challenge")
	// The challenge uses an unsupported hash algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")
	// The challenge only offers unsupported qop options.
	ErrUnsupportedQOP = errors.New("unsupported digest qop")
)

/*************************************************************************************************/
/* CHALLENGE ERROR                                                                               */
/*************************************************************************************************/

// Error returned when a Digest challenge cannot be parsed or answered.
type ChallengeError struct {
	// Header value which carried the challenge. Can be empty.
	Header string
	// Embedded error
	Err error
}

func (err ChallengeError) Error() string {
	if err.Header == "" {
		return fmt.Sprintf("digest challenge: %v", err.Err)
	}
	return fmt.Sprintf("digest challenge %q: %v", err.Header, err.Err)
}

func (err ChallengeError) Unwrap() error {
	return err.Err
}
