package rwsclient

import "fmt"

// Error returned when the client configuration cannot be loaded or is not valid.
type ConfigurationError struct {
	// Where the configuration comes from: a file path, an environment variable or "options".
	Source string
	// Embedded error
	Err error
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("invalid client configuration from %s: %v", err.Source, err.Err)
}

func (err ConfigurationError) Unwrap() error {
	return err.Err
}
