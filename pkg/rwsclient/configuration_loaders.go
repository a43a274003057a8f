package rwsclient

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfigurationFromEnv
const (
	EnvHost             = "RWS_HOST"
	EnvPort             = "RWS_PORT"
	EnvUsername         = "RWS_USERNAME"
	EnvPassword         = "RWS_PASSWORD"
	EnvWebsocketLibrary = "RWS_WEBSOCKET_LIBRARY"
)

// # Description
//
// Load client options from a YAML file. Settings missing from the file keep the values set by
// NewClientConfigurationOptions. Loaded options are validated.
//
// # Example
//
//	host: 192.168.125.1
//	port: 80
//	username: Default User
//	password: robotics
//	websocket_library: nhooyr
//	max_frame_size: 4096
//
// # Returns
//
// The loaded options or a ConfigurationError.
func LoadConfigurationFile(path string) (*ClientConfigurationOptions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigurationError{Source: path, Err: err}
	}
	opts := NewClientConfigurationOptions()
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, ConfigurationError{Source: path, Err: err}
	}
	if err := Validate(opts); err != nil {
		return nil, ConfigurationError{Source: path, Err: err}
	}
	return opts, nil
}

// # Description
//
// Load client options from environment variables: RWS_HOST, RWS_PORT, RWS_USERNAME,
// RWS_PASSWORD and RWS_WEBSOCKET_LIBRARY. Unset variables keep the values set by
// NewClientConfigurationOptions. Loaded options are validated.
//
// # Returns
//
// The loaded options or a ConfigurationError.
func LoadConfigurationFromEnv() (*ClientConfigurationOptions, error) {
	opts := NewClientConfigurationOptions()
	if value, ok := os.LookupEnv(EnvHost); ok {
		opts.WithHost(value)
	}
	if value, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return nil, ConfigurationError{Source: EnvPort, Err: err}
		}
		opts.WithPort(port)
	}
	if value, ok := os.LookupEnv(EnvUsername); ok {
		opts.Username = value
	}
	if value, ok := os.LookupEnv(EnvPassword); ok {
		opts.Password = value
	}
	if value, ok := os.LookupEnv(EnvWebsocketLibrary); ok {
		opts.WithWebsocketLibrary(value)
	}
	if err := Validate(opts); err != nil {
		return nil, ConfigurationError{Source: "environment", Err: err}
	}
	return opts, nil
}
