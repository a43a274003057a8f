package rwsclient

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gbdevw/gorwsclient/pkg/rwsdigest"
	"github.com/gbdevw/gorwsclient/pkg/rwstransport"
)

// Defines configuration options for a robot web service client.
//
// Use the factory function to get a new instance of the struct with nice defaults and then modify
// settings using With*** methods.
type ClientConfigurationOptions struct {
	// Host of the robot web service.
	//
	// Defaults to localhost. Must be a valid host name or IP address.
	Host string `yaml:"host" validate:"required,hostname_rfc1123|ip"`
	// Port of the robot web service.
	//
	// Defaults to 80. Must be between 1 and 65535.
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
	// User name used to answer Digest challenges.
	//
	// Defaults to "Default User". Required.
	Username string `yaml:"username" validate:"required"`
	// Password used to answer Digest challenges.
	//
	// Defaults to "robotics".
	Password string `yaml:"password"`
	// Timeout applied to short operations (milliseconds).
	//
	// Defaults to 400. Must be at least 1.
	DefaultTimeoutMs int64 `yaml:"default_timeout_ms" validate:"gte=1"`
	// Timeout applied to long operations (milliseconds).
	//
	// Defaults to 10000. Must be greater or equal to DefaultTimeoutMs.
	ExtendedTimeoutMs int64 `yaml:"extended_timeout_ms" validate:"gtefield=DefaultTimeoutMs"`
	// Websocket library used for the WebSocket channel.
	//
	// Defaults to gorilla. Must be gorilla or nhooyr.
	WebsocketLibrary string `yaml:"websocket_library" validate:"oneof=gorilla nhooyr"`
	// Maximum size of a received WebSocket frame (bytes).
	//
	// Defaults to 1024. Must be at least 1.
	MaxFrameSize int `yaml:"max_frame_size" validate:"gte=1"`
	// Timeout applied to a WebSocket frame reception (milliseconds). 0 selects the extended
	// timeout.
	//
	// Defaults to 0. Must be greater or equal to 0.
	ReceiveTimeoutMs int64 `yaml:"receive_timeout_ms" validate:"gte=0"`
}

// # Description
//
// Set opts.Host and return the modified object. The method does not validate inputs.
func (opts *ClientConfigurationOptions) WithHost(value string) *ClientConfigurationOptions {
	opts.Host = value
	return opts
}

// # Description
//
// Set opts.Port and return the modified object. The method does not validate inputs.
func (opts *ClientConfigurationOptions) WithPort(value int) *ClientConfigurationOptions {
	opts.Port = value
	return opts
}

// # Description
//
// Set opts.Username and opts.Password and return the modified object. The method does not
// validate inputs.
func (opts *ClientConfigurationOptions) WithCredentials(username string, password string) *ClientConfigurationOptions {
	opts.Username = username
	opts.Password = password
	return opts
}

// # Description
//
// Set opts.DefaultTimeoutMs and return the modified object. The method does not validate inputs.
//
// # DefaultTimeoutMs
//
// This option defines the timeout applied to every operation while the default timeout policy
// is in use (see Client.UseDefaultTimeout).
//
// Defaults to 400 ms. Must be greater or equal to 1.
func (opts *ClientConfigurationOptions) WithDefaultTimeoutMs(value int64) *ClientConfigurationOptions {
	opts.DefaultTimeoutMs = value
	return opts
}

// # Description
//
// Set opts.ExtendedTimeoutMs and return the modified object. The method does not validate
// inputs.
//
// # ExtendedTimeoutMs
//
// This option defines the timeout applied to every operation while the extended timeout policy
// is in use (see Client.UseExtendedTimeout).
//
// Defaults to 10 s. Must be greater or equal to DefaultTimeoutMs.
func (opts *ClientConfigurationOptions) WithExtendedTimeoutMs(value int64) *ClientConfigurationOptions {
	opts.ExtendedTimeoutMs = value
	return opts
}

// Set opts.WebsocketLibrary and return the modified object. The method does not validate inputs.
func (opts *ClientConfigurationOptions) WithWebsocketLibrary(value string) *ClientConfigurationOptions {
	opts.WebsocketLibrary = value
	return opts
}

// Set opts.MaxFrameSize and return the modified object. The method does not validate inputs.
func (opts *ClientConfigurationOptions) WithMaxFrameSize(value int) *ClientConfigurationOptions {
	opts.MaxFrameSize = value
	return opts
}

// Set opts.ReceiveTimeoutMs and return the modified object. The method does not validate inputs.
func (opts *ClientConfigurationOptions) WithReceiveTimeoutMs(value int64) *ClientConfigurationOptions {
	opts.ReceiveTimeoutMs = value
	return opts
}

// # Description
//
// Factory which creates a new ClientConfigurationOptions object with nice defaults. Settings can
// then be modified by the user by using With*** methods.
//
// # Default settings
//
//   - Host = localhost, Port = 80
//   - Username = "Default User", Password = "robotics" (factory credentials of the controller)
//   - DefaultTimeoutMs = 400, ExtendedTimeoutMs = 10000
//   - WebsocketLibrary = gorilla
//   - MaxFrameSize = 1024
//   - ReceiveTimeoutMs = 0 (extended timeout)
func NewClientConfigurationOptions() *ClientConfigurationOptions {
	return &ClientConfigurationOptions{
		Host:              "localhost",
		Port:              80,
		Username:          "Default User",
		Password:          "robotics",
		DefaultTimeoutMs:  rwstransport.DefaultTimeout.Milliseconds(),
		ExtendedTimeoutMs: rwstransport.ExtendedTimeout.Milliseconds(),
		WebsocketLibrary:  rwstransport.LibraryGorilla,
		MaxFrameSize:      rwstransport.DefaultMaxFrameSize,
		ReceiveTimeoutMs:  0,
	}
}

// # Description
//
// Helper function which validates ClientConfigurationOptions. Options are valid if:
//   - opts is not nil
//   - opts.Host is a host name or an IP address
//   - opts.Port is between 1 and 65535
//   - opts.Username is not empty
//   - opts.DefaultTimeoutMs is greater or equal to 1
//   - opts.ExtendedTimeoutMs is greater or equal to opts.DefaultTimeoutMs
//   - opts.WebsocketLibrary is gorilla or nhooyr
//   - opts.MaxFrameSize is greater or equal to 1
//   - opts.ReceiveTimeoutMs is greater or equal to 0
//
// # Returns
//
// InvalidValidationError for bad values passed in and nil or ValidationErrors as error otherwise.
// You will need to assert the error if it's not nil eg. err.(validator.ValidationErrors) to access
// the array of errors.
func Validate(opts *ClientConfigurationOptions) error {
	return validator.New().Struct(opts)
}

// Build the HTTP transport options.
func (opts *ClientConfigurationOptions) httpTransportOptions() rwstransport.HTTPTransportOptions {
	return rwstransport.HTTPTransportOptions{
		Host:            opts.Host,
		Port:            opts.Port,
		Credentials:     rwsdigest.Credentials{Username: opts.Username, Password: opts.Password},
		DefaultTimeout:  time.Duration(opts.DefaultTimeoutMs) * time.Millisecond,
		ExtendedTimeout: time.Duration(opts.ExtendedTimeoutMs) * time.Millisecond,
	}
}

// Build the WebSocket transport options.
func (opts *ClientConfigurationOptions) websocketTransportOptions() rwstransport.WebsocketTransportOptions {
	return rwstransport.WebsocketTransportOptions{
		Library:        opts.WebsocketLibrary,
		MaxFrameSize:   opts.MaxFrameSize,
		ReceiveTimeout: time.Duration(opts.ReceiveTimeoutMs) * time.Millisecond,
	}
}
