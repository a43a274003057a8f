package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/pkg/rwsclient"
	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

// Settings shared by all commands
type probeSettings struct {
	configFile string
	host       string
	port       int
	username   string
	password   string
	library    string
	extended   bool
	verbose    bool
	debug      bool
}

// Error returned when a communication does not end with an Ok status.
type failedResultError struct {
	status rwsresult.GeneralStatus
}

func (err failedResultError) Error() string {
	return fmt.Sprintf("communication failed: %s", err.status)
}

func newRootCommand() *cobra.Command {
	settings := &probeSettings{}
	root := &cobra.Command{
		Use:   "rwsprobe",
		Short: "Probe a robot web service",
		Long: `Send HTTP requests to a robot web service and receive WebSocket subscription frames.
Digest authentication and session cookies are handled transparently.

Configuration is read from the file provided with --config or from RWS_* environment variables.
Flags override both.`,
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&settings.configFile, "config", "c", "", "YAML client configuration file")
	flags.StringVar(&settings.host, "host", "", "robot web service host")
	flags.IntVar(&settings.port, "port", 0, "robot web service port")
	flags.StringVarP(&settings.username, "username", "u", "", "user name")
	flags.StringVarP(&settings.password, "password", "p", "", "password")
	flags.StringVar(&settings.library, "library", "", "websocket library: gorilla or nhooyr")
	flags.BoolVar(&settings.extended, "extended", false, "use the extended timeout")
	flags.BoolVarP(&settings.verbose, "verbose", "v", false, "print headers and contents")
	flags.BoolVar(&settings.debug, "debug", false, "enable debug logs")

	root.AddCommand(
		newRequestCommand(settings, "get", "Send a GET request", 1, func(ctx context.Context, c *rwsclient.Client, args []string) rwsresult.HTTPResult {
			return c.HTTPGet(ctx, args[0])
		}),
		newRequestCommand(settings, "post", "Send a POST request with form content", 2, func(ctx context.Context, c *rwsclient.Client, args []string) rwsresult.HTTPResult {
			return c.HTTPPost(ctx, args[0], args[1])
		}),
		newRequestCommand(settings, "put", "Send a PUT request with form content", 2, func(ctx context.Context, c *rwsclient.Client, args []string) rwsresult.HTTPResult {
			return c.HTTPPut(ctx, args[0], args[1])
		}),
		newRequestCommand(settings, "delete", "Send a DELETE request", 1, func(ctx context.Context, c *rwsclient.Client, args []string) rwsresult.HTTPResult {
			return c.HTTPDelete(ctx, args[0])
		}),
		newSubscribeCommand(settings),
	)
	return root
}

// Build a command which sends one HTTP request.
func newRequestCommand(
	settings *probeSettings,
	name string,
	short string,
	nargs int,
	send func(ctx context.Context, c *rwsclient.Client, args []string) rwsresult.HTTPResult,
) *cobra.Command {
	use := name + " [uri]"
	if nargs == 2 {
		use = name + " [uri] [content]"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := settings.client()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())
			result := send(cmd.Context(), client, args)
			fmt.Fprintln(cmd.OutOrStdout(), result.Render(settings.verbose, 2))
			if result.Status != rwsresult.Ok {
				return failedResultError{status: result.Status}
			}
			return nil
		},
	}
}

// Build the command which opens a subscription and prints received frames.
func newSubscribeCommand(settings *probeSettings) *cobra.Command {
	var count int
	var contains string
	cmd := &cobra.Command{
		Use:   "subscribe [uri] [protocol]",
		Short: "Open a WebSocket subscription and print received frames",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := settings.client()
			if err != nil {
				return err
			}
			defer client.Close(cmd.Context())
			result := client.WebsocketConnect(cmd.Context(), args[0], args[1])
			fmt.Fprintln(cmd.OutOrStdout(), result.Render(settings.verbose, 2))
			if result.Status != rwsresult.Ok {
				return failedResultError{status: result.Status}
			}
			for i := 0; count <= 0 || i < count; i++ {
				frame := client.WebsocketReceiveFrame(cmd.Context())
				if contains != "" && frame.Status == rwsresult.Ok {
					start, end, _ := strings.Cut(contains, "|")
					fmt.Fprintln(cmd.OutOrStdout(), client.FindSubstringContent(frame.Frame.FrameContent, start, end))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), frame.Render(settings.verbose, 2))
				}
				if frame.Status != rwsresult.Ok {
					return failedResultError{status: frame.Status}
				}
			}
			return client.WebsocketClose(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of frames to receive, 0 for no limit")
	cmd.Flags().StringVar(&contains, "extract", "", "print only the text between two markers separated by '|', e.g. '<span>|</span>'")
	return cmd
}

// Build a client from the configuration source and flag overrides.
func (settings *probeSettings) client() (*rwsclient.Client, error) {
	var opts *rwsclient.ClientConfigurationOptions
	var err error
	if settings.configFile != "" {
		opts, err = rwsclient.LoadConfigurationFile(settings.configFile)
	} else {
		opts, err = rwsclient.LoadConfigurationFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if settings.host != "" {
		opts.WithHost(settings.host)
	}
	if settings.port != 0 {
		opts.WithPort(settings.port)
	}
	if settings.username != "" {
		opts.Username = settings.username
	}
	if settings.password != "" {
		opts.Password = settings.password
	}
	if settings.library != "" {
		opts.WithWebsocketLibrary(settings.library)
	}
	logger := zap.NewNop()
	if settings.debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	client, err := rwsclient.NewClient(opts, nil, nil, logger)
	if err != nil {
		return nil, err
	}
	if settings.extended {
		client.UseExtendedTimeout()
	}
	return client, nil
}
