package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/config"
)

type cliOptions struct {
	url        string
	path       string
	timeout    time.Duration
	jsonOutput bool
	verbose    bool
	logger     *zap.Logger
	httpClient *http.Client
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		path:    domain.PathSSE,
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "mcpbridgectl",
		Short:         "Client for the mcpbridge SSE gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.LoadDotEnv(); err != nil {
				return err
			}
			opts.url = defaultGatewayURL()
			applyRootFlagBindings(cmd.Flags(), &opts)
			opts.url = strings.TrimRight(strings.TrimSpace(opts.url), "/")
			if opts.verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				opts.logger = logger
			}
			if opts.httpClient == nil {
				opts.httpClient = &http.Client{}
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().String("url", "", "gateway base URL (default http://127.0.0.1:$"+domain.EnvServerPort+")")
	root.PersistentFlags().StringVar(&opts.path, "path", opts.path, "stream endpoint path ("+domain.PathSSE+" or "+domain.PathMCPSSE+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "request timeout for calls (0 disables)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log client activity to stderr")

	root.AddCommand(
		newHealthCmd(&opts),
		newWatchCmd(&opts),
		newToolsCmd(&opts),
		newCallCmd(&opts),
	)
	return root
}

func applyRootFlagBindings(flags *pflag.FlagSet, opts *cliOptions) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "url":
			opts.url, _ = flags.GetString("url")
		}
	})
}

// defaultGatewayURL mirrors the gateway's own port resolution.
func defaultGatewayURL() string {
	port := strings.TrimSpace(os.Getenv(domain.EnvServerPort))
	if port == "" {
		port = strconv.Itoa(domain.DefaultServerPort)
	}
	return "http://127.0.0.1:" + port
}

func (o *cliOptions) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, o.timeout)
}
