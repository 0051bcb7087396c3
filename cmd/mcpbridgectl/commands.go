package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/stream"
)

func newHealthCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the gateway health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.requestContext(cmd.Context())
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.url+"/", nil)
			if err != nil {
				return err
			}
			status, body, err := doRequest(opts.httpClient, req)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return exitWithMessage(1, fmt.Sprintf("gateway answered %d: %s", status, bytes.TrimSpace(body)))
			}
			return printResultPayload(cmd.OutOrStdout(), "health", body, opts.jsonOutput)
		},
	}
}

func newWatchCmd(opts *cliOptions) *cobra.Command {
	var untilTools bool
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open a stream and print its events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			seen := 0
			return watchStream(ctx, opts, func(event stream.Event) (bool, error) {
				seen++
				if err := printEvent(cmd.OutOrStdout(), event, opts.jsonOutput); err != nil {
					return false, err
				}
				if untilTools && event.Name == domain.EventTools {
					return false, nil
				}
				return count <= 0 || seen < count, nil
			})
		},
	}

	cmd.Flags().BoolVar(&untilTools, "until-tools", false, "stop after the tools event")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many events (0 streams until closed)")
	return cmd
}

func newToolsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog announced on a new stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.requestContext(cmd.Context())
			defer cancel()

			var payload json.RawMessage
			err := watchStream(ctx, opts, func(event stream.Event) (bool, error) {
				switch event.Name {
				case domain.EventTools:
					payload = event.Data
					return false, nil
				case domain.EventError:
					return false, streamFailure(event.Data)
				default:
					return true, nil
				}
			})
			if err != nil {
				return err
			}
			if payload == nil {
				return exitWithMessage(1, "stream closed before the tools event")
			}
			return printToolsEvent(cmd.OutOrStdout(), payload, opts.jsonOutput)
		},
	}
}

func newCallCmd(opts *cliOptions) *cobra.Command {
	var params string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool through the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(params)) {
				return exitWithMessage(2, "--params must be valid JSON")
			}
			body, err := json.Marshal(struct {
				Tool   string          `json:"tool"`
				Params json.RawMessage `json:"params"`
			}{Tool: args[0], Params: json.RawMessage(params)})
			if err != nil {
				return err
			}

			ctx, cancel := opts.requestContext(cmd.Context())
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.url+opts.path, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			opts.logger.Debug("invoking tool", zap.String("tool", args[0]), zap.String("url", req.URL.String()))

			status, payload, err := doRequest(opts.httpClient, req)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return exitWithMessage(1, fmt.Sprintf("call failed (%d): %s", status, errorMessage(payload)))
			}
			return printResultPayload(cmd.OutOrStdout(), "result", payload, opts.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&params, "params", "{}", "tool arguments as a JSON object")
	return cmd
}

// watchStream opens the stream and hands each event to visit until visit
// returns false, the stream ends or ctx is done.
func watchStream(ctx context.Context, opts *cliOptions, visit func(stream.Event) (bool, error)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.url+opts.path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := opts.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect %s: %w", req.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return exitWithMessage(1, fmt.Sprintf("stream rejected (%d): %s", resp.StatusCode, bytes.TrimSpace(body)))
	}
	opts.logger.Debug("stream connected", zap.String("url", req.URL.String()))

	reader := bufio.NewReader(resp.Body)
	for {
		event, err := stream.ReadEvent(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		more, err := visit(event)
		if err != nil || !more {
			return err
		}
	}
}

func doRequest(client *http.Client, req *http.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(bytes.TrimSpace(body))
}

func streamFailure(data []byte) error {
	var event domain.ErrorEvent
	if err := json.Unmarshal(data, &event); err == nil && event.Message != "" {
		return exitWithMessage(1, "stream error: "+event.Message)
	}
	return exitWithMessage(1, "stream error: "+string(data))
}
