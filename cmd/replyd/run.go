package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/overhuman/replyd/internal/httpapi"
)

type runFlags struct {
	file string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run <user-summary|reply|embeddings>",
		Short: "Run one pipeline on a JSON request and print the response",
		Long: `Reads a request body in the same shape the HTTP API accepts, runs the
pipeline once and prints the response JSON to stdout. Logs go to stderr.

  replyd run reply -f cast.json
  echo '{"input_data": {"bio": "gopher"}}' | replyd run embeddings -f -`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"user-summary", "reply", "embeddings"},
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(flags.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeIn()

			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			p, err := bootstrap(cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			resp, err := runOnce(cmd.Context(), p, args[0], in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", `Request JSON file ("-" for stdin)`)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// runOnce decodes r for the named pipeline, runs it and returns the same
// response value the HTTP API would send.
func runOnce(ctx context.Context, p httpapi.Pipelines, name string, r io.Reader) (any, error) {
	switch name {
	case "user-summary":
		in, err := httpapi.DecodeUserSummary(r)
		if err != nil {
			return nil, err
		}
		st, err := p.UserSummary.Run(ctx, in)
		if err != nil {
			return nil, err
		}
		return httpapi.NewUserSummaryResponse(st), nil
	case "reply":
		in, err := httpapi.DecodeReply(r)
		if err != nil {
			return nil, err
		}
		st, err := p.Reply.Run(ctx, in)
		if err != nil {
			return nil, err
		}
		return httpapi.NewReplyResponse(st), nil
	case "embeddings":
		in, err := httpapi.DecodeEmbeddings(r)
		if err != nil {
			return nil, err
		}
		st, err := p.Embeddings.Run(ctx, in)
		if err != nil {
			return nil, err
		}
		return httpapi.NewEmbeddingsResponse(st), nil
	default:
		return nil, fmt.Errorf("unknown pipeline %q (want user-summary, reply or embeddings)", name)
	}
}
