package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nerve/internal/client"
	"nerve/internal/embeddings"
)

const rootLongDesc string = `nervectl talks to a running nerve embedding service.

Examples:
  nervectl embed "hello world"
  echo "hello world" | nervectl embed
  nervectl similarity "fast search math" "approximate nearest neighbour"
  nervectl --url http://nerve:8080 embed "hello"`

type rootCommander struct {
	url      string
	timeout  time.Duration
	attempts int
}

func (c *rootCommander) client() *client.Client {
	return client.New(c.url, client.Options{Timeout: c.timeout, Attempts: c.attempts})
}

// NewRootCmd builds the nervectl command tree.
func NewRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:          "nervectl",
		Short:        "Client for the nerve embedding service",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&cmder.url, "url", "u", "http://localhost:8080", "Base URL of the nerve service")
	cmd.PersistentFlags().DurationVarP(&cmder.timeout, "timeout", "t", 10*time.Second, "Per-request timeout")
	cmd.PersistentFlags().IntVar(&cmder.attempts, "attempts", 3, "Attempts per request for retryable failures")

	cmd.AddCommand(newEmbedCmd(cmder))
	cmd.AddCommand(newSimilarityCmd(cmder))
	return cmd
}

func newEmbedCmd(root *rootCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "embed [text]",
		Short: "Print the embedding of a text (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			vec, err := root.client().Embed(cmd.Context(), text)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"embedding": vec})
		},
	}
}

func newSimilarityCmd(root *rootCommander) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity <a> <b>",
		Short: "Print the cosine similarity of two texts' embeddings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := root.client()
			a, err := c.Embed(ctx, args[0])
			if err != nil {
				return fmt.Errorf("embed first text: %w", err)
			}
			b, err := c.Embed(ctx, args[1])
			if err != nil {
				return fmt.Errorf("embed second text: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", embeddings.CosineSimilarity(a, b))
			return err
		},
	}
}

func inputText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
