package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/saiset-co/sai-filecache/config"
	"github.com/saiset-co/sai-filecache/types"
)

type hashResult struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

type lookupResult struct {
	Digest  string `json:"digest"`
	Found   bool   `json:"found"`
	Payload string `json:"payload,omitempty"`
}

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the cache store if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.InitCache(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache store %q ready.\n", svc.Store().Name())
			return nil
		},
	}
}

func newHashCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the content digest of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			digests, err := svc.HashFiles(cmd.Context(), args)
			if err != nil {
				return err
			}

			results := make([]hashResult, len(args))
			for i, path := range args {
				results[i] = hashResult{Path: path, Digest: digests[i]}
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	var byFile bool

	cmd := &cobra.Command{
		Use:   "get <digest>",
		Short: "Look up a cached result by digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			digest := args[0]
			if byFile {
				digest, err = svc.HashFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}

			payload, found, err := svc.GetCachedResult(cmd.Context(), digest)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), lookupResult{Digest: digest, Found: found, Payload: payload})
		},
	}

	cmd.Flags().BoolVar(&byFile, "file", false, "treat the argument as a file path and hash it first")
	return cmd
}

func newPutCommand(opts *rootOptions) *cobra.Command {
	var (
		sourcePath  string
		endpoint    string
		payload     string
		payloadFile string
	)

	cmd := &cobra.Command{
		Use:   "put <digest>",
		Short: "Store a result under a digest, replacing any previous one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if payloadFile != "" {
				data, err := readPayload(cmd.InOrStdin(), payloadFile)
				if err != nil {
					return err
				}
				payload = data
			}

			svc, err := opts.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.SaveCachedResult(cmd.Context(), args[0], sourcePath, payload, endpoint); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s.\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&sourcePath, "path", "", "path of the file the result was produced for")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL the result was obtained from")
	cmd.Flags().StringVar(&payload, "payload", "", "result body")
	cmd.Flags().StringVar(&payloadFile, "payload-file", "", "read the result body from a file, - for stdin")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")

	return cmd
}

func readPayload(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading payload from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading payload file: %w", err)
	}
	return string(data), nil
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently stored results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			entries, err := svc.ListCacheEntriesN(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", types.MaxRecentEntries, fmt.Sprintf("number of entries, at most %d", types.MaxRecentEntries))
	return cmd
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Print a configuration value by dotted path, or everything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			parser, err := config.NewParser(cfg)
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			value, ok := parser.Lookup(path)
			if !ok {
				return types.Errorf(types.ErrConfigNotFound, "path: %s", path)
			}

			return writeJSON(cmd.OutOrStdout(), value)
		},
	})

	return cmd
}
