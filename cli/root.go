package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/saiset-co/sai-filecache/service"
	"github.com/saiset-co/sai-filecache/utils"
)

const version = "0.1.0"

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the filecache command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "filecache",
		Short:         "Content-addressed cache for remote document results",
		Long:          "filecache keys remote API responses by the digest of the file that produced them and keeps them in a local store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		newInitCommand(opts),
		newHashCommand(opts),
		newGetCommand(opts),
		newPutCommand(opts),
		newListCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)

	return root
}

func (o *rootOptions) openService() (*service.Service, error) {
	svc, err := service.NewServiceFromFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return svc, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := utils.MarshalIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print filecache version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "filecache version %s\n", version)
		},
	}
}
