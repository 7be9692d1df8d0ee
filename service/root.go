package service

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"spacetraveling/app/config"

	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// options are the persistent flags shared by every command.
type options struct {
	cfgFile string
	verbose bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "spacetraveling",
		Short: "Blog front end for a headless CMS",
		Long: `spacetraveling renders blog posts from a Prismic repository into
a local page store and serves them over HTTP.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "spacetraveling.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newBuildCommand(opts))
	root.AddCommand(newPathsCommand(opts))
	root.AddCommand(newStoreCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spacetraveling %s\n", version)
		},
	}
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
