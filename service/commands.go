package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"spacetraveling/app/config"
	"spacetraveling/app/prismic"
	"spacetraveling/app/repositories"
	"spacetraveling/app/services"

	"github.com/spf13/cobra"
)

func newServeCommand(opts *options) *cobra.Command {
	var addr string
	var prebuild bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the blog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := opts.logger(cmd.ErrOrStderr())

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if prebuild {
				built, err := app.Builder.Build(ctx)
				if err != nil {
					return err
				}
				logger.Info("site built", "pages", len(built))
			}
			return RunAppServer(ctx, app, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&prebuild, "build", false, "build every page before serving")
	return cmd
}

func newBuildCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Render the listing and every post into the page store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			app, err := NewApp(cfg, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer app.Close()

			built, err := app.Builder.Build(cmd.Context())
			out := cmd.OutOrStdout()
			for _, path := range built {
				fmt.Fprintln(out, path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Built %d pages\n", len(built))
			return nil
		},
	}
}

func newPathsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List the path of every published post",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd.ErrOrStderr())
			client, err := prismic.NewClient(cfg.CMS, prismic.WithLogger(logger))
			if err != nil {
				return err
			}

			uids, err := services.NewListingService(client, cfg, logger).AllUIDs(cmd.Context())
			if err != nil {
				return err
			}
			for _, uid := range uids {
				fmt.Fprintln(cmd.OutOrStdout(), services.PostPath(uid))
			}
			return nil
		},
	}
}

func newStoreCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Maintain the local page store",
	}

	var yes bool
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete the page store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.cfgFile)
			if err != nil {
				return err
			}
			return clean(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Store.Dir, yes)
		},
	}
	clean.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	var backupDir string
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a backup of the page store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.cfgFile)
			if err != nil {
				return err
			}
			file, err := backup(cfg.Store.Dir, backupDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Page store backed up successfully to %s\n", file)
			return nil
		},
	}
	backupCmd.Flags().StringVar(&backupDir, "dir", "data/backups", "backup directory")

	var restoreYes bool
	restoreCmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the page store from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.cfgFile)
			if err != nil {
				return err
			}
			return restore(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Store.Dir, args[0], restoreYes)
		},
	}
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "replace an existing store without asking")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.cfgFile)
			if err != nil {
				return err
			}
			return list(cmd.OutOrStdout(), cfg.Store.Dir)
		},
	}

	cmd.AddCommand(clean, backupCmd, restoreCmd, list)
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}

// clean removes the page store.
func clean(in io.Reader, out io.Writer, dir string, yes bool) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintln(out, "Page store is already clean (does not exist)")
		return nil
	}

	if !yes && !confirm(in, out, "Are you sure you want to clean the page store? This cannot be undone.") {
		fmt.Fprintln(out, "Operation cancelled")
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clean page store: %w", err)
	}
	fmt.Fprintln(out, "Page store cleaned successfully")
	return nil
}

// backup writes a full badger backup of dir into backupDir.
func backup(dir, backupDir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("no page store exists at %s", dir)
	}

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := repositories.Open(dir)
	if err != nil {
		return "", err
	}
	defer db.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup page store: %w", err)
	}
	return backupFile, nil
}

// restore replaces the page store at dir with the contents of backupFile.
func restore(in io.Reader, out io.Writer, dir, backupFile string, yes bool) (err error) {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if _, err := os.Stat(dir); err == nil {
		if !yes && !confirm(in, out, "Existing page store found. Do you want to replace it?") {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove existing page store: %w", err)
		}
	}

	db, err := repositories.Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	err = func() (loadErr error) {
		defer func() {
			if r := recover(); r != nil {
				loadErr = fmt.Errorf("panic occurred during restore: %v", r)
			}
		}()
		return db.Load(f, 4)
	}()
	if err != nil {
		return fmt.Errorf("failed to restore page store: %w", err)
	}

	fmt.Fprintln(out, "Page store restored successfully")
	return nil
}

// list prints every stored path with its generation time.
func list(out io.Writer, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no page store exists at %s", dir)
	}
	db, err := repositories.Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	pages := repositories.NewBadgerPageRepository(db)
	paths, err := pages.List()
	if err != nil {
		return err
	}
	for _, path := range paths {
		page, err := pages.Get(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", path, page.ETag, page.GeneratedAt.Format(time.RFC3339))
	}
	return nil
}
