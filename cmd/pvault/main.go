// cmd/pvault/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pvault/internal/config"
	"pvault/internal/diff"
	"pvault/internal/errors"
	"pvault/internal/logging"
	"pvault/internal/migrate"
	"pvault/internal/prompt"
	"pvault/internal/storage"
	shared "pvault/shared/types"
)

var rootCmd = &cobra.Command{
	Use:   "pvault",
	Short: "pvault tracks versioned prompt files",
	Long: `pvault tracks text prompts whose source of truth is an ordinary file on
disk. It captures immutable numbered versions whenever a source file
changes and lets you read, diff, and delete those versions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	var trackCmd = &cobra.Command{
		Use:   "track <source>",
		Short: "Track an existing file as a prompt source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")
			versionDir, _ := cmd.Flags().GetString("version-dir")

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ref, ver, err := svc.Track(args[0], key, versionDir)
			if err != nil {
				return err
			}
			fmt.Printf("Tracking %q from %s\n", ref.Key, ref.SourceFile)
			fmt.Printf("  Initial version: v%d\n", ver.Version)
			return nil
		},
	}
	trackCmd.Flags().StringP("key", "k", "", "Key for the prompt (generated when omitted)")
	trackCmd.Flags().String("version-dir", "", "Custom version directory")

	var syncCmd = &cobra.Command{
		Use:   "sync [key]",
		Short: "Create new versions from changed source files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if len(args) == 1 {
				result, err := svc.Sync(args[0], force)
				if err != nil {
					return err
				}
				printSyncResult(result)
				return nil
			}

			results, err := svc.SyncAll()
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No source-tracked prompts found.")
				return nil
			}
			for _, r := range results {
				printSyncResult(r)
			}
			return nil
		},
	}
	syncCmd.Flags().BoolP("force", "f", false, "Create a version even when content is unchanged")

	var untrackCmd = &cobra.Command{
		Use:   "untrack <key>",
		Short: "Stop tracking a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleteVersions, _ := cmd.Flags().GetBool("delete-versions")

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Untrack(args[0], !deleteVersions); err != nil {
				return err
			}
			if deleteVersions {
				fmt.Printf("Untracked %q (versions deleted)\n", args[0])
			} else {
				fmt.Printf("Untracked %q (versions kept)\n", args[0])
			}
			return nil
		},
	}
	untrackCmd.Flags().Bool("delete-versions", false, "Also delete all version files")

	var updateCmd = &cobra.Command{
		Use:   "update <key>",
		Short: "Update a prompt with new content",
		Long: `Update a prompt with new content, writing it to the source file and
capturing it as a new version. Content comes from --file or STDIN.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			var content []byte
			var err error
			if file != "" {
				content, err = os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading content file: %w", err)
				}
			} else {
				content, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
			}

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ver, err := svc.Update(args[0], string(content))
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s -> v%d (%s)\n", ver.Key, ver.Version, ver.Path)
			return nil
		},
	}
	updateCmd.Flags().String("file", "", "Read prompt text from a file instead of STDIN")

	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List tracked prompts with their version histories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			infos, err := svc.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No prompts tracked.")
				return nil
			}

			bold := color.New(color.Bold).SprintFunc()
			for _, info := range infos {
				fmt.Printf("\n%s\n", bold(info.Ref.Key))
				fmt.Printf("  Source: %s\n", info.Ref.SourceFile)
				fmt.Printf("  Versions: %s\n", info.Ref.VersionDir)
				for _, v := range info.Versions {
					fmt.Printf("    - v%d: %s\n", v.Version, v.Path)
				}
			}
			fmt.Println()
			return nil
		},
	}

	var deleteCmd = &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a prompt's latest version, or all of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if all {
				n, err := svc.DeleteAll(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d version(s) for %q.\n", n, args[0])
				return nil
			}

			ver, err := svc.DeleteLatest(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Deleted latest version v%d for %q.\n", ver.Version, args[0])
			return nil
		},
	}
	deleteCmd.Flags().Bool("all", false, "Delete every version and untrack the key")

	var loadCmd = &cobra.Command{
		Use:   "load <key>",
		Short: "Print the content of a prompt version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ver, _ := cmd.Flags().GetInt("version")

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			content, err := svc.Load(args[0], ver)
			if err != nil {
				return err
			}
			fmt.Println(content)
			return nil
		},
	}
	loadCmd.Flags().IntP("version", "v", 0, "Version to load (latest when omitted)")

	var diffCmd = &cobra.Command{
		Use:   "diff <key> <v1> <v2>",
		Short: "Show differences between two versions of a prompt",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			granularity, _ := cmd.Flags().GetString("granularity")

			v1, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version number %q", args[1])
			}
			v2, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid version number %q", args[2])
			}

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.Diff(args[0], v1, v2, diff.Granularity(granularity))
			if err != nil {
				return err
			}
			printInlineDiff(result)
			return nil
		},
	}
	diffCmd.Flags().StringP("granularity", "g", "word", "Diff granularity: word or char")

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch tracked source files and sync on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := initServiceWithLogger()
			if err != nil {
				return err
			}
			defer svc.Close()

			watcher, err := prompt.NewWatcher(svc, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			fmt.Println("Watching tracked source files. Press Ctrl-C to stop.")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}

	var exportCmd = &cobra.Command{
		Use:   "export <key>",
		Short: "Export a prompt's history as a tar.zst archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = args[0] + ".tar.zst"
			}

			svc, err := initService()
			if err != nil {
				return err
			}
			defer svc.Close()

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating archive file: %w", err)
			}
			if err := svc.Export(args[0], f); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing archive file: %w", err)
			}
			fmt.Printf("Exported %q to %s\n", args[0], output)
			return nil
		},
	}
	exportCmd.Flags().StringP("output", "o", "", "Archive path (default <key>.tar.zst)")

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade v1 metadata to the current schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceDir, _ := cmd.Flags().GetString("source-dir")

			repoRoot, _, logger, err := initEnvironment()
			if err != nil {
				return err
			}

			result, err := migrate.V1ToV2(repoRoot, sourceDir, logger)
			if err != nil {
				return err
			}
			if result.Migrated == 0 {
				fmt.Println("Nothing to migrate.")
				return nil
			}
			fmt.Printf("Migrated %d prompt(s) to schema 2.\n", result.Migrated)
			fmt.Printf("Backup saved at %s\n", result.BackupPath)
			fmt.Printf("Source files created in %s\n", result.SourceDir)
			return nil
		},
	}
	migrateCmd.Flags().String("source-dir", "", "Directory for created source files (default <repo>/prompts)")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(untrackCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)
}

// initEnvironment resolves the repository root, loads its config once,
// and builds the logger.
func initEnvironment() (string, *config.Config, *zap.Logger, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, nil, fmt.Errorf("getting current directory: %w", err)
	}
	repoRoot, err := config.FindRoot(cwd)
	if err != nil {
		return "", nil, nil, fmt.Errorf("locating repository root: %w", err)
	}
	cfg, err := config.Load(repoRoot)
	if err != nil {
		return "", nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return "", nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return repoRoot, cfg, logger.Logger, nil
}

func initServiceWithLogger() (*prompt.Service, *zap.Logger, error) {
	repoRoot, cfg, logger, err := initEnvironment()
	if err != nil {
		return nil, nil, err
	}

	var store storage.Port
	switch cfg.Backend {
	case "badger":
		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath = filepath.Join(repoRoot, config.RootDirName, "db")
		}
		opts := badger.DefaultOptions(dbPath)
		opts.Logger = nil
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		store = storage.NewBadgerStore(db, repoRoot, dbPath, logger)
	default:
		store, err = storage.NewFileStore(repoRoot, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	svc, err := prompt.NewService(store, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, logger, nil
}

func initService() (*prompt.Service, error) {
	svc, _, err := initServiceWithLogger()
	return svc, err
}

func printSyncResult(r shared.SyncResult) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch {
	case r.Failed:
		fmt.Printf("%s %s\n", yellow("!"), r.Message)
	case r.Changed:
		fmt.Printf("%s Synced %q: v%d -> v%d\n", green("✓"), r.Key, r.OldVersion, r.NewVersion)
	default:
		fmt.Printf("  Unchanged: %q (at v%d)\n", r.Key, r.OldVersion)
	}
}

func printInlineDiff(result *diff.Result) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed, color.CrossedOut)

	fmt.Printf("diff %q v%d -> v%d\n\n", result.Key, result.V1, result.V2)
	for _, seg := range result.Segments {
		switch seg.Op {
		case diff.Insert:
			added.Print(seg.Text)
		case diff.Delete:
			removed.Print(seg.Text)
		default:
			fmt.Print(seg.Text)
		}
	}
	fmt.Println()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		// Expected user-facing failures exit 1, anything else 2.
		if errors.IsDomain(err) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
