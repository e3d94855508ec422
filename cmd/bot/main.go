package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/mcsmanager/mcsm_bot/config"
	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/shortcuts"
	"github.com/mcsmanager/mcsm_bot/store"
	"github.com/spf13/cobra"
)

var configFiles []string

var rootCmd = &cobra.Command{
	Use:           "mcsm-bot",
	Short:         "Discord bot for the MCSManager community server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var shortcutsCmd = &cobra.Command{
	Use:   "shortcuts",
	Short: "Shortcut maintenance",
}

var shortcutsExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the stored shortcuts to a shortcuts.json document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "shortcuts.json"
		if len(args) == 1 {
			path = args[0]
		}
		return exportShortcuts(cmd.Context(), path)
	},
}

var purgeLimit int

var purgesCmd = &cobra.Command{
	Use:   "purges",
	Short: "List recent /purge runs from the snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listPurges(cmd.Context(), cmd.OutOrStdout(), purgeLimit)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mcsm-bot %s (discordgo %s, %s)\n", config.Version, discordgo.VERSION, runtime.Version())
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c",
		[]string{"config/config.yaml", "config/secrets.yaml"},
		"Config file, repeatable; later files override earlier ones")

	purgesCmd.Flags().IntVarP(&purgeLimit, "limit", "n", 25, "Number of records to show")

	configCmd.AddCommand(configInitCmd)
	shortcutsCmd.AddCommand(shortcutsExportCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(shortcutsCmd)
	rootCmd.AddCommand(purgesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBot(_ *cobra.Command, _ []string) error {
	params, err := build(configFiles)
	if err != nil {
		return err
	}
	return run(params)
}

// openSnapshot loads the on-disk snapshot into a private in-memory store.
// The caller closes it; nothing is flushed back.
func openSnapshot(ctx context.Context) (*store.SQLiteStore, error) {
	cfg, err := config.LoadWithDefaults(configFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st := store.NewSQLiteStore(store.Params{Logger: logger.NewNop()})
	st.SetFlushDebounce(time.Hour)
	if err := st.Open(ctx); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.RestoreFromDisk(ctx, cfg.Store.Path); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("restore %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

func exportShortcuts(ctx context.Context, path string) error {
	st, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := shortcuts.New(shortcuts.Params{Backend: st})
	return registry.ExportJSON(ctx, path)
}

func listPurges(ctx context.Context, out io.Writer, limit int) error {
	st, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListPurgeRecords(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no purges recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tMODERATOR\tTARGET\tCHANNEL\tDAYS\tLIMIT\tDELETED")
	for _, r := range records {
		channel := r.ChannelID
		if channel == "" {
			channel = "all"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			humanize.Time(r.CreatedAt), r.ModeratorID, r.TargetUserID, channel, r.Days, r.Limit, r.Deleted)
	}
	return w.Flush()
}
