package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sharesync/internal/app"
	"sharesync/internal/config"
	"sharesync/internal/encryption"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// readConfig locates and reads the config file.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a SyncApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Events", "Repair").
func newApp(ctx context.Context, operation string) (*app.SyncApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSyncApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase from the terminal.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "sharesync",
	Short:        "Keep the share table consistent with the file index",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		if _, err := os.Stat(defaults["config_path"]); err == nil {
			return fmt.Errorf("config file already exists at %s", defaults["config_path"])
		}

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, defaults["base_dir"])

		if encrypt {
			cfg.Encryption.Type = "age"
			passphrase, err := readPassphrase("Snapshot key passphrase: ")
			if err != nil {
				return err
			}
			confirm, err := readPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if passphrase != confirm {
				return fmt.Errorf("passphrases do not match")
			}
			if err := encryption.NewAgeEncryptor(cfg.Encryption).Setup(passphrase); err != nil {
				return fmt.Errorf("generating snapshot keys: %w", err)
			}
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir:    %s\n", defaults["base_dir"])
		if encrypt {
			fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Instance ID:      %s\n", cfg.InstanceID)
		fmt.Printf("Base Dir:         %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:          %s\n", cfg.LogDir)
		fmt.Printf("Database:         %s\n", cfg.Database.Type)
		fmt.Printf("Encryption:       %s\n", cfg.Encryption.Type)
		fmt.Printf("Pending Capacity: %d\n", cfg.Sharing.PendingCapacity)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:            %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the database schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.MigrateDatabase(cfg); err != nil {
			return err
		}
		fmt.Println("Database schema is up to date.")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the database schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.CheckDatabase(cfg); err != nil {
			return err
		}
		fmt.Println("Database schema is up to date.")
		return nil
	},
}

// events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Handle host events read as JSON lines from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Events")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ServeEvents(cmd.Context(), os.Stdin, os.Stdout)
	},
}

// fanout command
var fanoutCmd = &cobra.Command{
	Use:   "fanout",
	Short: "List the users a share reaches",
	RunE: func(cmd *cobra.Command, args []string) error {
		itemType, _ := cmd.Flags().GetString("type")
		source, _ := cmd.Flags().GetInt64("source")
		owner, _ := cmd.Flags().GetString("owner")
		actor, _ := cmd.Flags().GetString("actor")
		if owner == "" && actor == "" {
			return fmt.Errorf("one of --owner or --actor is required")
		}

		a, err := newApp(cmd.Context(), "ResolveFanout")
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.ResolveFanout(cmd.Context(), itemType, source, owner, actor)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Println(u)
		}
		return nil
	},
}

// repair command
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Remove shares whose file no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		a, err := newApp(cmd.Context(), "Repair")
		if err != nil {
			return err
		}
		defer a.Close()

		n, snapshot, err := a.RepairOrphanShares(cmd.Context(), dryRun)
		if err != nil {
			return fmt.Errorf("repair failed: %w", err)
		}
		if dryRun {
			fmt.Printf("Would remove %d orphan share(s)\n", n)
			return nil
		}
		if snapshot != "" {
			fmt.Printf("Snapshot: %s\n", snapshot)
		}
		fmt.Printf("Removed %d orphan share(s)\n", n)
		return nil
	},
}

// upgrade command
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Run the share table upgrade",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Upgrade")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Upgrade(cmd.Context())
		if err != nil {
			return fmt.Errorf("upgrade failed: %w", err)
		}

		fmt.Printf("Version: %s -> %s\n", result.From, result.To)
		if result.Repaired {
			if result.Snapshot != "" {
				fmt.Printf("Snapshot: %s\n", result.Snapshot)
			}
			fmt.Printf("Removed %d orphan share(s)\n", result.Removed)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View maintenance operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No maintenance operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-13s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage database snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListSnapshots()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No snapshots stored.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var snapshotFetchCmd = &cobra.Command{
	Use:   "fetch NAME OUT",
	Short: "Download a snapshot, decrypting it if needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, out := args[0], args[1]

		a, err := newApp(cmd.Context(), "FetchSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		var passphrase string
		if app.SnapshotEncrypted(name) {
			passphrase, err = readPassphrase("Snapshot key passphrase: ")
			if err != nil {
				return err
			}
		}

		f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		if err := a.FetchSnapshot(name, f, passphrase); err != nil {
			f.Close()
			os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", out, err)
		}

		fmt.Printf("Wrote %s to %s\n", strings.TrimSuffix(name, app.EncryptedSuffix), out)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Generate an age key pair and encrypt snapshots")
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotFetchCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(fanoutCmd)
	fanoutCmd.Flags().String("type", "file", "Item type of the shared item (file or folder)")
	fanoutCmd.Flags().Int64("source", 0, "File id of the shared item")
	fanoutCmd.Flags().String("owner", "", "User whose shares start the fan-out")
	fanoutCmd.Flags().String("actor", "", "Acting user, used when --owner is empty")
	fanoutCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(repairCmd)
	repairCmd.Flags().Bool("dry-run", false, "Only count orphan shares")
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(snapshotCmd)
}
