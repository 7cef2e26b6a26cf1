package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"armback/internal/app"
	"armback/internal/backup"
	"armback/internal/config"
	"armback/internal/remote"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Backup", "Sync").
func newApp(operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

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

var rootCmd = &cobra.Command{
	Use:   "armback",
	Short: "Backup and restore tool for the equipment checkout tracker",
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
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		deviceID := uuid.New().String()
		cfg := config.NewConfig(deviceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
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
		fmt.Printf("Device ID: %s\n", cfg.DeviceID)
		fmt.Printf("Operator:  %s\n", cfg.Operator)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Store:     %s\n", cfg.Store.Type)
		fmt.Printf("Remote:    %s\n", cfg.Remote.Type)
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a remote access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if cfg.Remote.TokenPath == "" {
			return fmt.Errorf("remote type %q does not use a stored token", cfg.Remote.Type)
		}

		fmt.Print("Access token: ")
		token, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if len(token) == 0 {
			return fmt.Errorf("empty token")
		}

		if err := remote.SaveToken(cfg.Remote.TokenPath, string(token)); err != nil {
			return err
		}
		fmt.Printf("Token stored at %s\n", cfg.Remote.TokenPath)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored remote access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if cfg.Remote.TokenPath == "" {
			return fmt.Errorf("remote type %q does not use a stored token", cfg.Remote.Type)
		}
		if err := remote.DiscardToken(cfg.Remote.TokenPath); err != nil {
			return err
		}
		fmt.Println("Token discarded.")
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export a backup archive to a local file",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.BackupToFile(output)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore FILE",
	Short: "Restore from a backup archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.RestoreFromFile(args[0])
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored snapshot version %s (%d collections)\n", res.Version, res.Collections)
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run an automatic backup check",
	RunE: func(cmd *cobra.Command, args []string) error {
		now, _ := cmd.Flags().GetBool("now")

		a, err := newApp("Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		msg, err := syncOutcome(a.Sync(cmd.Context(), now))
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

// syncOutcome turns a scheduling check's result into the message to print.
// A cycle already in flight is a no-op, not a failure.
func syncOutcome(res *backup.CycleResult, err error) (string, error) {
	switch {
	case errors.Is(err, backup.ErrCycleInFlight):
		return "Backup cycle already running.", nil
	case err != nil:
		return "", err
	case !res.Ran:
		return "Backup not due.", nil
	case res.State == backup.StateDone:
		return fmt.Sprintf("Uploaded %s (file id %s)", res.ArchiveName, res.UploadedID), nil
	default:
		return "", fmt.Errorf("backup cycle failed: %w", res.Err)
	}
}

// remote command
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect remotely stored archives",
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remote archives, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRemote")
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.ListRemote(cmd.Context())
		if err != nil {
			return err
		}

		if len(files) == 0 {
			fmt.Println("No remote archives.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %s  %d  %s\n",
				f.ID,
				f.CreatedTime.Format("2006-01-02 15:04:05"),
				f.Size,
				f.Name,
			)
		}
		return nil
	},
}

var remoteFetchCmd = &cobra.Command{
	Use:   "fetch FILE_ID",
	Short: "Download a remote archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = args[0] + ".zip"
		}

		a, err := newApp("FetchRemote")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.FetchRemote(cmd.Context(), args[0], output); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", output)
		return nil
	},
}

// policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage the automatic backup policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View the automatic backup policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PolicyShow")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Policy()
		if err != nil {
			return err
		}

		fmt.Printf("Enabled:   %t\n", p.Enabled)
		fmt.Printf("Frequency: %s\n", p.Frequency)
		if p.LastBackupAt != nil {
			fmt.Printf("Last:      %s\n", p.LastBackupAt.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last:      never")
		}
		if p.RemoteFolderID != "" {
			fmt.Printf("Folder:    %s\n", p.RemoteFolderID)
		}
		return nil
	},
}

var policySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the automatic backup policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, _ := cmd.Flags().GetBool("enabled")
		freqStr, _ := cmd.Flags().GetString("frequency")

		freq, err := backup.ParseFrequency(freqStr)
		if err != nil {
			return err
		}

		a, err := newApp("PolicySet")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.SetPolicy(enabled, freq)
		if err != nil {
			return err
		}
		fmt.Printf("Policy updated: enabled=%t frequency=%s\n", p.Enabled, p.Frequency)
		return nil
	},
}

// audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View backup and restore audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("AuditLog")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.AuditLog(limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No audit entries.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-7s  %-12s  %s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"),
				e.Action,
				e.ActorName,
				e.Details,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// remote subcommands
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteFetchCmd)
	remoteFetchCmd.Flags().StringP("output", "o", "", "Output file path")

	// policy subcommands
	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policySetCmd)
	policySetCmd.Flags().Bool("enabled", true, "Enable automatic backups")
	policySetCmd.Flags().String("frequency", "daily", "Backup frequency: never, on_boot, daily, weekly, monthly")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("output", "o", "", "Output file path (default: the archive's own name)")
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("now", false, "Run a cycle even if not due")
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
}
