// file: cmd/backup.go
// version: 1.0.0
// guid: 5d6e7f8a-9b0c-4d1e-8f2a-3b4c5d6e7f8a

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jdfalk/book-search/internal/backup"
	"github.com/jdfalk/book-search/internal/config"
	"github.com/spf13/cobra"
)

var (
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Back up and restore settings and the catalog",
	}

	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Archive the settings store, catalog and search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := backup.CreateBackup(backupSources(), backupConfig(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s (%d bytes, sha256 %s)\n", info.Path, info.Size, info.Checksum)
			return nil
		},
	}

	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := backup.ListBackups(backupConfig(cmd).BackupDir)
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found.")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %8d  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size, b.Filename)
			}
			return nil
		},
	}

	backupRestoreCmd = &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore a backup into the data directory (stop the server first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			if !force {
				ok, err := promptYesNo(fmt.Sprintf("Overwrite the data in %s", config.AppConfig.DataDir))
				if err != nil || !ok {
					return err
				}
			}
			noVerify, _ := cmd.Flags().GetBool("no-verify")
			if err := backup.RestoreBackup(args[0], config.AppConfig.DataDir, !noVerify); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s into %s\n", args[0], config.AppConfig.DataDir)
			return nil
		},
	}
)

func init() {
	backupCmd.PersistentFlags().String("dir", "", "backup directory (default <data-dir>/backups)")
	backupCmd.PersistentFlags().Int("keep", 10, "number of backups to keep")
	backupRestoreCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	backupRestoreCmd.Flags().Bool("no-verify", false, "Skip checksum verification")
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
}

func backupConfig(cmd *cobra.Command) backup.BackupConfig {
	cfg := backup.DefaultBackupConfig(config.AppConfig.DataDir)
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.BackupDir = dir
	}
	if keep, _ := cmd.Flags().GetInt("keep"); keep > 0 {
		cfg.MaxBackups = keep
	}
	return cfg
}

// backupSources names each path by its base name so a restore into the
// data directory puts it back where the defaults expect it.
func backupSources() []backup.Source {
	var sources []backup.Source
	add := func(path string) {
		if path != "" {
			sources = append(sources, backup.Source{Name: filepath.Base(path), Path: path})
		}
	}
	add(config.AppConfig.DatabasePath)
	add(config.AppConfig.CatalogPath)
	if config.AppConfig.CatalogPath != "" {
		add(config.AppConfig.CatalogPath + ".bleve")
	}
	add(config.ConfigFilePath())
	add(config.AppConfig.SitesFile)
	if config.AppConfig.DataDir != "" {
		add(filepath.Join(config.AppConfig.DataDir, ".encryption_key"))
	}
	return sources
}
