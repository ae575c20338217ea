package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/internal/config"
	"go-wallpaper-fetch/internal/schedule"
)

// scheduleCmd is the parent for schedule operations. A bare
// `schedule [CRON_EXPR]` acts as `schedule set`.
var scheduleCmd = &cobra.Command{
	Use:   "schedule [CRON_EXPR]",
	Short: "Manage the crontab entry that rotates wallpapers",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScheduleSet,
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set [CRON_EXPR]",
	Short: "Install or replace the managed crontab entry",
	Long: `Installs a crontab entry that runs the wallpaper pipeline on the given
five-field cron expression. Repeated calls replace the previous entry, so
there is always at most one. Without an argument the Cron expression from
the config file is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScheduleSet,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the managed crontab entry",
	RunE:  runScheduleRemove,
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the currently installed schedule",
	RunE:  runScheduleStatus,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)
}

func runScheduleSet(cmd *cobra.Command, args []string) error {
	expr := globalConfig.Cron
	if len(args) == 1 {
		expr = args[0]
	}
	if expr == "" {
		return fmt.Errorf("%w: no expression given and Cron is not set in config", schedule.ErrInvalidExpr)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own executable path: %w", err)
	}
	command := exe + " run"
	if cfgFile != "" {
		command += " --config " + cfgFile
	}

	mgr := schedule.NewManager()
	if err := mgr.Upsert(expr, command); err != nil {
		return err
	}
	log.Infof("Schedule installed: %s %s", expr, command)

	// Persist the expression so later `schedule set` calls without an
	// argument reuse it.
	if len(args) == 1 && expr != globalConfig.Cron {
		globalConfig.Cron = expr
		if saveErr := config.SaveConfig(cfgFile, globalConfig); saveErr != nil {
			log.WithError(saveErr).Warn("Failed to persist cron expression to config")
		}
	}
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	mgr := schedule.NewManager()
	if err := mgr.Remove(); err != nil {
		return err
	}
	log.Info("Managed crontab entry removed")
	return nil
}

func runScheduleStatus(cmd *cobra.Command, args []string) error {
	mgr := schedule.NewManager()
	line, err := mgr.Status()
	if err != nil {
		return err
	}
	if line == "" {
		fmt.Println("No schedule installed.")
		return nil
	}
	fmt.Println(line)
	return nil
}
