// Package main provides the entry point for the readaloud CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/readaloud/internal/config"
	"github.com/dgnsrekt/readaloud/internal/di"
	"github.com/dgnsrekt/readaloud/internal/notify"
	"github.com/dgnsrekt/readaloud/internal/playback"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "readaloud",
		Short: "Read markdown chapters aloud, one sentence at a time",
		Long: paragraph(
			fmt.Sprintf("\nRead markdown chapters %s, one sentence at a time.\nWith no command, reopens the chapter you were last reading.", keyword("aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("config") {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			if debug || viper.GetBool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlay(cmd, nil)
		},
	}
)

// withContainer loads the configuration, builds the container for one
// command and shuts it down when fn returns.
func withContainer(notifier notify.Notifier, fn func(i do.Injector, cfg *config.Config) error) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	injector := di.NewContainer(cfg, log.Default(), notifier)
	defer func() {
		if report := injector.Shutdown(); !report.Succeed {
			log.Error("Shutdown failed", "err", report.Error())
		}
	}()
	return fn(injector, cfg)
}

// waitForStop blocks until playback stops for good or ctx is done, in which
// case playback is stopped and its position kept.
func waitForStop(ctx context.Context, c *playback.Controller) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.Stop(playback.StopSourceUnknown)
		case <-c.Done():
			return nil
		case <-ticker.C:
			if st := c.State(); st.Status == playback.StatusStopped && !st.Pending {
				return nil
			}
		}
	}
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	config.SetDefaults(viper.GetViper())
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.PersistentFlags().String("engine", "", "speech engine: auto, espeak, piper or mock")
	rootCmd.PersistentFlags().String("store", "", "storage backend: badger, sqlite or memory")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("speech.engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("store.backend", rootCmd.PersistentFlags().Lookup("store"))

	rootCmd.AddCommand(playCmd, taskCmd, importCmd, chaptersCmd, showCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	e, err := env.ParseAs[config.Env]()
	if err != nil {
		log.Warn("Could not parse environment", "err", err)
	}

	dirs, err := config.ConfigDirs(e)
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], config.AppName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
