package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/readaloud/internal/config"
)

const defaultConfig = `# where chapters and settings are kept
store:
  # badger, sqlite or memory
  backend: "badger"
  # defaults to the user data directory
  # dir: "~/.local/share/readaloud"

speech:
  # auto, espeak, piper or mock
  engine: "auto"
  language: "en"
  # voice: "en-us"
  # speaking rate (0.1 to 3.0) and pitch (0.0 to 2.0)
  rate: 1.0
  pitch: 1.0

  espeak:
    # empty looks for espeak-ng, then espeak
    binary: ""

  piper:
    binary: "piper"
    # model: "~/.local/share/piper/en_US-lessac-medium.onnx"
    # config: "~/.local/share/piper/en_US-lessac-medium.onnx.json"
    speaker: 0
    sample_rate: 22050

playback:
  # auto, desktop, android or ios
  platform: "auto"
  # continue with the next chapter when one ends
  chain: true
  # read markdown as plain text
  strip_markdown: true

  delays:
    advance: "50ms"
    scrub: "300ms"
    android_restart: "600ms"
    ios_restart: "150ms"

  # restart speech when the engine goes quiet without saying so
  monitor:
    interval: "2s"
    grace: "3s"
    max_recoveries: 3
    recovery_window: "1m"
`

var (
	configPrint bool

	configCmd = &cobra.Command{
		Use:     "config",
		Hidden:  false,
		Short:   "Edit the readaloud config file",
		Long:    paragraph(fmt.Sprintf("\n%s the readaloud config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
		Example: paragraph("readaloud config\nreadaloud config --print\nreadaloud config --config path/to/config.yml"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPrint {
				return printConfig(cmd.OutOrStdout())
			}

			if err := ensureConfigFile(); err != nil {
				return err
			}

			c, err := editor.Cmd("readaloud", configFile)
			if err != nil {
				return fmt.Errorf("unable to set config file: %w", err)
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to run command: %w", err)
			}

			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("unable to read config file: %w", err)
			}
			if _, err := config.Load(viper.GetViper()); err != nil {
				fmt.Println(faint("Warning: " + err.Error()))
			}

			fmt.Println("Wrote config file to:", configFile)
			return nil
		},
	}
)

// printConfig writes the effective configuration, defaults included.
func printConfig(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(viper.AllSettings()); err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}
	return enc.Close()
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile) //nolint:gosec
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

func init() {
	configCmd.Flags().BoolVarP(&configPrint, "print", "p", false, "print the effective configuration instead of editing it")
}
