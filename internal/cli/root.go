// Package cli implements the agentcore administrative commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcliao/agentcore/internal/agent"
	"github.com/rcliao/agentcore/internal/config"
	"github.com/rcliao/agentcore/internal/logger"
)

var (
	configDir  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "Inspect and manage an agent's memory",
	Long:  "Administrative CLI for the agent memory core: long-term memories, session summaries and composed context.",
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", "", "Config directory (default: ~/.agentcore)")
	flags.StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	flags.String("agent", "", "Agent id (overrides agent.id)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-file", "", "Also write JSON logs to this file")
}

// loadConfig resolves defaults, config.toml, AGENTCORE_* env and flags.
func loadConfig() (*viper.Viper, *config.Config, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, nil, err
	}
	flags := RootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"agent.id":  "agent",
		"log.debug": "debug",
		"log.file":  "log-file",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, err
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	return v, cfg, nil
}

// newLogger writes to stderr and, with log.file set, also writes JSON
// records to that file.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	stderr := logger.New(
		logger.WithDebug(cfg.Log.Debug),
		logger.WithPretty(cfg.Log.Pretty),
		logger.WithWriter(os.Stderr),
	)
	if cfg.Log.File == "" {
		return stderr, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	file := logger.New(logger.WithDebug(cfg.Log.Debug), logger.WithJSON(true), logger.WithWriter(f))
	return logger.Multi(stderr, file), f, nil
}

// openRuntime builds the runtime for a command. The returned func stops it.
func openRuntime(cmd *cobra.Command) (*agent.Runtime, func()) {
	_, cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		exitErr("logger", err)
	}
	rt, err := agent.FromConfig(cmd.Context(), cfg, log)
	if err != nil {
		closer.Close()
		exitErr("open runtime", err)
	}
	return rt, func() {
		if err := rt.Stop(); err != nil {
			log.Warn("stop runtime", "error", err)
		}
		closer.Close()
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// readContent returns the positional args joined, or stdin when piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
