package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/config"
)

func init() {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config.toml with the effective settings",
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing config.toml")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Run:   runConfigShow,
	}

	cfgCmd.AddCommand(initCmd, show)
	RootCmd.AddCommand(cfgCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	v, cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	path := filepath.Join(v.GetString("config_dir"), config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s exists (use --force to overwrite)", path))
	}
	if err := config.Save(path, cfg); err != nil {
		exitErr("config init", err)
	}
	fmt.Printf(`{"ok":true,"path":%q}`+"\n", path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	_, cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	for _, key := range []*string{&cfg.Model.APIKey, &cfg.Embedding.APIKey} {
		if *key != "" {
			*key = "***"
		}
	}
	printJSON(cfg)
}
