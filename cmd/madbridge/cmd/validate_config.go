package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/k4hvh/madbridge/internal/config"
	"github.com/k4hvh/madbridge/internal/modifier"
	"github.com/k4hvh/madbridge/internal/plugin"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the ambient config and rules document without starting the pipeline",
	RunE:  runValidateConfig,
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	log := setupLogger(logLevel, logFormat)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ruleConfigs, err := config.LoadRules(rulesFile)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	modifiers := modifier.NewHost(nil)
	modifier.RegisterBuiltins(modifiers)
	plugins := plugin.NewHost(nil)
	if err := config.Validate(ruleConfigs, modifiers, plugins, log); err != nil {
		return fmt.Errorf("rules cross-reference check: %w", err)
	}

	fmt.Printf("config OK: gcs %s:%d, router %s:%d\n",
		cfg.Network.GCSListenAddress, cfg.Network.GCSListenPort,
		cfg.Network.RouterAddress, cfg.Network.RouterPort)
	fmt.Printf("rules OK: %d rule(s) loaded from %s\n", len(ruleConfigs), rulesFile)
	return nil
}
