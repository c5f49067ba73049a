package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/k4hvh/madbridge/internal/config"
	"github.com/k4hvh/madbridge/internal/rules"
)

var inspectRulesCmd = &cobra.Command{
	Use:   "inspect-rules",
	Short: "Print the compiled rule set in priority order",
	RunE:  runInspectRules,
}

func init() {
	rootCmd.AddCommand(inspectRulesCmd)
}

func runInspectRules(cmd *cobra.Command, args []string) error {
	ruleConfigs, err := config.LoadRules(rulesFile)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	store, err := rules.NewStore(ruleConfigs)
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIORITY\tMESSAGE TYPE\tDIRECTION\tACTIONS\tENABLED")
	for _, name := range store.Names() {
		cr, ok := store.ByName(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%v\t%v\n",
			cr.Config.Name, cr.Config.Priority, cr.Config.MessageType,
			cr.Config.Direction, cr.Config.Actions, cr.Enabled())
	}
	return w.Flush()
}
