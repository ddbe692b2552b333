// ABOUTME: Config command group for inspecting gateway settings
// ABOUTME: "config check" reports which upstream webhooks are configured

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/famquest/gateway/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect gateway configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check webhook configuration",
	Long: `Load configuration the way serve does and report each upstream webhook.

Exit codes:
  0 - All webhooks configured
  1 - One or more webhooks missing
  2 - Error (configuration could not be loaded)`,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runConfigCheck(os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigCheck loads configuration and returns the exit code
func runConfigCheck(w io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	missing := cfg.Upstreams.Missing()

	if IsJSONOutput() {
		fmt.Fprintln(w, formatConfigJSON(cfg, missing))
	} else {
		fmt.Fprintln(w, formatConfigHuman(cfg, missing))
	}

	if len(missing) > 0 {
		return 1
	}
	return 0
}

func formatConfigHuman(cfg *config.Config, missing []*config.MissingURLError) string {
	out := fmt.Sprintf("Environment:  %s\nPort:         %s\n\nWebhooks:\n", cfg.Environment, cfg.Port)
	missingKey := make(map[config.UpstreamFamily]string, len(missing))
	for _, m := range missing {
		missingKey[m.Family] = m.Key
	}
	for _, family := range config.Families() {
		if key, ok := missingKey[family]; ok {
			out += fmt.Sprintf("  ✗ %-18s set %s\n", family, key)
		} else {
			out += fmt.Sprintf("  ✓ %-18s configured\n", family)
		}
	}
	if len(missing) == 0 {
		out += "\nAll webhooks configured"
	} else {
		out += fmt.Sprintf("\n%d webhook(s) missing", len(missing))
	}
	return out
}

func formatConfigJSON(cfg *config.Config, missing []*config.MissingURLError) string {
	keys := make([]string, 0, len(missing))
	for _, m := range missing {
		keys = append(keys, m.Key)
	}
	output := map[string]interface{}{
		"environment":  cfg.Environment,
		"port":         cfg.Port,
		"upstreams":    cfg.Upstreams.Status(),
		"missing_keys": keys,
		"passed":       len(missing) == 0,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
