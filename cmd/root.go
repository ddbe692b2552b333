// ABOUTME: Root command for the famquest-gateway binary
// ABOUTME: Holds flags shared by serve, health and config check and resolves the gateway URL

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X github.com/famquest/gateway/cmd.Version=...".
var Version = "dev"

const (
	gatewayURLEnv     = "FAMQUEST_GATEWAY_URL"
	defaultGatewayURL = "http://localhost:8080"
)

var (
	gatewayURL string
	envFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "famquest-gateway",
	Short: "FamQuest web gateway",
	Long: `famquest-gateway serves the FamQuest web app: it gates dashboard pages on the
session cookie and relays API calls to the workflow backend's webhooks.

Environment Variables:
  FAMQUEST_GATEWAY_URL  Gateway checked by the health command (default: http://localhost:8080)
  ENV_FILE              Dotenv file read by serve and config check (default: .env)`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: applyEnvFile,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&gatewayURL, "gateway-url", "", "Gateway URL for the health command (overrides "+gatewayURLEnv+")")
	flags.StringVar(&envFile, "env-file", "", "Dotenv file to load (overrides ENV_FILE)")
	flags.BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// applyEnvFile points configuration loading at --env-file when it is given.
func applyEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); err != nil {
		return fmt.Errorf("--env-file: %w", err)
	}
	return os.Setenv("ENV_FILE", envFile)
}

// GatewayURL resolves the gateway the health command calls: flag, then environment, then the local default.
func GatewayURL() string {
	switch {
	case gatewayURL != "":
		return gatewayURL
	case os.Getenv(gatewayURLEnv) != "":
		return os.Getenv(gatewayURLEnv)
	default:
		return defaultGatewayURL
	}
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}
