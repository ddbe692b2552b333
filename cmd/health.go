// ABOUTME: Health command for probing a running gateway
// ABOUTME: Checks connectivity and reports per-family upstream configuration

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/famquest/gateway/client"
	"github.com/famquest/gateway/models"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway connectivity",
	Long: `Check connectivity to a running gateway and report which upstream webhooks it has.

Exit codes:
  0 - Gateway healthy, all webhooks configured
  1 - Gateway healthy, one or more webhooks missing
  2 - Error (connectivity, invalid response)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	url := GatewayURL()
	c := client.New(url)

	resp, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(url, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(url, resp))
	}

	for _, state := range resp.Upstreams {
		if state != "configured" {
			return 1
		}
	}
	return 0
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *models.HealthResponse) string {
	out := fmt.Sprintf("Gateway:  %s\nStatus:   %s\n", url, resp.Status)
	families := make([]string, 0, len(resp.Upstreams))
	for family := range resp.Upstreams {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		out += fmt.Sprintf("  %-18s %s\n", family, resp.Upstreams[family])
	}
	return out[:len(out)-1]
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *models.HealthResponse) string {
	output := map[string]interface{}{
		"gateway":   url,
		"status":    resp.Status,
		"upstreams": resp.Upstreams,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
