package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strands-agents/sdk-go/internal/config"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models",
	Long:  `List the models of every provider with credentials, optionally filtered by provider.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir("")
	if err != nil {
		return err
	}
	paths := config.GetPaths()
	cfg, err := loadConfig(workDir)
	if err != nil {
		return err
	}
	initLogging(cfg, paths)

	backends, err := provider.InitializeBackends(context.Background(), cfg)
	if err != nil {
		return err
	}

	var filter string
	if len(args) > 0 {
		filter = args[0]
	}
	return printModels(cmd, backends.AllModels(), filter)
}

func printModels(cmd *cobra.Command, models []types.Model, filter string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tMAX OUTPUT\tFEATURES")
	for _, m := range models {
		if filter != "" && m.ProviderID != filter {
			continue
		}
		var features []string
		if m.SupportsTools {
			features = append(features, "tools")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.ProviderID, m.ID, formatTokens(m.ContextLength), formatTokens(m.MaxOutputTokens), strings.Join(features, ","))
	}
	return w.Flush()
}

func formatTokens(n int) string {
	switch {
	case n <= 0:
		return "-"
	case n >= 1000000:
		return fmt.Sprintf("%dM", n/1000000)
	case n >= 1000:
		return fmt.Sprintf("%dK", n/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
