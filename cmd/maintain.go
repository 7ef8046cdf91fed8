package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lernzeit/templatebank/internal/authoring"
	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/llm"
	"github.com/lernzeit/templatebank/internal/maintenance"
	"github.com/lernzeit/templatebank/internal/store"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Prune weak instances, top up sparse cells and report bank health",
	RunE:  runMaintain,
}

func init() {
	maintainCmd.Flags().Int("target", 0, "Target instances per (domain, grade) cell (default 60)")
	maintainCmd.Flags().Bool("no-author", false, "Skip LLM top-up authoring; prune and score only")
}

func runMaintain(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetInt("target")
	noAuthor, _ := cmd.Flags().GetBool("no-author")

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	logger := newLogger()

	var author *authoring.Service
	if !noAuthor {
		provider, err := llm.NewProvider(ctx, llm.ConfigFromEnv(), logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
			fmt.Fprintln(os.Stderr, "Running without top-up authoring.")
		} else {
			author = authoring.New(provider, authoring.DefaultConfig())
		}
	}

	cfg := maintenance.DefaultConfig()
	if target > 0 {
		cfg.TargetPerCell = target
	}

	rules := curriculum.NewCache(st.Rules(), 0)
	svc := maintenance.New(st.Templates(), st.Instances(), rules, author, cfg, logger)

	report, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("maintenance run: %w", err)
	}

	printReport(report)
	return nil
}

func printReport(report *maintenance.Report) {
	maintenance.SortCells(report.Cells)

	fmt.Printf("%-16s  %-6s  %8s  %8s  %8s\n",
		"Domain", "Grade", "Active", "Target", "Authored")
	fmt.Println(strings.Repeat("─", 56))
	for _, c := range report.Cells {
		fmt.Printf("%-16s  %-6d  %8d  %8d  %8d\n",
			c.Domain, c.Grade, c.Active, c.Target, c.Authored)
	}
	fmt.Println(strings.Repeat("─", 56))

	fmt.Printf("Pruned:    %d\n", len(report.Pruned))
	fmt.Printf("Authored:  %d\n", report.Authored)

	h := report.Health
	fmt.Printf("Health:    %.1f/100 (coverage %.2f, quality %.2f, diversity %.2f, balance %.2f)\n",
		h.Score, h.Coverage, h.Quality, h.Diversity, h.Balance)
}
