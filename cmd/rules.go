package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/store"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and edit curriculum rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List curriculum rules for a grade",
	RunE: func(cmd *cobra.Command, args []string) error {
		grade, _ := cmd.Flags().GetInt("grade")

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
		found := 0

		fmt.Printf("%-8s  %-16s  %10s  %10s  %s\n",
			"Quarter", "Domain", "Min", "Max", "Operations")
		fmt.Println(strings.Repeat("─", 64))

		for _, q := range curriculum.AllQuarters() {
			rules, err := st.Rules().RulesFor(ctx, grade, q)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			for _, r := range rules {
				fmt.Printf("%-8s  %-16s  %10d  %10d  %s\n",
					r.Quarter, r.Domain, r.MinNumber, r.MaxNumber, strings.Join(r.Operations, " "))
				found++
			}
		}

		if found == 0 {
			fmt.Printf("No rules for grade %d.\n", grade)
		}
		return nil
	},
}

var rulesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace one curriculum rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		grade, _ := cmd.Flags().GetInt("grade")
		quarterVal, _ := cmd.Flags().GetString("quarter")
		domainVal, _ := cmd.Flags().GetString("domain")
		minNum, _ := cmd.Flags().GetInt("min")
		maxNum, _ := cmd.Flags().GetInt("max")
		opsVal, _ := cmd.Flags().GetString("ops")

		quarter := curriculum.Quarter(strings.ToUpper(quarterVal))
		if !curriculum.ValidQuarter(quarter) {
			return fmt.Errorf("invalid quarter %q: must be Q1..Q4", quarterVal)
		}
		if maxNum < minNum {
			return fmt.Errorf("max %d is below min %d", maxNum, minNum)
		}

		var ops []string
		for _, op := range strings.Split(opsVal, ",") {
			op = strings.TrimSpace(op)
			switch op {
			case curriculum.OpAdd, curriculum.OpSub, curriculum.OpMul, curriculum.OpDiv:
				ops = append(ops, op)
			case "":
			default:
				return fmt.Errorf("invalid operation %q: must be one of + - * /", op)
			}
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		rule := curriculum.Rule{
			Grade:      grade,
			Quarter:    quarter,
			Domain:     curriculum.Domain(domainVal),
			MinNumber:  minNum,
			MaxNumber:  maxNum,
			Operations: ops,
		}
		if err := st.Rules().Save(cmd.Context(), rule); err != nil {
			return fmt.Errorf("save rule: %w", err)
		}

		fmt.Println("Saved:", rule.String())
		return nil
	},
}

func init() {
	rulesListCmd.Flags().Int("grade", 1, "Grade to list rules for")

	rulesSetCmd.Flags().Int("grade", 0, "Grade (required)")
	rulesSetCmd.Flags().String("quarter", "", "Quarter Q1..Q4 (required)")
	rulesSetCmd.Flags().String("domain", "", "Domain, e.g. arithmetic (required)")
	rulesSetCmd.Flags().Int("min", 0, "Minimum number")
	rulesSetCmd.Flags().Int("max", 0, "Maximum number (required)")
	rulesSetCmd.Flags().String("ops", "", "Comma-separated operations, e.g. +,-")
	_ = rulesSetCmd.MarkFlagRequired("grade")
	_ = rulesSetCmd.MarkFlagRequired("quarter")
	_ = rulesSetCmd.MarkFlagRequired("domain")
	_ = rulesSetCmd.MarkFlagRequired("max")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesSetCmd)
}
