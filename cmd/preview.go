package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lernzeit/templatebank/internal/authoring"
	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/dedup"
	"github.com/lernzeit/templatebank/internal/generator"
	"github.com/lernzeit/templatebank/internal/llm"
	"github.com/lernzeit/templatebank/internal/pipeline"
	"github.com/lernzeit/templatebank/internal/store"
	"github.com/lernzeit/templatebank/internal/template"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Instantiate a template repeatedly and print the questions",
	Long: `Instantiate a template into concrete questions under a throwaway session.

A developer tool for evaluating template quality: each instantiation runs
the full generation, validation and dedup flow, so rejections show up the
same way they would in production.

With --author the template is first generated by the configured LLM for
the given (grade, quarter, domain) cell, saved, and then previewed.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().String("template", "", "Template ID")
	previewCmd.Flags().Int("count", 5, "Number of instantiations to attempt")
	previewCmd.Flags().Bool("author", false, "Author a new template and preview it")
	previewCmd.Flags().Int("grade", 0, "Grade for --author")
	previewCmd.Flags().String("quarter", "", "Quarter Q1..Q4 for --author")
	previewCmd.Flags().String("domain", "", "Domain for --author, e.g. arithmetic")
	previewCmd.Flags().String("subcategory", "", "Subcategory for --author")
}

func runPreview(cmd *cobra.Command, args []string) error {
	templateID, _ := cmd.Flags().GetString("template")
	count, _ := cmd.Flags().GetInt("count")
	author, _ := cmd.Flags().GetBool("author")

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
	rules := curriculum.NewCache(st.Rules(), 0)

	var tpl *template.Template
	switch {
	case author:
		tpl, err = authorPreviewTemplate(cmd, st, rules)
		if err != nil {
			return err
		}
	case templateID != "":
		tpl, err = st.Templates().Get(ctx, templateID)
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}
	default:
		return errors.New("either --template or --author is required")
	}

	gen := generator.New(rules, generator.DefaultConfig(), nil)
	pipe := pipeline.New(gen, rules, st.Instances(), st.Sessions(), newLogger())

	// A fresh session per preview run so earlier runs don't exhaust the
	// combination space.
	session := store.SessionKey{
		UserID:   "preview-" + uuid.NewString(),
		Grade:    tpl.Grade,
		Category: tpl.Subcategory,
	}

	fmt.Printf("Template: %s (grade %d %s %s, %s)\n",
		tpl.ID, tpl.Grade, tpl.Quarter, tpl.Domain, tpl.Type)
	fmt.Printf("Attempting %d instantiations...\n\n", count)

	accepted := 0
	for i := 1; i <= count; i++ {
		fmt.Printf("── Instantiation %d/%d ──\n", i, count)

		q, err := pipe.Instantiate(ctx, tpl, session)
		if err != nil {
			printPreviewError(err)
			fmt.Println()
			continue
		}
		accepted++

		fmt.Println(q.Prompt)
		if q.Type == template.TypeMultipleChoice {
			for j, d := range q.Distractors {
				fmt.Printf("  %d) %s\n", j+1, d)
			}
		}
		if len(q.Items) > 0 {
			fmt.Println("  Items:", strings.Join(q.Items, " | "))
		}
		fmt.Printf("Solution: %s\n", q.Solution)
		if q.Explanation != "" {
			fmt.Printf("Explanation: %s\n", q.Explanation)
		}
		fmt.Println()
	}

	fmt.Printf("── Summary: %d/%d accepted ──\n", accepted, count)
	return nil
}

// authorPreviewTemplate asks the configured LLM for a fresh template in
// the cell given by --grade/--quarter/--domain and saves it.
func authorPreviewTemplate(cmd *cobra.Command, st *store.Store, rules *curriculum.Cache) (*template.Template, error) {
	grade, _ := cmd.Flags().GetInt("grade")
	quarterVal, _ := cmd.Flags().GetString("quarter")
	domainVal, _ := cmd.Flags().GetString("domain")
	subcategory, _ := cmd.Flags().GetString("subcategory")

	quarter := curriculum.Quarter(strings.ToUpper(quarterVal))
	if !curriculum.ValidQuarter(quarter) {
		return nil, fmt.Errorf("invalid quarter %q: must be Q1..Q4", quarterVal)
	}
	domain := curriculum.Domain(domainVal)

	ctx := cmd.Context()
	rule, err := rules.Rule(ctx, grade, quarter, domain)
	if err != nil {
		return nil, fmt.Errorf("load curriculum rule: %w", err)
	}

	provider, err := llm.NewProvider(ctx, llm.ConfigFromEnv(), newLogger())
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}

	existingTpls, err := st.Templates().ByCell(ctx, grade, quarter, domain)
	if err != nil {
		return nil, fmt.Errorf("load existing templates: %w", err)
	}
	existing := make([]string, 0, len(existingTpls))
	for _, t := range existingTpls {
		existing = append(existing, t.Prompt)
	}

	svc := authoring.New(provider, authoring.DefaultConfig())
	tpl, err := svc.Author(ctx, authoring.Request{
		Grade:       grade,
		Quarter:     quarter,
		Domain:      domain,
		Subcategory: subcategory,
		Type:        template.TypeMultipleChoice,
		Difficulty:  template.DifficultyMedium,
		Rule:        rule,
		Existing:    existing,
	})
	if err != nil {
		return nil, fmt.Errorf("author template: %w", err)
	}
	if err := st.Templates().Save(ctx, tpl); err != nil {
		return nil, fmt.Errorf("save authored template: %w", err)
	}

	fmt.Printf("Authored template %s\n\n", tpl.ID)
	return tpl, nil
}

func printPreviewError(err error) {
	var rej *pipeline.RejectionError
	var dup *pipeline.DuplicateError
	var exh *generator.ExhaustionError

	switch {
	case errors.As(err, &rej):
		fmt.Printf("rejected (score %.2f):\n", rej.Result.Score)
		for _, e := range rej.Result.Errors {
			fmt.Println("  error:", e)
		}
		for _, w := range rej.Result.Warnings {
			fmt.Println("  warning:", w)
		}
	case errors.As(err, &dup):
		fmt.Println("rejected as duplicate:", dedup.Describe(dup.Result))
	case errors.As(err, &exh):
		fmt.Println("constraint space exhausted:", exh.Error())
	default:
		fmt.Println("failed:", err)
	}
}
