package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"certprep-study-service/internal/domain"
	"certprep-study-service/internal/exam"

	"github.com/spf13/cobra"
)

// NewPreviewCmd prints how many questions a mock exam would draw per subject.
func NewPreviewCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Print mock-exam pool sizes per subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, cleanup, err := contentOnly(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			policy := exam.PolicyFromConfig(cfg.Exam)
			return printPreview(cmd.OutOrStdout(), exam.Preview(store.AllChapters(), policy.QuestionsPerSubject), policy)
		},
	}
}

func printPreview(out io.Writer, counts []domain.SubjectCount, policy exam.Policy) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tNAME\tAVAILABLE\tSELECTED")
	total := 0
	for _, c := range counts {
		total += c.Selected
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", c.Subject, c.Name, c.Available, c.Selected)
	}
	fmt.Fprintf(w, "TOTAL\t\t\t%d\n", total)
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "pass: every subject >= %d and average >= %d\n", policy.SubjectPassScore, policy.AveragePassScore)
	return err
}
