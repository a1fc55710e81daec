package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tokprep/tokprep/dataset"
	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

func newStatsCmd(env *loader) *cobra.Command {
	var inPath string
	var quantile float64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report token length statistics and suggest a max_length",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := env.load()
			if err != nil {
				return err
			}
			ds, err := readRecords(cmd.InOrStdin(), inPath)
			if err != nil {
				return err
			}

			// Lengths are measured without truncation or padding.
			measure := preprocess.Config{
				TruncationSide: rt.pcfg.TruncationSide,
				ReturnLength:   true,
			}
			mapped, err := ds.Map(cmd.Context(), preprocess.NewRecordTokenizer(measure, rt.tok).Tokenize, dataset.MapOptions{
				Batched:   true,
				BatchSize: rt.cfg.Dataset.BatchSize,
				Workers:   rt.cfg.Dataset.Workers,
				Logger:    &rt.logger,
			})
			if err != nil {
				return err
			}

			lengths, err := mapped.Lengths()
			if err != nil {
				return err
			}
			summary, err := dataset.SummarizeLengths(lengths)
			if err != nil {
				return err
			}
			suggested, err := dataset.SuggestMaxLength(lengths, quantile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, summary)
			fmt.Fprintf(out, "suggested max_length (q=%.2f): %d\n", quantile, suggested)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input JSONL file (default stdin)")
	cmd.Flags().Float64VarP(&quantile, "quantile", "q", 0.99, "share of records the suggested max_length must cover")
	return cmd
}
