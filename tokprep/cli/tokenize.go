package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tokprep/tokprep/dataset"
	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

const maxLineBytes = 16 << 20

func newTokenizeCmd(env *loader) *cobra.Command {
	var inPath, outPath string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "tokenize",
		Short: "Tokenize JSONL records and write them with token columns added",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := env.load()
			if err != nil {
				return err
			}
			ds, err := readRecords(cmd.InOrStdin(), inPath)
			if err != nil {
				return err
			}

			opts := dataset.MapOptions{
				Batched:   true,
				BatchSize: rt.cfg.Dataset.BatchSize,
				Workers:   rt.cfg.Dataset.Workers,
				Logger:    &rt.logger,
			}
			if !quiet {
				bar := progressbar.NewOptions(ds.Len(),
					progressbar.OptionSetDescription("  Tokenizing"),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionClearOnFinish(),
				)
				opts.Progress = func(done int) { _ = bar.Set(done) }
				defer bar.Finish()
			}

			mapped, err := ds.Map(cmd.Context(), preprocess.NewRecordTokenizer(rt.pcfg, rt.tok).Tokenize, opts)
			if err != nil {
				return err
			}
			return writeRecords(cmd.OutOrStdout(), outPath, mapped)
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input JSONL file (default stdin)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output JSONL file (default stdout)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable the progress bar")
	return cmd
}

// readRecords decodes one JSON object per line from path, or from stdin when path is empty.
func readRecords(stdin io.Reader, path string) (*dataset.Dataset, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var rows []preprocess.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec preprocess.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return dataset.New(rows), nil
}

func writeRecords(stdout io.Writer, path string, ds *dataset.Dataset) (err error) {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := 0; i < ds.Len(); i++ {
		if err := enc.Encode(ds.Row(i)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return bw.Flush()
}
