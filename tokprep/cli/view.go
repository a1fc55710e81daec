package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

func newViewCmd(env *loader) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "view [ids...]",
		Short: "Print token ids, their tokens and the decoded text",
		Example: `  tokprep view 101 7592 102
  tokprep view --text "hello world"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := env.load()
			if err != nil {
				return err
			}

			var ids []int
			if text != "" {
				out, err := preprocess.Tokenize(preprocess.Record{preprocess.FieldText: text}, rt.tok, rt.pcfg)
				if err != nil {
					return err
				}
				rows, err := out.IDs()
				if err != nil {
					return err
				}
				ids = rows[0]
			} else {
				ids, err = parseIDs(args)
				if err != nil {
					return err
				}
			}
			return preprocess.FprintTokens(cmd.OutOrStdout(), rt.tok, ids)
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "tokenize text with the configured settings and view the result")
	return cmd
}

func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, arg := range args {
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ',' || r == ' ' || r == '[' || r == ']' }) {
			id, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("invalid token id %q: %w", field, err)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no token ids given")
	}
	return ids, nil
}
