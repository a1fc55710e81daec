package preprocess

import (
	"fmt"
	"io"
	"os"
	"slices"
)

// ViewTokens prints ids, their tokens and the decoded text to standard output.
func ViewTokens(tok Tokenizer, ids []int) error {
	return FprintTokens(os.Stdout, tok, ids)
}

// FprintTokens writes three labeled blocks to w: the raw ids, the token for each
// id and the decoded text. ids is not modified.
func FprintTokens(w io.Writer, tok Tokenizer, ids []int) error {
	if _, err := fmt.Fprintf(w, "input_ids:\n%v\n\n\n", ids); err != nil {
		return err
	}

	tokens, err := tok.ConvertIDsToTokens(slices.Clone(ids))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "tokenizer.convert_ids_to_tokens(input_ids):\n%q\n\n\n", tokens); err != nil {
		return err
	}

	text, err := tok.Decode(slices.Clone(ids))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "tokenizer.decode(input_ids):\n%s\n", text)
	return err
}
