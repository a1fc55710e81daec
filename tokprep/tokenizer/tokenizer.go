// Package tokenizer provides preprocess.Tokenizer backends: sugarme/tokenizer
// pipelines, a radix-tree WordPiece and tiktoken BPE. All share one
// truncation and padding policy.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

// Backend names accepted by New.
const (
	BackendHF          = "hf"
	BackendHFWordPiece = "hf-wordpiece"
	BackendWordPiece   = "wordpiece"
	BackendTiktoken    = "tiktoken"
)

// Options selects and configures a backend.
type Options struct {
	Backend        string
	Path           string
	Encoding       string
	PadToken       string
	PadID          int
	ModelMaxLength int
	Lowercase      bool
}

// New builds the backend named by opts.Backend.
func New(opts Options, logger zerolog.Logger) (preprocess.Tokenizer, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Backend))
	logger = logger.With().Str("backend", name).Logger()

	var (
		tok preprocess.Tokenizer
		err error
	)
	switch name {
	case BackendHF, "":
		tok, err = LoadHF(opts.Path, HFOptions{PadToken: opts.PadToken, ModelMaxLength: opts.ModelMaxLength})
	case BackendHFWordPiece:
		tok, err = NewHFWordPiece(opts.Path, HFOptions{PadToken: opts.PadToken, ModelMaxLength: opts.ModelMaxLength})
	case BackendWordPiece:
		wp := DefaultWordPieceOptions()
		wp.Lowercase = opts.Lowercase
		wp.ModelMaxLength = opts.ModelMaxLength
		if opts.PadToken != "" {
			wp.PadToken = opts.PadToken
		}
		tok, err = LoadWordPiece(opts.Path, wp)
	case BackendTiktoken:
		tok = NewTiktoken(TiktokenOptions{Encoding: opts.Encoding, PadID: opts.PadID, ModelMaxLength: opts.ModelMaxLength})
	default:
		return nil, fmt.Errorf("%w: unknown tokenizer backend %q", preprocess.ErrInvalidConfig, opts.Backend)
	}
	if err != nil {
		logger.Error().Err(err).Str("path", opts.Path).Msg("tokenizer initialization failed")
		return nil, err
	}

	logger.Debug().Str("path", opts.Path).Int("model_max_length", opts.ModelMaxLength).Msg("tokenizer ready")
	return tok, nil
}
