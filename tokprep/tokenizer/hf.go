package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"github.com/sugarme/tokenizer/processor"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

// HFOptions configures a sugarme-backed tokenizer.
type HFOptions struct {
	PadToken       string
	ModelMaxLength int
}

// HF wraps a sugarme/tokenizer pipeline. Truncation and padding configured on the
// underlying tokenizer are cleared; they are applied per request instead.
type HF struct {
	t      *tk.Tokenizer
	policy policy
}

// LoadHF loads a HuggingFace tokenizer.json.
func LoadHF(path string, opts HFOptions) (*HF, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: tokenizer path is required", preprocess.ErrInvalidConfig)
	}
	t, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return newHF(t, opts), nil
}

// NewHFWordPiece builds a BERT-style WordPiece pipeline from vocab.txt, or from a
// directory holding one.
func NewHFWordPiece(vocabPath string, opts HFOptions) (*HF, error) {
	if fi, err := os.Stat(vocabPath); err == nil && fi.IsDir() {
		vocabPath = filepath.Join(vocabPath, "vocab.txt")
	}
	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("load wordpiece vocab %s: %w", vocabPath, err)
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	cls, ok := t.TokenToId("[CLS]")
	if !ok {
		return nil, fmt.Errorf("%w: vocab has no [CLS] token", preprocess.ErrInvalidConfig)
	}
	sep, ok := t.TokenToId("[SEP]")
	if !ok {
		return nil, fmt.Errorf("%w: vocab has no [SEP] token", preprocess.ErrInvalidConfig)
	}
	t.WithPostProcessor(processor.NewBertProcessing(processor.PostToken{Value: "[SEP]", Id: sep}, processor.PostToken{Value: "[CLS]", Id: cls}))

	return newHF(t, opts), nil
}

func newHF(t *tk.Tokenizer, opts HFOptions) *HF {
	t.WithTruncation(nil)
	t.WithPadding(nil)

	h := &HF{t: t}
	pad := padSpec{}
	if opts.PadToken != "" {
		if id, ok := t.TokenToId(opts.PadToken); ok {
			pad = padSpec{id: id, ok: true}
		}
	}
	h.policy = policy{
		modelMaxLength: opts.ModelMaxLength,
		pad:            pad,
		encode:         h.encodeOne,
	}
	return h
}

func (h *HF) Encode(req preprocess.Request) (preprocess.Output, error) {
	return h.policy.run(req)
}

func (h *HF) ConvertIDsToTokens(ids []int) ([]string, error) {
	return convertIDs(ids, h.t.IdToToken)
}

func (h *HF) Decode(ids []int) (string, error) {
	for _, id := range ids {
		if _, ok := h.t.IdToToken(id); !ok {
			return "", fmt.Errorf("%w: %d", ErrUnknownID, id)
		}
	}
	return h.t.Decode(ids, false), nil
}

func (h *HF) encodeOne(text string) (sequence, error) {
	enc, err := h.t.EncodeSingle(text, true)
	if err != nil {
		return sequence{}, err
	}
	seq := sequence{
		ids:     append([]int(nil), enc.Ids...),
		typeIDs: make([]int, len(enc.Ids)),
		special: make([]bool, len(enc.Ids)),
	}
	copy(seq.typeIDs, enc.TypeIds)
	for i := range seq.special {
		if i < len(enc.SpecialTokenMask) {
			seq.special[i] = enc.SpecialTokenMask[i] == 1
		}
	}
	return seq, nil
}
