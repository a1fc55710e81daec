package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/armon/go-radix"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

const (
	continuationPrefix = "##"
	maxCharsPerWord    = 100
)

// WordPieceOptions configures a vocab-file WordPiece tokenizer.
type WordPieceOptions struct {
	Lowercase      bool
	UnkToken       string
	ClsToken       string
	SepToken       string
	PadToken       string
	ModelMaxLength int
}

// DefaultWordPieceOptions returns BERT uncased defaults.
func DefaultWordPieceOptions() WordPieceOptions {
	return WordPieceOptions{
		Lowercase:      true,
		UnkToken:       "[UNK]",
		ClsToken:       "[CLS]",
		SepToken:       "[SEP]",
		PadToken:       "[PAD]",
		ModelMaxLength: 512,
	}
}

// WordPiece is a greedy longest-match-first WordPiece tokenizer over a vocab.txt.
// Word starts and "##" continuations live in two radix trees.
type WordPiece struct {
	vocab   map[string]int
	tokens  map[int]string
	starts  *radix.Tree
	conts   *radix.Tree
	special map[int]bool

	unkID  int
	clsID  int
	sepID  int
	framed bool

	opts   WordPieceOptions
	policy policy
}

// LoadWordPiece reads one token per line from path; the line number is the id.
// Lines are kept verbatim apart from the line ending, blank ones included.
func LoadWordPiece(path string, opts WordPieceOptions) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return NewWordPiece(tokens, opts)
}

// NewWordPiece builds a tokenizer where tokens[i] has id i.
func NewWordPiece(tokens []string, opts WordPieceOptions) (*WordPiece, error) {
	w := &WordPiece{
		vocab:   make(map[string]int, len(tokens)),
		tokens:  make(map[int]string, len(tokens)),
		starts:  radix.New(),
		conts:   radix.New(),
		special: make(map[int]bool),
		opts:    opts,
	}
	for id, tok := range tokens {
		w.vocab[tok] = id
		w.tokens[id] = tok
		if tok == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(tok, continuationPrefix); ok {
			if rest != "" {
				w.conts.Insert(rest, id)
			}
			continue
		}
		w.starts.Insert(tok, id)
	}

	unk, ok := w.vocab[opts.UnkToken]
	if !ok {
		return nil, fmt.Errorf("%w: vocab has no unknown token %q", preprocess.ErrInvalidConfig, opts.UnkToken)
	}
	w.unkID = unk
	w.special[unk] = true

	cls, clsOK := w.vocab[opts.ClsToken]
	sep, sepOK := w.vocab[opts.SepToken]
	if clsOK && sepOK {
		w.clsID, w.sepID, w.framed = cls, sep, true
		w.special[cls] = true
		w.special[sep] = true
	}

	pad := padSpec{}
	if id, ok := w.vocab[opts.PadToken]; ok {
		pad = padSpec{id: id, ok: true}
		w.special[id] = true
	}

	w.policy = policy{
		modelMaxLength: opts.ModelMaxLength,
		pad:            pad,
		encode:         w.encodeOne,
	}
	return w, nil
}

// VocabSize returns the number of tokens in the vocab.
func (w *WordPiece) VocabSize() int { return len(w.tokens) }

func (w *WordPiece) Encode(req preprocess.Request) (preprocess.Output, error) {
	return w.policy.run(req)
}

func (w *WordPiece) ConvertIDsToTokens(ids []int) ([]string, error) {
	return convertIDs(ids, func(id int) (string, bool) {
		tok, ok := w.tokens[id]
		return tok, ok
	})
}

func (w *WordPiece) Decode(ids []int) (string, error) {
	toks, err := w.ConvertIDsToTokens(ids)
	if err != nil {
		return "", err
	}
	text := strings.Join(toks, " ")
	text = strings.ReplaceAll(text, " "+continuationPrefix, "")
	return cleanupTokenization(text), nil
}

// Tokens splits text into WordPiece tokens without special-token framing.
func (w *WordPiece) Tokens(text string) []string {
	var out []string
	for _, word := range w.words(text) {
		for _, id := range w.pieces(word) {
			out = append(out, w.tokens[id])
		}
	}
	return out
}

func (w *WordPiece) encodeOne(text string) (sequence, error) {
	var ids []int
	if w.framed {
		ids = append(ids, w.clsID)
	}
	for _, word := range w.words(text) {
		ids = append(ids, w.pieces(word)...)
	}
	if w.framed {
		ids = append(ids, w.sepID)
	}

	seq := plainSequence(ids)
	if w.framed {
		seq.special[0] = true
		seq.special[len(ids)-1] = true
	}
	return seq, nil
}

// words lower-cases (optionally), splits on whitespace and isolates punctuation.
func (w *WordPiece) words(text string) []string {
	if w.opts.Lowercase {
		text = strings.ToLower(text)
	}
	var out []string
	for _, field := range strings.Fields(text) {
		start := 0
		for i, r := range field {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				if start < i {
					out = append(out, field[start:i])
				}
				out = append(out, string(r))
				start = i + len(string(r))
			}
		}
		if start < len(field) {
			out = append(out, field[start:])
		}
	}
	return out
}

// pieces returns the greedy longest-match ids for word, or [UNK] if any part is unmatched.
func (w *WordPiece) pieces(word string) []int {
	if len([]rune(word)) > maxCharsPerWord {
		return []int{w.unkID}
	}
	var ids []int
	tree := w.starts
	for rest := word; rest != ""; {
		key, val, ok := tree.LongestPrefix(rest)
		if !ok || key == "" {
			return []int{w.unkID}
		}
		ids = append(ids, val.(int))
		rest = rest[len(key):]
		tree = w.conts
	}
	return ids
}

var tokenizationCleanup = strings.NewReplacer(
	" .", ".",
	" ?", "?",
	" !", "!",
	" ,", ",",
	" ' ", "'",
	" n't", "n't",
	" 'm", "'m",
	" 's", "'s",
	" 've", "'ve",
	" 're", "'re",
)

func cleanupTokenization(s string) string {
	return tokenizationCleanup.Replace(s)
}
