package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

const DefaultTiktokenEncoding = "cl100k_base"

var offlineLoader sync.Once

// TiktokenOptions configures a BPE tokenizer. PadID < 0 means no padding token.
type TiktokenOptions struct {
	Encoding       string
	PadID          int
	ModelMaxLength int
}

// Tiktoken is a tiktoken BPE tokenizer. Encodings load lazily from the
// embedded offline BPE files on first use.
type Tiktoken struct {
	encoding string
	policy   policy

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktoken returns a tokenizer for opts.Encoding (cl100k_base when empty).
func NewTiktoken(opts TiktokenOptions) *Tiktoken {
	if opts.Encoding == "" {
		opts.Encoding = DefaultTiktokenEncoding
	}
	t := &Tiktoken{encoding: opts.Encoding}
	pad := padSpec{}
	if opts.PadID >= 0 {
		pad = padSpec{id: opts.PadID, ok: true}
	}
	t.policy = policy{
		modelMaxLength: opts.ModelMaxLength,
		pad:            pad,
		encode:         t.encodeOne,
	}
	return t
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		offlineLoader.Do(func() {
			tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		})
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *Tiktoken) Encode(req preprocess.Request) (preprocess.Output, error) {
	if err := t.init(); err != nil {
		return nil, err
	}
	return t.policy.run(req)
}

func (t *Tiktoken) ConvertIDsToTokens(ids []int) ([]string, error) {
	if err := t.init(); err != nil {
		return nil, err
	}
	return convertIDs(ids, t.lookup)
}

func (t *Tiktoken) Decode(ids []int) (string, error) {
	if err := t.init(); err != nil {
		return "", err
	}
	for _, id := range ids {
		if _, ok := t.lookup(id); !ok {
			return "", fmt.Errorf("%w: %d", ErrUnknownID, id)
		}
	}
	return t.enc.Decode(ids), nil
}

// lookup decodes a single id. tiktoken drops unknown ids, so an empty result means unknown.
func (t *Tiktoken) lookup(id int) (string, bool) {
	if id < 0 {
		return "", false
	}
	s := t.enc.Decode([]int{id})
	return s, s != ""
}

func (t *Tiktoken) encodeOne(text string) (sequence, error) {
	return plainSequence(t.enc.Encode(text, nil, nil)), nil
}
