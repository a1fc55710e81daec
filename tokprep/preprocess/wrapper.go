package preprocess

import (
	"errors"
	"fmt"
	"maps"
)

var (
	ErrMissingText = errors.New("record has no text field")
	ErrInvalidText = errors.New("record text must be a string or a sequence of strings")
)

// FieldText is the record field the wrapper tokenizes.
const FieldText = "text"

// Record is one dataset row, or one batch whose columns hold slices.
type Record map[string]any

// TextOf extracts the text field of rec.
func TextOf(rec Record) (Text, error) {
	raw, ok := rec[FieldText]
	if !ok {
		return Text{}, ErrMissingText
	}
	switch v := raw.(type) {
	case string:
		return Single(v), nil
	case []string:
		return Batch(v...), nil
	case []any:
		ss := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return Text{}, fmt.Errorf("%w: element %d is %T", ErrInvalidText, i, item)
			}
			ss[i] = s
		}
		return Batch(ss...), nil
	default:
		return Text{}, fmt.Errorf("%w: got %T", ErrInvalidText, raw)
	}
}

// NewRequest builds the tokenizer request for text under cfg.
func NewRequest(text Text, cfg Config) Request {
	return Request{
		Text:           text,
		TruncationSide: cfg.TruncationSide,
		Truncation:     cfg.Truncation,
		Padding:        cfg.Padding,
		MaxLength:      cfg.MaxLength,
		ReturnLength:   cfg.ReturnLength,
	}
}

// Tokenize runs tok on the text field of rec using cfg and returns a copy of the
// tokenizer output. Tokenizer errors are returned unchanged.
func Tokenize(rec Record, tok Tokenizer, cfg Config) (Output, error) {
	text, err := TextOf(rec)
	if err != nil {
		return nil, err
	}
	out, err := tok.Encode(NewRequest(text, cfg))
	if err != nil {
		return nil, err
	}
	return maps.Clone(out), nil
}

// RecordTokenizer binds a tokenizer and a configuration for repeated use.
type RecordTokenizer struct {
	cfg Config
	tok Tokenizer
}

// NewRecordTokenizer returns a RecordTokenizer over tok and cfg.
func NewRecordTokenizer(cfg Config, tok Tokenizer) *RecordTokenizer {
	return &RecordTokenizer{cfg: cfg, tok: tok}
}

// Config returns the bound configuration.
func (r *RecordTokenizer) Config() Config { return r.cfg }

// Tokenize is Tokenize(rec, r.tok, r.cfg).
func (r *RecordTokenizer) Tokenize(rec Record) (Output, error) {
	return Tokenize(rec, r.tok, r.cfg)
}
