package tokenizer

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

var (
	ErrInvalidStrategy = errors.New("truncation strategy not applicable to single-sequence input")
	ErrCannotTruncate  = errors.New("sequence cannot be truncated to the requested length")
	ErrNoMaxLength     = errors.New("padding to max_length requires a max length")
	ErrNoPadToken      = errors.New("tokenizer has no padding token")
	ErrUnknownID       = errors.New("unknown token id")
)

// sequence is one encoded text before truncation and padding.
type sequence struct {
	ids     []int
	typeIDs []int
	special []bool
}

func (s sequence) len() int { return len(s.ids) }

// padSpec describes how a backend pads.
type padSpec struct {
	id     int
	typeID int
	ok     bool
}

// policy applies truncation, padding and output shaping on top of a backend's raw encoder.
type policy struct {
	modelMaxLength int
	pad            padSpec
	encode         func(text string) (sequence, error)
}

func (p policy) limit(req preprocess.Request) int {
	if k, ok := req.MaxLength.Get(); ok {
		return k
	}
	return p.modelMaxLength
}

func (p policy) run(req preprocess.Request) (preprocess.Output, error) {
	if req.Truncation == preprocess.OnlySecond {
		return nil, ErrInvalidStrategy
	}
	if k, ok := req.MaxLength.Get(); ok && k <= 0 {
		return nil, fmt.Errorf("%w: max_length must be positive, got %d", preprocess.ErrInvalidConfig, k)
	}
	limit := p.limit(req)

	texts := req.Text.Values()
	seqs := make([]sequence, len(texts))
	longest := 0
	for i, text := range texts {
		seq, err := p.encode(text)
		if err != nil {
			return nil, fmt.Errorf("encode text %d: %w", i, err)
		}
		if req.Truncation.Enabled() && limit > 0 && seq.len() > limit {
			seq, err = truncate(seq, limit, req.TruncationSide)
			if err != nil {
				return nil, err
			}
		}
		seqs[i] = seq
		longest = max(longest, seq.len())
	}

	target := 0
	switch req.Padding {
	case preprocess.PadLongest:
		target = longest
	case preprocess.PadMaxLength:
		if limit <= 0 {
			return nil, ErrNoMaxLength
		}
		target = limit
	}

	// length counts the row as returned, padding included.
	lengths := make([]int, len(seqs))
	ids := make([][]int, len(seqs))
	masks := make([][]int, len(seqs))
	typeIDs := make([][]int, len(seqs))
	for i, seq := range seqs {
		n := max(seq.len(), target)
		if n > seq.len() && !p.pad.ok {
			return nil, ErrNoPadToken
		}
		ids[i] = make([]int, 0, n)
		masks[i] = make([]int, 0, n)
		typeIDs[i] = make([]int, 0, n)
		ids[i] = append(ids[i], seq.ids...)
		typeIDs[i] = append(typeIDs[i], seq.typeIDs...)
		for range seq.ids {
			masks[i] = append(masks[i], 1)
		}
		for len(ids[i]) < n {
			ids[i] = append(ids[i], p.pad.id)
			typeIDs[i] = append(typeIDs[i], p.pad.typeID)
			masks[i] = append(masks[i], 0)
		}
		lengths[i] = len(ids[i])
	}

	out := preprocess.Output{}
	if req.Text.IsBatch() {
		out[preprocess.FieldInputIDs] = ids
		out[preprocess.FieldTokenTypeIDs] = typeIDs
		out[preprocess.FieldAttentionMask] = masks
		if req.ReturnLength {
			out[preprocess.FieldLength] = lengths
		}
		return out, nil
	}
	out[preprocess.FieldInputIDs] = ids[0]
	out[preprocess.FieldTokenTypeIDs] = typeIDs[0]
	out[preprocess.FieldAttentionMask] = masks[0]
	if req.ReturnLength {
		out[preprocess.FieldLength] = lengths[0]
	}
	return out, nil
}

// truncate drops non-special tokens from side until seq fits in limit.
func truncate(seq sequence, limit int, side preprocess.Side) (sequence, error) {
	drop := seq.len() - limit
	removed := make([]bool, seq.len())
	visit := func(i int) {
		if drop > 0 && !seq.special[i] {
			removed[i] = true
			drop--
		}
	}
	if side == preprocess.SideLeft {
		for i := 0; i < seq.len() && drop > 0; i++ {
			visit(i)
		}
	} else {
		for i := seq.len() - 1; i >= 0 && drop > 0; i-- {
			visit(i)
		}
	}
	if drop > 0 {
		return sequence{}, fmt.Errorf("%w: %d special tokens exceed limit %d", ErrCannotTruncate, countSpecial(seq), limit)
	}

	out := sequence{
		ids:     make([]int, 0, limit),
		typeIDs: make([]int, 0, limit),
		special: make([]bool, 0, limit),
	}
	for i := range seq.ids {
		if removed[i] {
			continue
		}
		out.ids = append(out.ids, seq.ids[i])
		out.typeIDs = append(out.typeIDs, seq.typeIDs[i])
		out.special = append(out.special, seq.special[i])
	}
	return out, nil
}

func countSpecial(seq sequence) int {
	n := 0
	for _, s := range seq.special {
		if s {
			n++
		}
	}
	return n
}

// plainSequence builds a sequence with zero type ids and no special tokens.
func plainSequence(ids []int) sequence {
	return sequence{
		ids:     ids,
		typeIDs: make([]int, len(ids)),
		special: make([]bool, len(ids)),
	}
}

func convertIDs(ids []int, lookup func(int) (string, bool)) ([]string, error) {
	out := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := lookup(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
		}
		out[i] = tok
	}
	return out, nil
}
