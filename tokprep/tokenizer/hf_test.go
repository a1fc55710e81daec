package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

func TestHFWordPieceEncode(t *testing.T) {
	h, err := NewHFWordPiece(writeVocab(t, testVocab), HFOptions{PadToken: "[PAD]", ModelMaxLength: 512})
	require.NoError(t, err)

	cfg := preprocess.Config{
		Truncation:   preprocess.LongestFirst,
		Padding:      preprocess.PadMaxLength,
		MaxLength:    preprocess.Bounded(6),
		ReturnLength: true,
	}
	out, err := preprocess.Tokenize(preprocess.Record{"text": "Hello world"}, h, cfg)
	require.NoError(t, err)

	ids, ok := out[preprocess.FieldInputIDs].([]int)
	require.True(t, ok)
	require.Len(t, ids, 6)
	assert.Equal(t, 6, out[preprocess.FieldLength])

	toks, err := h.ConvertIDsToTokens(ids[:4])
	require.NoError(t, err)
	assert.Equal(t, []string{"[CLS]", "hello", "world", "[SEP]"}, toks)
	assert.Equal(t, []int{0, 0}, ids[4:])
}

func TestHFWordPieceTruncationKeepsSpecialTokens(t *testing.T) {
	h, err := NewHFWordPiece(writeVocab(t, testVocab), HFOptions{PadToken: "[PAD]"})
	require.NoError(t, err)

	cfg := preprocess.Config{
		TruncationSide: preprocess.SideLeft,
		Truncation:     preprocess.LongestFirst,
		MaxLength:      preprocess.Bounded(3),
	}
	out, err := preprocess.Tokenize(preprocess.Record{"text": "hello world"}, h, cfg)
	require.NoError(t, err)

	toks, err := h.ConvertIDsToTokens(out[preprocess.FieldInputIDs].([]int))
	require.NoError(t, err)
	assert.Equal(t, []string{"[CLS]", "world", "[SEP]"}, toks)
}

func TestHFWordPieceMissingVocab(t *testing.T) {
	_, err := NewHFWordPiece(t.TempDir(), HFOptions{})
	assert.Error(t, err)
}

func TestLoadHFRequiresPath(t *testing.T) {
	_, err := LoadHF("", HFOptions{})
	assert.ErrorIs(t, err, preprocess.ErrInvalidConfig)
}
