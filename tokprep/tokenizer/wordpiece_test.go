package tokenizer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"hello", "world", "a", "b", "c",
	"un", "##aff", "##able", ".", "the",
}

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	return path
}

func newTestWordPiece(t *testing.T) *WordPiece {
	t.Helper()
	w, err := LoadWordPiece(writeVocab(t, testVocab), DefaultWordPieceOptions())
	require.NoError(t, err)
	return w
}

func TestLoadWordPieceKeepsLineNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	vocab := "[PAD]\r\n[UNK]\r\n\n[CLS]\n[SEP]\n \nhello\nworld\n"
	require.NoError(t, os.WriteFile(path, []byte(vocab), 0o644))

	w, err := LoadWordPiece(path, DefaultWordPieceOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, w.VocabSize())

	out, err := preprocess.Tokenize(preprocess.Record{"text": "hello world"}, w, preprocess.Config{})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 7, 4}, out[preprocess.FieldInputIDs])

	toks, err := w.ConvertIDsToTokens([]int{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"[UNK]", "[CLS]"}, toks)
}

func TestWordPieceTokens(t *testing.T) {
	w := newTestWordPiece(t)

	assert.Equal(t, []string{"un", "##aff", "##able"}, w.Tokens("unaffable"))
	assert.Equal(t, []string{"hello", "[UNK]", "world", "."}, w.Tokens("Hello, World."))
	assert.Equal(t, []string{"[UNK]"}, w.Tokens("zebra"))
	assert.Equal(t, len(testVocab), w.VocabSize())
}

func TestWordPieceBoundedScenario(t *testing.T) {
	w := newTestWordPiece(t)
	cfg := preprocess.Config{
		TruncationSide: preprocess.SideRight,
		Truncation:     preprocess.LongestFirst,
		Padding:        preprocess.PadMaxLength,
		MaxLength:      preprocess.Bounded(8),
		ReturnLength:   true,
	}

	out, err := preprocess.Tokenize(preprocess.Record{"text": "hello world"}, w, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4, 5, 3, 0, 0, 0, 0}, out[preprocess.FieldInputIDs])
	assert.Equal(t, []int{1, 1, 1, 1, 0, 0, 0, 0}, out[preprocess.FieldAttentionMask])
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0, 0}, out[preprocess.FieldTokenTypeIDs])
	assert.Equal(t, 8, out[preprocess.FieldLength])
}

func TestWordPieceTruncationSide(t *testing.T) {
	w := newTestWordPiece(t)
	tests := []struct {
		name string
		side preprocess.Side
		want []int
	}{
		{name: "right", side: preprocess.SideRight, want: []int{2, 4, 3}},
		{name: "left", side: preprocess.SideLeft, want: []int{2, 5, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := preprocess.Config{
				TruncationSide: tt.side,
				Truncation:     preprocess.LongestFirst,
				MaxLength:      preprocess.Bounded(3),
			}
			out, err := preprocess.Tokenize(preprocess.Record{"text": "hello world"}, w, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out[preprocess.FieldInputIDs])
		})
	}
}

func TestWordPieceTruncationDisabledKeepsEverything(t *testing.T) {
	w := newTestWordPiece(t)
	cfg := preprocess.Config{MaxLength: preprocess.Bounded(2)}

	out, err := preprocess.Tokenize(preprocess.Record{"text": "hello world"}, w, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 5, 3}, out[preprocess.FieldInputIDs])
}

func TestWordPieceBatchScenario(t *testing.T) {
	w := newTestWordPiece(t)
	cfg := preprocess.Config{
		Truncation:   preprocess.LongestFirst,
		Padding:      preprocess.PadLongest,
		ReturnLength: true,
	}

	out, err := preprocess.Tokenize(preprocess.Record{"text": []string{"a", "b c"}}, w, cfg)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{2, 6, 3, 0}, {2, 7, 8, 3}}, out[preprocess.FieldInputIDs])
	assert.Equal(t, [][]int{{1, 1, 1, 0}, {1, 1, 1, 1}}, out[preprocess.FieldAttentionMask])
	assert.Equal(t, []int{4, 4}, out[preprocess.FieldLength])
}

func TestWordPieceLengthWithoutPadding(t *testing.T) {
	w := newTestWordPiece(t)
	cfg := preprocess.Config{
		Truncation:   preprocess.LongestFirst,
		MaxLength:    preprocess.Bounded(3),
		ReturnLength: true,
	}

	out, err := preprocess.Tokenize(preprocess.Record{"text": []string{"a", "hello world a"}}, w, cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 6, 3}, {2, 4, 3}}, out[preprocess.FieldInputIDs])
	assert.Equal(t, []int{3, 3}, out[preprocess.FieldLength])
}

func TestWordPiecePolicyErrors(t *testing.T) {
	w := newTestWordPiece(t)
	rec := preprocess.Record{"text": "hello world"}

	_, err := preprocess.Tokenize(rec, w, preprocess.Config{Truncation: preprocess.LongestFirst, MaxLength: preprocess.Bounded(1)})
	assert.ErrorIs(t, err, ErrCannotTruncate)

	_, err = preprocess.Tokenize(rec, w, preprocess.Config{Truncation: preprocess.OnlySecond})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = preprocess.Tokenize(rec, w, preprocess.Config{Truncation: preprocess.LongestFirst, MaxLength: preprocess.Bounded(0)})
	assert.ErrorIs(t, err, preprocess.ErrInvalidConfig)

	opts := DefaultWordPieceOptions()
	opts.ModelMaxLength = 0
	unbounded, err := NewWordPiece(testVocab, opts)
	require.NoError(t, err)
	_, err = preprocess.Tokenize(rec, unbounded, preprocess.Config{Padding: preprocess.PadMaxLength})
	assert.ErrorIs(t, err, ErrNoMaxLength)

	noPad, err := NewWordPiece(testVocab[1:], DefaultWordPieceOptions())
	require.NoError(t, err)
	_, err = preprocess.Tokenize(preprocess.Record{"text": []string{"a", "b c"}}, noPad, preprocess.Config{Padding: preprocess.PadLongest})
	assert.ErrorIs(t, err, ErrNoPadToken)
}

func TestWordPieceModelMaxLengthCapsUnbounded(t *testing.T) {
	opts := DefaultWordPieceOptions()
	opts.ModelMaxLength = 3
	w, err := NewWordPiece(testVocab, opts)
	require.NoError(t, err)

	out, err := preprocess.Tokenize(preprocess.Record{"text": "the hello world"}, w, preprocess.Config{
		Truncation: preprocess.LongestFirst,
		Padding:    preprocess.PadMaxLength,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 13, 3}, out[preprocess.FieldInputIDs])
}

func TestWordPieceDecode(t *testing.T) {
	w := newTestWordPiece(t)

	text, err := w.Decode([]int{2, 9, 10, 11, 3})
	require.NoError(t, err)
	assert.Equal(t, "[CLS] unaffable [SEP]", text)

	text, err = w.Decode([]int{4, 5, 12})
	require.NoError(t, err)
	assert.Equal(t, "hello world.", text)

	_, err = w.Decode([]int{999})
	assert.ErrorIs(t, err, ErrUnknownID)

	_, err = w.ConvertIDsToTokens([]int{4, -1})
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestWordPieceMissingUnkToken(t *testing.T) {
	_, err := NewWordPiece([]string{"hello"}, DefaultWordPieceOptions())
	assert.ErrorIs(t, err, preprocess.ErrInvalidConfig)
}

func TestWordPieceViewTokens(t *testing.T) {
	w := newTestWordPiece(t)
	var buf bytes.Buffer

	require.NoError(t, preprocess.FprintTokens(&buf, w, []int{2, 4, 5, 3}))
	out := buf.String()
	assert.Contains(t, out, "input_ids:\n[2 4 5 3]")
	assert.Contains(t, out, `["[CLS]" "hello" "world" "[SEP]"]`)
	assert.Contains(t, out, "tokenizer.decode(input_ids):\n[CLS] hello world [SEP]\n")
}

func TestWordPieceBoundedPaddingProperty(t *testing.T) {
	w := newTestWordPiece(t)
	words := []string{"hello", "world", "a", "b", "c", "the", "unaffable"}

	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.IntRange(2, 24).Draw(rt, "k")
		n := rapid.IntRange(1, 4).Draw(rt, "n")
		texts := make([]string, n)
		for i := range texts {
			texts[i] = strings.Join(rapid.SliceOfN(rapid.SampledFrom(words), 0, 12).Draw(rt, "words"), " ")
		}
		cfg := preprocess.Config{
			TruncationSide: preprocess.Side(rapid.IntRange(0, 1).Draw(rt, "side")),
			Truncation:     preprocess.LongestFirst,
			Padding:        preprocess.PadMaxLength,
			MaxLength:      preprocess.Bounded(k),
			ReturnLength:   true,
		}

		out, err := preprocess.Tokenize(preprocess.Record{"text": texts}, w, cfg)
		require.NoError(rt, err)

		ids, err := out.IDs()
		require.NoError(rt, err)
		masks, err := out.Rows(preprocess.FieldAttentionMask)
		require.NoError(rt, err)
		lengths, err := out.Lengths()
		require.NoError(rt, err)
		require.Len(rt, ids, n)
		for i, row := range ids {
			require.Len(rt, row, k)
			assert.Equal(rt, k, lengths[i])
			kept := 0
			for _, m := range masks[i] {
				kept += m
			}
			assert.Equal(rt, 2, row[0])
			assert.Equal(rt, 3, row[kept-1])
		}
	})
}

func TestNewSelectsBackend(t *testing.T) {
	path := writeVocab(t, testVocab)

	tok, err := New(Options{Backend: "WordPiece", Path: path, Lowercase: true, ModelMaxLength: 16}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &WordPiece{}, tok)

	tok, err = New(Options{Backend: BackendTiktoken, PadID: -1}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Tiktoken{}, tok)

	_, err = New(Options{Backend: "sentencepiece"}, zerolog.Nop())
	assert.ErrorIs(t, err, preprocess.ErrInvalidConfig)

	_, err = New(Options{Backend: BackendWordPiece, Path: filepath.Join(t.TempDir(), "missing.txt")}, zerolog.Nop())
	assert.Error(t, err)
}
