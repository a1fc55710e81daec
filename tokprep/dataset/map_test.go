package dataset

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
	"github.com/ZanzyTHEbar/tokprep/tokprep/tokenizer"
)

var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"hello", "world", "a", "b", "c",
}

func newRecordTokenizer(t *testing.T, cfg preprocess.Config) *preprocess.RecordTokenizer {
	t.Helper()
	w, err := tokenizer.NewWordPiece(testVocab, tokenizer.DefaultWordPieceOptions())
	require.NoError(t, err)
	return preprocess.NewRecordTokenizer(cfg, w)
}

func TestMapBatchedMergesColumnsInOrder(t *testing.T) {
	ds := New([]preprocess.Record{
		{"text": "a", "label": 0},
		{"text": "b c", "label": 1},
		{"text": "hello world a", "label": 2},
		{"text": "c", "label": 3},
		{"text": "world", "label": 4},
	})
	rt := newRecordTokenizer(t, preprocess.Config{
		Truncation:   preprocess.LongestFirst,
		Padding:      preprocess.PadLongest,
		ReturnLength: true,
	})
	logger := zerolog.Nop()

	mapped, err := ds.Map(context.Background(), rt.Tokenize, MapOptions{Batched: true, BatchSize: 2, Workers: 3, Logger: &logger})
	require.NoError(t, err)
	require.Equal(t, 5, mapped.Len())

	assert.Equal(t, []any{0, 1, 2, 3, 4}, mapped.Column("label"))
	assert.Equal(t, []int{2, 6, 3, 0}, mapped.Row(0)[preprocess.FieldInputIDs])
	assert.Equal(t, []int{2, 7, 8, 3}, mapped.Row(1)[preprocess.FieldInputIDs])
	assert.Equal(t, []int{2, 4, 5, 6, 3}, mapped.Row(2)[preprocess.FieldInputIDs])
	assert.Equal(t, []int{2, 8, 3, 0, 0}, mapped.Row(3)[preprocess.FieldInputIDs])
	assert.Equal(t, []int{2, 5, 3}, mapped.Row(4)[preprocess.FieldInputIDs])
	assert.Equal(t, 5, mapped.Row(3)[preprocess.FieldLength])

	assert.NotContains(t, ds.Row(0), preprocess.FieldInputIDs)
}

func TestMapUnbatchedMatchesBatchedForFixedLength(t *testing.T) {
	texts := []string{"a", "b c", "hello world a", "", "world world world"}
	rt := newRecordTokenizer(t, preprocess.Config{
		Truncation:   preprocess.LongestFirst,
		Padding:      preprocess.PadMaxLength,
		MaxLength:    preprocess.Bounded(4),
		ReturnLength: true,
	})
	ds := FromTexts(texts...)

	single, err := ds.Map(context.Background(), rt.Tokenize, MapOptions{Workers: 2, BatchSize: 2})
	require.NoError(t, err)
	batched, err := ds.Map(context.Background(), rt.Tokenize, MapOptions{Batched: true, BatchSize: 3, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, single.Rows(), batched.Rows())
	for _, row := range batched.Rows() {
		assert.Len(t, row[preprocess.FieldInputIDs], 4)
	}
}

func TestMapPropagatesFirstError(t *testing.T) {
	boom := errors.New("tokenizer exploded")
	ds := FromTexts("a", "b", "c", "d")
	var calls atomic.Int32
	fn := func(rec preprocess.Record) (preprocess.Output, error) {
		calls.Add(1)
		if rec["text"] == "c" {
			return nil, boom
		}
		return preprocess.Output{"n": 1}, nil
	}

	mapped, err := ds.Map(context.Background(), fn, MapOptions{Workers: 1, BatchSize: 1})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, mapped)
}

func TestMapRejectsMismatchedColumns(t *testing.T) {
	ds := FromTexts("a", "b")
	fn := func(preprocess.Record) (preprocess.Output, error) {
		return preprocess.Output{"input_ids": [][]int{{1}}}, nil
	}
	_, err := ds.Map(context.Background(), fn, MapOptions{Batched: true})
	assert.ErrorIs(t, err, ErrColumnLength)

	fn = func(preprocess.Record) (preprocess.Output, error) {
		return preprocess.Output{"score": 1.5}, nil
	}
	_, err = ds.Map(context.Background(), fn, MapOptions{Batched: true})
	assert.ErrorIs(t, err, ErrColumnType)
}

func TestMapHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt := newRecordTokenizer(t, preprocess.Config{})

	_, err := FromTexts("a", "b").Map(ctx, rt.Tokenize, MapOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapMetricsAndProgress(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("tokprep_test", reg)
	rt := newRecordTokenizer(t, preprocess.Config{ReturnLength: true})
	var last atomic.Int64

	_, err := FromTexts("a", "b c", "hello").Map(context.Background(), rt.Tokenize, MapOptions{
		Batched:   true,
		BatchSize: 2,
		Workers:   1,
		Metrics:   metrics,
		Progress:  func(done int) { last.Store(int64(done)) },
	})
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.records))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.batches))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.errors))
	assert.Equal(t, int64(3), last.Load())
}

func TestMapEmptyDataset(t *testing.T) {
	rt := newRecordTokenizer(t, preprocess.Config{})
	mapped, err := New(nil).Map(context.Background(), rt.Tokenize, MapOptions{Batched: true})
	require.NoError(t, err)
	assert.Equal(t, 0, mapped.Len())
	assert.Nil(t, mapped.ColumnNames())
}

func TestRecordLengthIgnoresPadding(t *testing.T) {
	n, ok := recordLength(preprocess.Record{
		preprocess.FieldInputIDs:      []int{2, 6, 3, 0, 0},
		preprocess.FieldAttentionMask: []int{1, 1, 1, 0, 0},
		preprocess.FieldLength:        5,
	})
	require.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = recordLength(preprocess.Record{preprocess.FieldInputIDs: []int{2, 3}})
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = recordLength(preprocess.Record{"text": "a"})
	assert.False(t, ok)
}
