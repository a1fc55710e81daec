package dataset

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
)

var (
	ErrColumnLength = errors.New("output column length does not match batch size")
	ErrColumnType   = errors.New("output column has an unsupported type")
)

// MapFunc turns one record, or one batch record whose columns are slices, into output fields.
// (*preprocess.RecordTokenizer).Tokenize is a MapFunc.
type MapFunc func(preprocess.Record) (preprocess.Output, error)

// MapOptions controls Map. When Batched is false fn sees one record at a time and
// BatchSize only sets how many records a worker takes per task. Zero values mean
// batches of 1000 and GOMAXPROCS workers.
type MapOptions struct {
	Batched   bool
	BatchSize int
	Workers   int
	Metrics   *Metrics
	Logger    *zerolog.Logger
	// Progress, when set, is called with the number of records finished so far.
	Progress func(done int)
}

func (o MapOptions) withDefaults() MapOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 1000
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Map applies fn to every record (or batch) and returns a new Dataset with the
// output fields merged in as columns. Order is preserved. The first error stops
// the run and is returned; no partial dataset is produced.
func (d *Dataset) Map(ctx context.Context, fn MapFunc, opts MapOptions) (*Dataset, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()
	logger := opts.Logger.With().Str("run_id", runID).Bool("batched", opts.Batched).Logger()

	n := len(d.rows)
	batches := (n + opts.BatchSize - 1) / opts.BatchSize
	out := make([]preprocess.Record, n)
	var done atomic.Int64
	start := time.Now()

	logger.Debug().Int("records", n).Int("batches", batches).Int("workers", opts.Workers).Msg("map started")

	p := pool.New().WithMaxGoroutines(opts.Workers).WithContext(ctx).WithCancelOnError().WithFirstError()
	for b := 0; b < batches; b++ {
		lo := b * opts.BatchSize
		hi := min(lo+opts.BatchSize, n)
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := d.mapRange(fn, lo, hi, opts.Batched)
			if err != nil {
				opts.Metrics.observeError()
				return fmt.Errorf("records %d-%d: %w", lo, hi-1, err)
			}
			copy(out[lo:hi], rows)
			opts.Metrics.observeBatch(rows)
			finished := done.Add(int64(hi - lo))
			if opts.Progress != nil {
				opts.Progress(int(finished))
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		logger.Error().Err(err).Msg("map failed")
		return nil, err
	}

	logger.Debug().Dur("elapsed", time.Since(start)).Msg("map finished")
	return &Dataset{rows: out}, nil
}

func (d *Dataset) mapRange(fn MapFunc, lo, hi int, batched bool) ([]preprocess.Record, error) {
	if !batched {
		rows := make([]preprocess.Record, 0, hi-lo)
		for _, rec := range d.rows[lo:hi] {
			res, err := fn(maps.Clone(rec))
			if err != nil {
				return nil, err
			}
			row := maps.Clone(rec)
			maps.Copy(row, res)
			rows = append(rows, row)
		}
		return rows, nil
	}

	res, err := fn(batchRecord(d.rows[lo:hi]))
	if err != nil {
		return nil, err
	}
	return splitBatch(d.rows[lo:hi], res)
}

// batchRecord turns rows into one record whose columns are slices.
func batchRecord(rows []preprocess.Record) preprocess.Record {
	batch := preprocess.Record{}
	for i, row := range rows {
		for k, v := range row {
			col, ok := batch[k].([]any)
			if !ok {
				col = make([]any, len(rows))
				batch[k] = col
			}
			col[i] = v
		}
	}
	return batch
}

// splitBatch merges the batched output columns back into copies of rows.
func splitBatch(rows []preprocess.Record, res preprocess.Output) ([]preprocess.Record, error) {
	out := make([]preprocess.Record, len(rows))
	for i, row := range rows {
		out[i] = maps.Clone(row)
	}
	for k, v := range res {
		var (
			size int
			at   func(i int) any
		)
		switch col := v.(type) {
		case [][]int:
			size, at = len(col), func(i int) any { return col[i] }
		case []int:
			size, at = len(col), func(i int) any { return col[i] }
		case []string:
			size, at = len(col), func(i int) any { return col[i] }
		case []any:
			size, at = len(col), func(i int) any { return col[i] }
		default:
			return nil, fmt.Errorf("%w: %q is %T", ErrColumnType, k, v)
		}
		if size != len(rows) {
			return nil, fmt.Errorf("%w: %q has %d values for %d records", ErrColumnLength, k, size, len(rows))
		}
		for i := range out {
			out[i][k] = at(i)
		}
	}
	return out, nil
}
