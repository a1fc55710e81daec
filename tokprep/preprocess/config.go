package preprocess

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned when a configuration value cannot be parsed or is out of range.
var ErrInvalidConfig = errors.New("invalid preprocess configuration")

// Side selects which end of a sequence is cut when truncating.
type Side int

const (
	SideRight Side = iota
	SideLeft
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// ParseSide parses "left" or "right".
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "right":
		return SideRight, nil
	case "left":
		return SideLeft, nil
	}
	return 0, fmt.Errorf("%w: truncation side %q", ErrInvalidConfig, v)
}

// TruncationStrategy mirrors the boolean-or-strategy truncation argument.
type TruncationStrategy int

const (
	DoNotTruncate TruncationStrategy = iota
	LongestFirst
	OnlyFirst
	OnlySecond
)

func (t TruncationStrategy) String() string {
	switch t {
	case DoNotTruncate:
		return "do_not_truncate"
	case LongestFirst:
		return "longest_first"
	case OnlyFirst:
		return "only_first"
	case OnlySecond:
		return "only_second"
	default:
		return fmt.Sprintf("TruncationStrategy(%d)", int(t))
	}
}

// Enabled reports whether any truncation is requested.
func (t TruncationStrategy) Enabled() bool { return t != DoNotTruncate }

// ParseTruncation accepts booleans ("true" maps to longest_first) and strategy names.
func ParseTruncation(v string) (TruncationStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "longest_first":
		return LongestFirst, nil
	case "false", "0", "", "do_not_truncate":
		return DoNotTruncate, nil
	case "only_first":
		return OnlyFirst, nil
	case "only_second":
		return OnlySecond, nil
	}
	return 0, fmt.Errorf("%w: truncation %q", ErrInvalidConfig, v)
}

// PaddingStrategy mirrors the boolean-or-strategy padding argument.
type PaddingStrategy int

const (
	DoNotPad PaddingStrategy = iota
	PadLongest
	PadMaxLength
)

func (p PaddingStrategy) String() string {
	switch p {
	case DoNotPad:
		return "do_not_pad"
	case PadLongest:
		return "longest"
	case PadMaxLength:
		return "max_length"
	default:
		return fmt.Sprintf("PaddingStrategy(%d)", int(p))
	}
}

// ParsePadding accepts booleans ("true" maps to longest) and strategy names.
func ParsePadding(v string) (PaddingStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "longest":
		return PadLongest, nil
	case "false", "0", "", "do_not_pad":
		return DoNotPad, nil
	case "max_length":
		return PadMaxLength, nil
	}
	return 0, fmt.Errorf("%w: padding %q", ErrInvalidConfig, v)
}

// Length is the optional length cap: either Unbounded or Bounded(k).
// The zero value is Unbounded.
type Length struct {
	k       int
	bounded bool
}

// Unbounded returns a Length carrying no cap.
func Unbounded() Length { return Length{} }

// Bounded returns a cap of k tokens. k must be positive; see NewBounded for a checked variant.
func Bounded(k int) Length { return Length{k: k, bounded: true} }

// NewBounded returns Bounded(k) or an error when k is not positive.
func NewBounded(k int) (Length, error) {
	if k <= 0 {
		return Length{}, fmt.Errorf("%w: max_length must be positive, got %d", ErrInvalidConfig, k)
	}
	return Bounded(k), nil
}

// Get returns the cap and true for Bounded, 0 and false for Unbounded.
func (l Length) Get() (int, bool) {
	return l.k, l.bounded
}

// IsBounded reports whether a cap is set.
func (l Length) IsBounded() bool { return l.bounded }

func (l Length) String() string {
	if k, ok := l.Get(); ok {
		return fmt.Sprintf("Bounded(%d)", k)
	}
	return "Unbounded"
}

// Config holds the five settings read by the tokenization wrapper.
// It is passed by value and never mutated by this package.
type Config struct {
	TruncationSide Side
	Truncation     TruncationStrategy
	Padding        PaddingStrategy
	MaxLength      Length
	ReturnLength   bool
}

// Validate checks enum ranges and the length cap.
func (c Config) Validate() error {
	if c.TruncationSide != SideLeft && c.TruncationSide != SideRight {
		return fmt.Errorf("%w: truncation side %v", ErrInvalidConfig, c.TruncationSide)
	}
	if c.Truncation < DoNotTruncate || c.Truncation > OnlySecond {
		return fmt.Errorf("%w: truncation %v", ErrInvalidConfig, c.Truncation)
	}
	if c.Padding < DoNotPad || c.Padding > PadMaxLength {
		return fmt.Errorf("%w: padding %v", ErrInvalidConfig, c.Padding)
	}
	if c.MaxLength.bounded && c.MaxLength.k <= 0 {
		return fmt.Errorf("%w: max_length must be positive, got %d", ErrInvalidConfig, c.MaxLength.k)
	}
	return nil
}
