package preprocess

import "fmt"

// Output field names.
const (
	FieldInputIDs      = "input_ids"
	FieldAttentionMask = "attention_mask"
	FieldTokenTypeIDs  = "token_type_ids"
	FieldLength        = "length"
)

// Text is the text field of a record: a single string or an ordered batch.
type Text struct {
	values  []string
	batched bool
}

// Single wraps one string.
func Single(s string) Text { return Text{values: []string{s}} }

// Batch wraps an ordered sequence of strings.
func Batch(ss ...string) Text {
	values := make([]string, len(ss))
	copy(values, ss)
	return Text{values: values, batched: true}
}

// Values returns a copy of the strings held by t.
func (t Text) Values() []string {
	out := make([]string, len(t.values))
	copy(out, t.values)
	return out
}

// IsBatch reports whether t was built from a sequence of strings.
func (t Text) IsBatch() bool { return t.batched }

// Len returns the number of strings in t.
func (t Text) Len() int { return len(t.values) }

// Request is everything a tokenizer needs for one call. The truncation side is
// part of the request rather than tokenizer state.
type Request struct {
	Text           Text
	TruncationSide Side
	Truncation     TruncationStrategy
	Padding        PaddingStrategy
	MaxLength      Length
	ReturnLength   bool
}

// Output maps output field names to values. Single text yields []int per
// sequence field and an int length; batch text yields [][]int and []int.
type Output map[string]any

// IDs returns the input id rows regardless of single or batch shape.
func (o Output) IDs() ([][]int, error) {
	return o.Rows(FieldInputIDs)
}

// Rows returns the named sequence field as rows.
func (o Output) Rows(field string) ([][]int, error) {
	switch v := o[field].(type) {
	case [][]int:
		return v, nil
	case []int:
		return [][]int{v}, nil
	case nil:
		return nil, fmt.Errorf("output has no %q field", field)
	default:
		return nil, fmt.Errorf("output field %q has unexpected type %T", field, v)
	}
}

// Lengths returns the length field as a slice regardless of shape.
func (o Output) Lengths() ([]int, error) {
	switch v := o[FieldLength].(type) {
	case []int:
		return v, nil
	case int:
		return []int{v}, nil
	case nil:
		return nil, fmt.Errorf("output has no %q field", FieldLength)
	default:
		return nil, fmt.Errorf("output field %q has unexpected type %T", FieldLength, v)
	}
}

// Tokenizer converts text to token ids and back.
type Tokenizer interface {
	Encode(req Request) (Output, error)
	ConvertIDsToTokens(ids []int) ([]string, error)
	Decode(ids []int) (string, error)
}
