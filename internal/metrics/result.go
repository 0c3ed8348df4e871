package metrics

import (
	"errors"
	"fmt"
)

// OutcomeKind tells a consumer which shape a Result carries.
type OutcomeKind string

const (
	KindValue            OutcomeKind = "value"
	KindInsufficientData OutcomeKind = "insufficient_data"
	KindNoData           OutcomeKind = "no_data"
)

// Result is the typed outcome of one metric operation. Value is only
// meaningful when Kind is KindValue; otherwise Message explains why.
type Result[T any] struct {
	Kind     OutcomeKind `json:"kind" yaml:"kind"`
	Value    T           `json:"value" yaml:"value"`
	Message  string      `json:"message,omitempty" yaml:"message,omitempty"`
	Excluded int         `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Problems []error     `json:"-" yaml:"-"`
}

// OK reports whether the result carries a value.
func (r Result[T]) OK() bool { return r.Kind == KindValue }

// Err joins the problems met on individual records, or returns nil.
func (r Result[T]) Err() error { return errors.Join(r.Problems...) }

func valueOf[T any](v T, problems []error) Result[T] {
	return Result[T]{Kind: KindValue, Value: v, Excluded: len(problems), Problems: problems}
}

func noData[T any](msg string, problems []error) Result[T] {
	return Result[T]{Kind: KindNoData, Message: msg, Excluded: len(problems), Problems: problems}
}

func insufficient[T any](msg string) Result[T] {
	return Result[T]{Kind: KindInsufficientData, Message: msg}
}

// TimestampError describes a record whose timestamp could not take part in
// an aggregate. The record, or the affected field, is left out.
type TimestampError struct {
	Record string
	ID     string
	Field  string
	Err    error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Record, e.ID, e.Field, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

var (
	// ErrMixedZones is reported when a naive timestamp meets an aware one
	// within a single computation.
	ErrMixedZones = errors.New("naive and zone-aware timestamps mixed")
	// ErrInvertedRange is reported when an end timestamp precedes its start.
	ErrInvertedRange = errors.New("end precedes start")
	// ErrMissingPullRequest is reported for a review without a pull-request id.
	ErrMissingPullRequest = errors.New("review has no pull request id")
)
