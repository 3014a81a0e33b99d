// Package viewstate holds the presentation-ready wrapper around a result or
// its absence/failure.
package viewstate

// Kind tags which case of State is populated.
type Kind int

const (
	KindLoading Kind = iota
	KindEmpty
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "loading"
	}
}

// State is a tagged union over Loading, Empty, Success(Data) and
// Error(Err, Message). Only the fields of the active Kind are set.
type State[T any] struct {
	Kind    Kind
	Data    T      // KindSuccess
	Err     error  // KindError: original cause, for logs
	Message string // KindError: optional human-readable text
}

func Loading[T any]() State[T] { return State[T]{Kind: KindLoading} }

func Empty[T any]() State[T] { return State[T]{Kind: KindEmpty} }

func Success[T any](data T) State[T] { return State[T]{Kind: KindSuccess, Data: data} }

func Failure[T any](err error, message string) State[T] {
	return State[T]{Kind: KindError, Err: err, Message: message}
}

func (s State[T]) IsLoading() bool { return s.Kind == KindLoading }
func (s State[T]) IsEmpty() bool   { return s.Kind == KindEmpty }
func (s State[T]) IsSuccess() bool { return s.Kind == KindSuccess }
func (s State[T]) IsError() bool   { return s.Kind == KindError }

// ErrorText prefers Message and falls back to the cause.
func (s State[T]) ErrorText() string {
	if s.Kind != KindError {
		return ""
	}
	if s.Message != "" {
		return s.Message
	}
	if s.Err != nil {
		return s.Err.Error()
	}
	return "something went wrong"
}
