package twinconfig

import (
	"errors"
	"fmt"
	"time"
)

// Result is the coarse outcome code of an operation.
type Result int

const (
	// ResultNone is reported before any update was attempted.
	ResultNone Result = iota
	ResultOK
	// ResultException covers malformed documents and serialization failures.
	ResultException
	// ResultParseException covers navigation failures and rejected fields.
	// The previous configuration stays in force.
	ResultParseException
	// ResultLockException means the store lock is no longer usable.
	ResultLockException
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultException:
		return "exception"
	case ResultParseException:
		return "parse_exception"
	case ResultLockException:
		return "lock_exception"
	default:
		return "none"
	}
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseResult is the inverse of Result.String.
func ParseResult(s string) (Result, error) {
	for _, r := range []Result{ResultNone, ResultOK, ResultException, ResultParseException, ResultLockException} {
		if r.String() == s {
			return r, nil
		}
	}
	return ResultNone, fmt.Errorf("unknown result %q", s)
}

func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

var (
	// ErrDocument is returned when a document is not a JSON object.
	ErrDocument = errors.New("twin document is not a valid JSON object")
	// ErrParse is returned for navigation failures and rejected fields.
	ErrParse = errors.New("twin configuration rejected")
	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("twin configuration store is closed")
	// ErrSerialization is returned when the reported document cannot be built.
	ErrSerialization = errors.New("failed to serialize twin configuration")
	// ErrTypeMismatch is wrapped by an Extension whose input has the wrong shape.
	ErrTypeMismatch = errors.New("type mismatch")
)

// ResultOf classifies an error returned by the store.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrClosed):
		return ResultLockException
	case errors.Is(err, ErrParse):
		return ResultParseException
	default:
		return ResultException
	}
}

// UpdateOutcome is the diagnostic record of the most recent update attempt,
// whether or not it was applied.
type UpdateOutcome struct {
	Result  Result       `json:"result"`
	Bundle  BundleStatus `json:"bundle"`
	Time    time.Time    `json:"time"`
	Mode    Mode         `json:"-"`
	Message string       `json:"message,omitempty"`
}

// Applied reports whether the attempt replaced the configuration.
func (o UpdateOutcome) Applied() bool {
	return o.Result == ResultOK
}
