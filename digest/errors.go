package digest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/midbel/digest/xml"
)

var (
	ErrImbalance     = errors.New("close event without matching open")
	ErrConfiguration = errors.New("invalid configuration")
	ErrUnterminated  = errors.New("unterminated document")
	ErrEmpty         = errors.New("stack is empty")
)

// CallbackError wraps an error raised inside a rule callback with the
// path and the phase at the point of failure.
type CallbackError struct {
	Path  string
	Phase string
	Err   error
}

func callbackError(phase string, path []xml.QName, err error) error {
	if err == nil {
		return nil
	}
	var c CallbackError
	if errors.As(err, &c) {
		return err
	}
	return CallbackError{
		Path:  pathString(path),
		Phase: phase,
		Err:   err,
	}
}

func (e CallbackError) Error() string {
	return fmt.Sprintf("%s: %s callback: %s", e.Path, e.Phase, e.Err)
}

func (e CallbackError) Unwrap() error {
	return e.Err
}

func pathString(path []xml.QName) string {
	var str strings.Builder
	for i, qn := range path {
		if i > 0 {
			str.WriteRune('/')
		}
		str.WriteString(qn.QualifiedName())
	}
	return str.String()
}
