package loader

import (
	"errors"
	"fmt"

	"github.com/ecopia-map/plyviewer/internal/metrics"
)

// Kind classifies load failures
type Kind int

const (
	// fetch failed: missing file, network error, unknown scheme, cancellation
	KindResourceUnavailable Kind = iota + 1
	// the resource is not a valid or supported point cloud encoding
	KindDecodeError
	// decoded successfully but without any point
	KindEmptyGeometry
)

var (
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrDecode              = errors.New("decode error")
	ErrEmptyGeometry       = errors.New("empty geometry")
)

func (k Kind) String() string {
	switch k {
	case KindResourceUnavailable:
		return "ResourceUnavailable"
	case KindDecodeError:
		return "DecodeError"
	case KindEmptyGeometry:
		return "EmptyGeometry"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindResourceUnavailable:
		return ErrResourceUnavailable
	case KindDecodeError:
		return ErrDecode
	case KindEmptyGeometry:
		return ErrEmptyGeometry
	}
	return nil
}

func (k Kind) outcome() string {
	switch k {
	case KindResourceUnavailable:
		return metrics.OutcomeResourceUnavailable
	case KindDecodeError:
		return metrics.OutcomeDecodeError
	}
	return metrics.OutcomeEmptyGeometry
}

// LoadError is the failure reported for a load. errors.Is matches both the
// sentinel of its Kind and the wrapped cause.
type LoadError struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("loading %s: %s", e.Source, e.Kind.sentinel())
	}
	return fmt.Sprintf("loading %s: %s: %v", e.Source, e.Kind.sentinel(), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}
