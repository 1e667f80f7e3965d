package session

import (
	"errors"
	"fmt"
)

// Kind classifies why a session ended in Failed.
type Kind int

const (
	// KindSdkUnavailable: the SDK never became ready within the attempt budget.
	KindSdkUnavailable Kind = iota + 1
	// KindContainerMissing: start was called without a container.
	KindContainerMissing
	// KindContainerNeverSized: geometry retries were exhausted.
	KindContainerNeverSized
	// KindConstructionError: the SDK failed to construct the map.
	KindConstructionError
)

func (k Kind) String() string {
	switch k {
	case KindSdkUnavailable:
		return "SdkUnavailable"
	case KindContainerMissing:
		return "ContainerMissing"
	case KindContainerNeverSized:
		return "ContainerNeverSized"
	case KindConstructionError:
		return "ConstructionError"
	default:
		return "Unknown"
	}
}

// Sentinels matched by errors.Is against a session *Error.
var (
	ErrSdkUnavailable      = errors.New("mapping sdk unavailable")
	ErrContainerMissing    = errors.New("map container missing")
	ErrContainerNeverSized = errors.New("map container never sized")
	ErrConstructionError   = errors.New("map construction failed")
	// ErrTimeout matches every failure caused by running out of attempts.
	ErrTimeout = errors.New("map session timed out")
)

// Misuse errors returned by Start.
var (
	ErrSessionActive = errors.New("map session already in progress")
	ErrMapReady      = errors.New("map already ready; dispose before starting again")
)

func (k Kind) sentinel() error {
	switch k {
	case KindSdkUnavailable:
		return ErrSdkUnavailable
	case KindContainerMissing:
		return ErrContainerMissing
	case KindContainerNeverSized:
		return ErrContainerNeverSized
	case KindConstructionError:
		return ErrConstructionError
	default:
		return nil
	}
}

func (k Kind) timeout() bool {
	return k == KindSdkUnavailable || k == KindContainerNeverSized
}

// Error is the LastError of a Failed session.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind's sentinel, and ErrTimeout for budget exhaustion.
func (e *Error) Is(target error) bool {
	if target == ErrTimeout {
		return e.Kind.timeout()
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the failure kind from err, or zero if err is not a session error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
