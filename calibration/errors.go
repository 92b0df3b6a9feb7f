package calibration

import (
	"errors"
	"fmt"
)

// Solve failures. Every error returned by a Calibrator wraps exactly one of these.
var (
	// ErrInvalidInput indicates a missing or malformed argument; the curve was not touched.
	ErrInvalidInput = errors.New("calibration: invalid input")

	// ErrDiverged indicates a NaN or infinite measure or trial value.
	ErrDiverged = errors.New("calibration: solve diverged")

	// ErrBracket indicates the floor and ceiling residuals share a sign.
	ErrBracket = errors.New("calibration: root not bracketed")

	// ErrIterationLimit indicates the convergence test was not met within the iteration cap.
	ErrIterationLimit = errors.New("calibration: iteration limit exceeded")

	// ErrPricing indicates the instrument failed to price the measure.
	ErrPricing = errors.New("calibration: instrument pricing failed")
)

// Status is the terminal state of one solve.
type Status int

const (
	Converged Status = iota
	InvalidInput
	Diverged
	BracketFailure
	IterationLimit
	PricingFailure
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case InvalidInput:
		return "invalid_input"
	case Diverged:
		return "diverged"
	case BracketFailure:
		return "bracket_failure"
	case IterationLimit:
		return "iteration_limit"
	case PricingFailure:
		return "pricing_failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) sentinel() error {
	switch s {
	case InvalidInput:
		return ErrInvalidInput
	case Diverged:
		return ErrDiverged
	case BracketFailure:
		return ErrBracket
	case IterationLimit:
		return ErrIterationLimit
	case PricingFailure:
		return ErrPricing
	default:
		return nil
	}
}

// SolveError describes a failed solve. errors.Is matches both the status
// sentinel and the underlying cause.
type SolveError struct {
	Status     Status
	Solver     string
	Node       int
	Label      string
	Measure    string
	Iterations int
	// Value is the last trial node value written to the curve (NaN if none).
	Value float64
	Err   error
}

func (e *SolveError) Error() string {
	msg := fmt.Sprintf("%s: node %d (%s) measure %q: %s after %d iterations",
		e.Solver, e.Node, e.Label, e.Measure, e.Status, e.Iterations)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SolveError) Unwrap() []error {
	errs := []error{e.Status.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusOf extracts the solve status from err. A nil error is Converged; an
// error that is not a SolveError maps by sentinel, defaulting to PricingFailure.
func StatusOf(err error) Status {
	if err == nil {
		return Converged
	}
	var se *SolveError
	if errors.As(err, &se) {
		return se.Status
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return InvalidInput
	case errors.Is(err, ErrDiverged):
		return Diverged
	case errors.Is(err, ErrBracket):
		return BracketFailure
	case errors.Is(err, ErrIterationLimit):
		return IterationLimit
	default:
		return PricingFailure
	}
}

func invalidInput(solver, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", solver, ErrInvalidInput, fmt.Sprintf(format, args...))
}
