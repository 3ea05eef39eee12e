package matrix

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel targets for errors.Is; the concrete types carry the details.
var (
	ErrCombinationLimit = errors.New("planmatrix/matrix: combination limit exceeded")
	ErrInvalidLabel     = errors.New("planmatrix/matrix: invalid override label")
)

// CombinationLimitError is returned when the label catalog would force
// enumerating more combinations than the ceiling permits. The build fails
// outright instead of truncating, so callers never receive a partial,
// unlabeled result set.
type CombinationLimitError struct {
	// Labels is the catalog size.
	Labels int
	// MaxLabels is the configured ceiling.
	MaxLabels int
}

func (e *CombinationLimitError) Error() string {
	return fmt.Sprintf("planmatrix/matrix: %d override labels would require %d plans, ceiling is %d labels (%d plans)",
		e.Labels, CombinationCount(e.Labels), e.MaxLabels, CombinationCount(e.MaxLabels))
}

func (e *CombinationLimitError) Is(target error) bool {
	return target == ErrCombinationLimit
}

// IsCombinationLimitErr returns true if err is or wraps a combination
// ceiling failure.
func IsCombinationLimitErr(err error) bool {
	return errors.Is(err, ErrCombinationLimit)
}

// InvalidLabelError is returned when a requested override label is not in
// the catalog, or appears twice in the request.
type InvalidLabelError struct {
	Label     string
	Duplicate bool
	Known     []string
}

func (e *InvalidLabelError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("planmatrix/matrix: duplicate override label %q", e.Label)
	}
	return fmt.Sprintf("planmatrix/matrix: unknown override label %q (available: %s)",
		e.Label, strings.Join(e.Known, ", "))
}

func (e *InvalidLabelError) Is(target error) bool {
	return target == ErrInvalidLabel
}

// IsInvalidLabelErr returns true if err is or wraps an invalid label
// failure.
func IsInvalidLabelErr(err error) bool {
	return errors.Is(err, ErrInvalidLabel)
}
