package visqol

import (
	"errors"

	"github.com/cwbudde/algo-visqol/quality"
)

var (
	// ErrNotInitialized aborts a whole batch.
	ErrNotInitialized = errors.New("visqol: manager must be initialised before use")
	// ErrInvalidArgument marks a pair that cannot be compared; batches skip it.
	ErrInvalidArgument = errors.New("visqol: invalid argument")
	ErrModelLoad       = quality.ErrModelLoad
)

func invalid(err error) error {
	if errors.Is(err, ErrInvalidArgument) {
		return err
	}
	return errors.Join(ErrInvalidArgument, err)
}
