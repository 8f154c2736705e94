//go:build !tinygo && !cgo

package window

import (
	"errors"

	"ringos/hal"
)

// Config controls the window runner.
type Config struct {
	Scale      int
	TPS        int
	StepBudget int
	Host       hal.HostOptions
}

func Run(_ func(hal.HAL) (func() error, error), _ Config) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
