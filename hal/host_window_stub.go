//go:build !cgo

package hal

import (
	"context"
	"errors"
)

func RunWindow(_ context.Context, _ WindowConfig, _ func(context.Context, HAL) error) error {
	return errors.New("hal: window mode requires cgo (build with CGO_ENABLED=1)")
}
