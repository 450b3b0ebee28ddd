//go:build !tinygo

package kernel

import (
	"bytes"
	"runtime/debug"
)

func captureStack() []byte {
	return bytes.TrimSpace(debug.Stack())
}
