package kernel

import (
	"fmt"
	"strings"
)

// PanicInfo contains details about a panic recovered from a task.
type PanicInfo struct {
	TaskID TaskID
	Value  any
	Stack  []byte
}

// Lines renders the panic as display lines, stack last.
func (p *PanicInfo) Lines() []string {
	lines := []string{
		fmt.Sprintf("task: %d", p.TaskID),
		fmt.Sprintf("panic: %v", p.Value),
	}
	if len(p.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(p.Stack), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
