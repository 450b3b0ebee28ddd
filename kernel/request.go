package kernel

import "fmt"

type requestKind uint8

const (
	reqNone requestKind = iota
	reqTimerExpired
	reqCreate
	reqTerminate
	reqNext
	reqGetArg
	reqInterrupt
	reqWait
)

func (r requestKind) String() string {
	switch r {
	case reqNone:
		return "none"
	case reqTimerExpired:
		return "timer-expired"
	case reqCreate:
		return "task-create"
	case reqTerminate:
		return "task-terminate"
	case reqNext:
		return "task-next"
	case reqGetArg:
		return "task-get-arg"
	case reqInterrupt:
		return "task-interrupt"
	case reqWait:
		return "task-wait"
	default:
		return fmt.Sprintf("request(%d)", uint8(r))
	}
}

// request is the single pending reason for the last kernel entry. It is
// overwritten, never queued.
type request struct {
	kind requestKind
	spec TaskSpec
}
