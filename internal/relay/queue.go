package relay

import "github.com/roach88/figbridge/internal/ir"

// commandQueue is an unbounded FIFO of commands.
//
// It is not synchronized; Relay guards it with its own mutex so that queue
// mutation and waiter registration happen atomically.
type commandQueue struct {
	commands []ir.Command
}

func newCommandQueue() *commandQueue {
	return &commandQueue{commands: make([]ir.Command, 0, 16)}
}

func (q *commandQueue) push(c ir.Command) {
	q.commands = append(q.commands, c)
}

// pop removes and returns the oldest command.
func (q *commandQueue) pop() (ir.Command, bool) {
	if len(q.commands) == 0 {
		return ir.Command{}, false
	}

	c := q.commands[0]

	// Clear the slot so the backing array does not pin Args.
	q.commands[0] = ir.Command{}

	if len(q.commands) == 1 {
		q.commands = q.commands[:0]
	} else {
		q.commands = q.commands[1:]
	}
	return c, true
}

func (q *commandQueue) len() int {
	return len(q.commands)
}
