package spsc

import "fmt"

// ErrClosed is returned by Recv once the producer handle is closed and
// every buffered value has been drained. The condition is permanent:
// liveness only ever transitions alive->gone, so once Recv reports it,
// every later Recv reports it too.
var ErrClosed = fmt.Errorf("spsc: producer is gone and buffer is drained")

// SendError is returned by Send when the consumer handle is already closed.
// It carries the rejected value back to the caller so it can be recovered
// or disposed of explicitly; nothing is buffered.
type SendError[T any] struct {
	Value T
}

func (e *SendError[T]) Error() string {
	return "spsc: consumer is gone"
}
