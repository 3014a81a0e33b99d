package todostate

import "sync"

type command struct {
	op  string
	run func() error
}

// commandQueue runs commands one at a time in the order they were pushed.
// push never blocks.
type commandQueue struct {
	mu          sync.Mutex
	idle        *sync.Cond
	pending     []command
	outstanding int // queued plus running
	closed      bool
	wake        chan struct{}
	done        chan struct{}
	exec        func(command)
}

func newCommandQueue(exec func(command)) *commandQueue {
	q := &commandQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		exec: exec,
	}
	q.idle = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

func (q *commandQueue) push(c command) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, c)
	q.outstanding++
	q.mu.Unlock()
	q.signal()
	return true
}

func (q *commandQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *commandQueue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		c := q.pending[0]
		q.pending[0] = command{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.exec(c)

		q.mu.Lock()
		q.outstanding--
		if q.outstanding == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
	}
}

// wait blocks until every pushed command has run.
func (q *commandQueue) wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.outstanding > 0 {
		q.idle.Wait()
	}
}

// close rejects new commands, runs what is queued and stops the worker.
func (q *commandQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
	<-q.done
}
