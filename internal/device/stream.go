package device

import (
	"fmt"
	"sync"
)

const streamDepth = 256

type task struct {
	op  string
	run func() error
}

// Stream is an ordered asynchronous work queue. Work items execute one at a
// time on a dedicated goroutine, in the order they were enqueued. A failed
// item does not stop later items; the first failure is kept until
// Synchronize reports it.
type Stream struct {
	tasks chan task
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newStream() *Stream {
	s := &Stream{
		tasks: make(chan task, streamDepth),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Stream) loop() {
	defer close(s.done)
	for t := range s.tasks {
		if err := runTask(t); err != nil {
			s.record(err)
		}
	}
}

func runTask(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = executionError(t.op, StatusLaunchFailure, fmt.Errorf("panic: %v", r))
		}
	}()
	return t.run()
}

func (s *Stream) record(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Enqueue schedules fn and returns immediately. The only synchronous failure
// is a closed stream.
func (s *Stream) Enqueue(op string, fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return executionError(op, StatusContextDestroyed, nil)
	}
	s.tasks <- task{op: op, run: fn}
	return nil
}

// Synchronize blocks until all work enqueued before the call has finished and
// returns (and clears) the first fault recorded since the previous call.
func (s *Stream) Synchronize() error {
	marker := make(chan struct{})
	if err := s.Enqueue("synchronize", func() error {
		close(marker)
		return nil
	}); err != nil {
		return err
	}
	<-marker
	return s.takeErr()
}

// Err reports a recorded fault without waiting and without clearing it.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Stream) takeErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.err
	s.err = nil
	return err
}

// close drains pending work and stops the worker goroutine.
func (s *Stream) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()
	<-s.done
	return s.takeErr()
}
