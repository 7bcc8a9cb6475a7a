package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// spinner handles the loading animation
type spinner struct {
	out     io.Writer
	frames  []string
	stop    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	running bool
}

func newSpinner(out io.Writer) *spinner {
	return &spinner{
		out:     out,
		frames:  []string{"◐", "◓", "◑", "◒"},
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *spinner) Start(message string) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K") // Clear line
				return
			default:
				fmt.Fprintf(s.out, "\r%s%s%s %s", ColorOrange, s.frames[i%len(s.frames)], ColorReset, message)
				i++
				time.Sleep(80 * time.Millisecond)
			}
		}
	}()
}

func (s *spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stop)
	<-s.stopped
}
