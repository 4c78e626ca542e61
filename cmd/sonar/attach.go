package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/ptysup"
)

// terminalIO is a per-agent events.Sink that prints pty-output to stdout
// and signals wait() once the agent's pty-exit event arrives.
type terminalIO struct {
	agentID string

	once     sync.Once
	done     chan struct{}
	exitCode *int
}

func newTerminalIO(agentID string) *terminalIO {
	return &terminalIO{agentID: agentID, done: make(chan struct{})}
}

// Emit implements events.Sink.
func (t *terminalIO) Emit(topic events.Topic, payload any) {
	switch topic {
	case events.TopicPTYOutput:
		if out, ok := payload.(ptysup.PTYOutputPayload); ok && out.AgentID == t.agentID {
			os.Stdout.WriteString(out.Data)
		}
	case events.TopicPTYExit:
		if exit, ok := payload.(ptysup.PTYExitPayload); ok && exit.AgentID == t.agentID {
			t.once.Do(func() {
				t.exitCode = exit.ExitCode
				close(t.done)
			})
		}
	}
}

// wait blocks until the agent's pty-exit event arrives and returns its
// exit code (-1 if the child was killed by a signal, nil if its exit
// status could not be determined).
func (t *terminalIO) wait() *int {
	<-t.done
	return t.exitCode
}

// supervisorWriter is the minimal surface attachStdin/attachResize need
// from ptysup.Supervisor, kept narrow so the two functions below don't
// depend on the concrete type.
type supervisorWriter interface {
	Write(agentID string, data []byte) error
	Resize(agentID string, rows, cols int) error
}

// attachStdin copies stdin to the agent's pty until EOF, a write error, or
// done is closed. It runs in its own goroutine; call from the interactive
// command after spawning.
func attachStdin(sup supervisorWriter, agentID string, done <-chan struct{}) {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if werr := sup.Write(agentID, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "attach: stdin read: %v\n", err)
			}
			return
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

// attachResize forwards SIGWINCH to the agent's pty as a resize until done
// is closed. It returns a stop function that undoes signal.Notify.
func attachResize(sup supervisorWriter, agentID string, fd int, done <-chan struct{}) (stop func()) {
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-winch:
				if w, h, err := term.GetSize(fd); err == nil {
					sup.Resize(agentID, h, w)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { signal.Stop(winch) }
}

// withRawTerminal puts fd into raw mode for the duration of fn, restoring
// it afterward. If fd is not a terminal (e.g. output piped to a file), fn
// runs unmodified.
func withRawTerminal(fd int, fn func()) error {
	if !term.IsTerminal(fd) {
		fn()
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("attach: enter raw mode: %w", err)
	}
	defer term.Restore(fd, state)
	fn()
	return nil
}
