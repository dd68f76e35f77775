package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

// Spinner is a progress indicator showing a message, an animation frame
// and an optional done/total counter. It replaces the progress bars of
// long running batch steps.
type Spinner struct {
	mu         *sync.RWMutex
	delay      time.Duration
	writer     io.Writer
	message    string
	lastOutput string
	StopMsg    string
	hideCursor bool
	enabled    bool
	done       int
	total      int
	stopChan   chan struct{}
	stopped    chan struct{}
}

// NewSpinner instantiates a new progress indicator writing to stderr.
// The indicator stays silent when stderr is not a terminal, so logs
// redirected to a file are not littered with control sequences.
func NewSpinner(msg string, d time.Duration, hideCursor bool) *Spinner {
	return &Spinner{
		mu:         &sync.RWMutex{},
		delay:      d,
		writer:     os.Stderr,
		message:    msg,
		hideCursor: hideCursor,
		enabled:    term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// SetWriter redirects the output and forces the indicator on or off.
func (s *Spinner) SetWriter(w io.Writer, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer = w
	s.enabled = enabled
}

// SetTotal sets the number of expected steps. Zero hides the counter.
func (s *Spinner) SetTotal(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = total
}

// Step advances the counter by one.
func (s *Spinner) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done++
}

// Done returns the number of completed steps.
func (s *Spinner) Done() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.done
}

// Start starts the progress indicator.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.stopChan != nil {
		return
	}
	if s.hideCursor && runtime.GOOS != "windows" {
		// hides the cursor
		fmt.Fprint(s.writer, "\033[?25l")
	}
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})

	go func(stop, stopped chan struct{}) {
		defer close(stopped)
		for {
			for _, r := range `⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏` {
				select {
				case <-stop:
					return
				default:
					s.mu.Lock()
					counter := ""
					if s.total > 0 {
						counter = " " + FormatProgress(s.done, s.total)
					}
					output := fmt.Sprintf("\r%s%s %c%s%s", s.message, SuccessColor, r, DefaultColor, counter)
					fmt.Fprint(s.writer, output)
					s.lastOutput = output
					s.mu.Unlock()

					time.Sleep(s.delay)
				}
			}
		}
	}(s.stopChan, s.stopped)
}

// Stop stops the progress indicator and prints the stop message, if any.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, stopped := s.stopChan, s.stopped
	s.stopChan, s.stopped = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	s.restoreCursor()
	if len(s.StopMsg) > 0 {
		fmt.Fprint(s.writer, s.StopMsg)
	}
}

// RestoreCursor restores back the cursor visibility.
func (s *Spinner) RestoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreCursor()
}

func (s *Spinner) restoreCursor() {
	if s.enabled && s.hideCursor && runtime.GOOS != "windows" {
		// makes the cursor visible
		fmt.Fprint(s.writer, "\033[?25h")
	}
}

// clear deletes the last line. Caller must hold the locker.
func (s *Spinner) clear() {
	n := utf8.RuneCountInString(s.lastOutput)
	if runtime.GOOS == "windows" {
		clearString := "\r" + strings.Repeat(" ", n) + "\r"
		fmt.Fprint(s.writer, clearString)
		s.lastOutput = ""
		return
	}
	fmt.Fprint(s.writer, "\r\033[K") // clear line
	s.lastOutput = ""
}
