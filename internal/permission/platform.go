package permission

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ConsolePlatform prompts on a terminal. The native decision is persisted in
// the durable store by the machine; this platform keeps the session answer so
// repeated queries within one run stay consistent.
type ConsolePlatform struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	current Native
}

// NewConsolePlatform creates a platform reading from stdin and writing to stderr.
func NewConsolePlatform(initial Native) *ConsolePlatform {
	if !initial.IsValid() || initial == NativeUnknown {
		initial = NativeDefault
	}
	return &ConsolePlatform{in: os.Stdin, out: os.Stderr, current: initial}
}

// NewConsolePlatformIO creates a platform with explicit streams. Used in tests.
func NewConsolePlatformIO(in io.Reader, out io.Writer, initial Native) *ConsolePlatform {
	p := NewConsolePlatform(initial)
	p.in = in
	p.out = out
	return p
}

// Supported implements Platform.
func (p *ConsolePlatform) Supported() bool { return true }

// Query implements Platform.
func (p *ConsolePlatform) Query(ctx context.Context) (Native, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

// Prompt implements Platform. The answer is read from the input stream; an
// explicit "no" denies, anything affirmative grants, and everything else stays
// at default.
func (p *ConsolePlatform) Prompt(ctx context.Context) (Native, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()
	if current != NativeDefault {
		// Only the default state may be prompted; granted/denied are final.
		return current, nil
	}

	fmt.Fprint(p.out, "Allow notifications for this device? [y/n] ")

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		reader := bufio.NewReader(p.in)
		line, err := reader.ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return current, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return current, nil
		}
		next := parseAnswer(a.text)
		p.mu.Lock()
		p.current = next
		p.mu.Unlock()
		return next, nil
	}
}

func parseAnswer(text string) Native {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes":
		return NativeGranted
	case "n", "no":
		return NativeDenied
	default:
		return NativeDefault
	}
}

// StaticPlatform is a fixed-state Platform for tests and non-interactive runs.
type StaticPlatform struct {
	SupportedValue bool
	State          Native
	PromptState    Native
	PromptErr      error

	promptCalls int
	mu          sync.Mutex
}

// Supported implements Platform.
func (p *StaticPlatform) Supported() bool { return p.SupportedValue }

// Query implements Platform.
func (p *StaticPlatform) Query(ctx context.Context) (Native, error) {
	return p.State, nil
}

// Prompt implements Platform.
func (p *StaticPlatform) Prompt(ctx context.Context) (Native, error) {
	p.mu.Lock()
	p.promptCalls++
	p.mu.Unlock()
	if p.PromptErr != nil {
		return p.State, p.PromptErr
	}
	if p.PromptState != "" {
		return p.PromptState, nil
	}
	return p.State, nil
}

// PromptCalls returns the number of Prompt invocations.
func (p *StaticPlatform) PromptCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.promptCalls
}
