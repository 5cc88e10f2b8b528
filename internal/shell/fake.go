package shell

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded invocation on a Fake.
type Call struct {
	Name     string
	Args     []string
	Input    []byte
	Detached bool
}

// Line returns the call as a single space-joined command line.
func (c Call) Line() string { return commandLine(c.Name, c.Args) }

// Fake is a Runner that records calls and answers from canned outputs keyed
// by command line. Unknown commands succeed with empty output.
type Fake struct {
	mu      sync.Mutex
	calls   []Call
	outputs map[string][]byte
	errs    map[string]error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		outputs: make(map[string][]byte),
		errs:    make(map[string]error),
	}
}

// SetOutput makes the command line return out.
func (f *Fake) SetOutput(line, out string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[line] = []byte(out)
}

// SetError makes the command line fail with err.
func (f *Fake) SetError(line string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[line] = err
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns the recorded calls as command lines.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Line()
	}
	return out
}

// Reset forgets recorded calls, keeping canned outputs.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(c Call) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	line := c.Line()
	if err, ok := f.errs[line]; ok {
		return nil, err
	}
	return f.outputs[line], nil
}

func (f *Fake) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	return f.record(Call{Name: name, Args: args})
}

func (f *Fake) OutputWithInput(_ context.Context, input []byte, name string, args ...string) ([]byte, error) {
	return f.record(Call{Name: name, Args: args, Input: input})
}

func (f *Fake) Run(_ context.Context, name string, args ...string) error {
	_, err := f.record(Call{Name: name, Args: args})
	return err
}

func (f *Fake) RunWithInput(_ context.Context, input []byte, name string, args ...string) error {
	_, err := f.record(Call{Name: name, Args: args, Input: input})
	return err
}

func (f *Fake) Start(name string, args ...string) error {
	_, err := f.record(Call{Name: name, Args: args, Detached: true})
	return err
}

func (f *Fake) Shell(_ context.Context, command string) error {
	_, err := f.record(Call{Name: "sh", Args: []string{"-c", command}})
	return err
}

// HasPrefix reports whether any recorded command line starts with prefix.
func (f *Fake) HasPrefix(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
