// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scenario contains kernel test programs that run on the emulator.
//
// Each scenario boots a kernel on a fresh machine, runs a program that
// provokes exceptions, and checks how the machine stopped and what it wrote
// on the serial port.
package scenario

import (
	"fmt"
	"sort"
	"strings"

	"gvisor.dev/trapgate/pkg/console"
	"gvisor.dev/trapgate/pkg/kernel"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/qemu"
	"gvisor.dev/trapgate/pkg/ring0/emu"
)

// Env is what a program runs against.
type Env struct {
	Machine *emu.Machine
	Kernel  *kernel.Kernel
	Serial  *console.Serial
}

// Printf writes to the serial port.
func (e *Env) Printf(format string, v ...any) {
	fmt.Fprintf(e.Serial, format, v...)
}

// Test runs fn as a named test in the style of a kernel test runner: the
// name is printed first and "[ok]" once fn returns.
func (e *Env) Test(name string, fn func()) {
	e.Printf("%s...\t", name)
	fn()
	e.Serial.WriteLine([]byte("[ok]"))
}

// Expectation is how a scenario must end.
type Expectation struct {
	// State is the final machine state.
	State emu.State

	// ExitCode is checked when State is emu.StateExited.
	ExitCode qemu.ExitCode

	// Output lists substrings of the serial output, in order.
	Output []string
}

// Scenario is a kernel test program.
type Scenario struct {
	// Name identifies the scenario on the command line.
	Name string

	// Description is a one line summary.
	Description string

	// Kernel configures the kernel. Init is skipped if SkipInit is set.
	Kernel   kernel.Options
	SkipInit bool

	// Program runs after kernel initialization.
	Program func(env *Env)

	// Expect is the expected outcome.
	Expect Expectation
}

// RunOptions are the machine and kernel settings shared by all scenarios.
type RunOptions struct {
	Machine emu.Options

	// DoubleFaultStackIndex overrides the kernel's double fault stack slot.
	DoubleFaultStackIndex uint16
}

// Result is the outcome of one run.
type Result struct {
	Scenario   string
	State      emu.State
	ExitStatus int
	Reason     string
	Output     string
	Deliveries []emu.Delivery

	// Mismatch describes how the outcome differs from the expectation, or
	// is empty.
	Mismatch string
}

// Passed returns true if the run met its expectation.
func (r *Result) Passed() bool {
	return r.Mismatch == ""
}

// Run runs s on a fresh machine. The returned error reports failures to set
// up the machine; the outcome of the program itself is in the Result.
func (s *Scenario) Run(opts RunOptions) (*Result, error) {
	m, err := emu.New(opts.Machine)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	defer m.Close()

	kopts := s.Kernel
	kopts.DoubleFaultStackIndex = opts.DoubleFaultStackIndex

	env := &Env{
		Machine: m,
		// Heap allocated, so never moved.
		Kernel: new(kernel.Kernel),
		Serial: console.NewSerial(m, console.COM1),
	}
	log.Debugf("Running scenario %s", s.Name)
	state := m.Run(func(*emu.Machine) {
		env.Serial.Init()
		if !s.SkipInit {
			env.Kernel.Init(m, env.Serial, kopts)
		}
		s.Program(env)
	})

	r := &Result{
		Scenario:   s.Name,
		State:      state,
		ExitStatus: m.ExitStatus(),
		Reason:     m.Reason(),
		Output:     m.Serial(),
		Deliveries: m.Deliveries(),
	}
	r.Mismatch = s.Expect.check(m)
	log.Debugf("Scenario %s stopped in state %v: %q", s.Name, state, r.Mismatch)
	return r, nil
}

// check returns a description of how m differs from e.
func (e *Expectation) check(m *emu.Machine) string {
	if m.State() != e.State {
		return fmt.Sprintf("machine %v, want %v", m.State(), e.State)
	}
	if e.State == emu.StateExited {
		if code, _ := m.ExitCode(); qemu.ExitCode(code) != e.ExitCode {
			return fmt.Sprintf("exit code %v, want %v", qemu.ExitCode(code), e.ExitCode)
		}
	}
	out := m.Serial()
	for _, want := range e.Output {
		i := strings.Index(out, want)
		if i < 0 {
			return fmt.Sprintf("output does not contain %q", want)
		}
		out = out[i+len(want):]
	}
	return ""
}

var scenarios = map[string]*Scenario{}

// register adds s to the set of scenarios.
func register(s *Scenario) {
	if _, ok := scenarios[s.Name]; ok {
		panic(fmt.Sprintf("scenario %q registered twice", s.Name))
	}
	scenarios[s.Name] = s
}

// Lookup returns the scenario with the given name.
func Lookup(name string) (*Scenario, bool) {
	s, ok := scenarios[name]
	return s, ok
}

// All returns every scenario, sorted by name.
func All() []*Scenario {
	all := make([]*Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Names returns the names of every scenario, sorted.
func Names() []string {
	var names []string
	for _, s := range All() {
		names = append(names, s.Name)
	}
	return names
}
