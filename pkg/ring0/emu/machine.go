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

// Package emu is an emulated x86_64 processor implementing ring0.Hardware.
//
// The emulator does not decode instructions. A kernel runs as ordinary Go
// code that calls Machine methods for the instructions whose effect matters
// to interrupt handling (int3, div, call, port I/O, descriptor table loads),
// and the Machine performs exception delivery exactly the way the processor
// does: gate lookup through the latched IDT, interrupt stack table switch
// through the TSS referenced by the task register, frame push onto emulated
// memory, and escalation to double fault and shutdown when delivery itself
// faults.
//
// Stacks are real memory at real host addresses. The kernel stack sits above
// an inaccessible guard page, so that unbounded recursion is observed as a
// page fault exactly at the stack limit.
package emu

import (
	"bytes"
	"fmt"
	"time"

	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/ring0"
)

// State is the run state of a Machine.
type State int

// Machine states.
const (
	// StateRunning is the state of a machine that has not stopped.
	StateRunning State = iota

	// StateReturned means the program returned.
	StateReturned

	// StateHalted means the processor halted with nothing to wake it.
	StateHalted

	// StateExited means the program wrote to the debug exit port.
	StateExited

	// StateReset means the processor shut down after a triple fault.
	StateReset

	// StateStepLimit means the program ran for Options.MaxSteps steps.
	StateStepLimit
)

// String implements fmt.Stringer.String.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReturned:
		return "returned"
	case StateHalted:
		return "halted"
	case StateExited:
		return "exited"
	case StateReset:
		return "reset"
	case StateStepLimit:
		return "step limit"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Machine.
type Options struct {
	// KernelStackSize is the size of the kernel stack. It must be a
	// multiple of the page size. Zero selects DefaultKernelStackSize.
	KernelStackSize uint64

	// FrameSize is the number of stack bytes used by each Call, return
	// address included. Zero selects DefaultFrameSize.
	FrameSize uint64

	// MaxSteps bounds the number of emulated instructions. Zero selects
	// DefaultMaxSteps.
	MaxSteps uint64
}

// Defaults for Options.
const (
	DefaultKernelStackSize = 4 * hostarch.PageSize
	DefaultFrameSize       = 64
	DefaultMaxSteps        = 1 << 20
)

// Memory layout.
const (
	// loadAddress is the initial instruction pointer.
	loadAddress = 0x10_0000

	// functionAddress is where every Call lands.
	functionAddress = 0x20_0000

	// entryBase is the address of the first entry stub; stubs are
	// entryStride bytes apart.
	entryBase   = 0xffff_ffff_8000_1000
	entryStride = 16
)

// Stack region names.
const (
	KernelStack    = "kernel stack"
	GuardPage      = "guard page"
	InterruptStack = "interrupt stack"
)

// Delivery records one exception or interrupt delivered to a handler.
type Delivery struct {
	// Vector is the delivered vector.
	Vector ring0.Vector

	// ErrorCode is the error code pushed, if the vector has one.
	ErrorCode uint64

	// RIP is the return address in the frame.
	RIP uint64

	// RSP is the stack pointer when the handler started.
	RSP uint64

	// Stack names the memory region holding the frame.
	Stack string
}

// String implements fmt.Stringer.String.
func (d Delivery) String() string {
	return fmt.Sprintf("%v code=%#x rip=%#x rsp=%#x (%s)", d.Vector, d.ErrorCode, d.RIP, d.RSP, d.Stack)
}

// Machine is an emulated processor with its memory and devices.
//
// A Machine is not safe for concurrent use.
type Machine struct {
	opts   Options
	mem    memory
	kstack *kernelStack

	// Latched descriptor tables.
	gdt *ring0.Segments
	idt *ring0.IDT

	// Registers.
	cs     ring0.Selector
	ss     ring0.Selector
	tr     ring0.Selector
	rip    uint64
	rsp    uint64
	rflags uint64

	state    State
	exitCode uint32
	reason   string
	steps    uint64

	deliveries []Delivery
	serial     bytes.Buffer
	dlab       bool
	pics       [2]pic

	// unhandled reports deliveries to missing gates.
	unhandled log.Logger
}

var _ ring0.Hardware = (*Machine)(nil)

// New returns a machine in its reset state: interrupts disabled, the boot
// code segment loaded, no descriptor tables and the stack pointer at the
// top of the kernel stack.
func New(opts Options) (*Machine, error) {
	if opts.KernelStackSize == 0 {
		opts.KernelStackSize = DefaultKernelStackSize
	}
	if opts.FrameSize == 0 {
		opts.FrameSize = DefaultFrameSize
	}
	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.FrameSize < 8 || opts.FrameSize%8 != 0 || opts.FrameSize > opts.KernelStackSize {
		return nil, fmt.Errorf("frame size %d must be a multiple of 8 in [8, %d]", opts.FrameSize, opts.KernelStackSize)
	}
	ks, err := newKernelStack(opts.KernelStackSize)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		opts:      opts,
		kstack:    ks,
		cs:        bootCode,
		rip:       loadAddress,
		rsp:       uint64(ks.stack().End),
		rflags:    ring0.KernelFlagsSet,
		unhandled: log.BasicRateLimitedLogger(time.Second),
		pics:      [2]pic{{offset: biosPrimaryOffset}, {offset: biosSecondaryOffset}},
	}
	m.mem.mapRegion(GuardPage, ks.guard(), nil, true)
	m.mem.mapRegion(KernelStack, ks.stack(), ks.data(), false)
	return m, nil
}

// Close releases the kernel stack. The machine must not be used afterwards.
func (m *Machine) Close() error {
	return m.kstack.release()
}

// haltSignal, exitSignal, resetSignal and stepLimitSignal unwind the
// program to Run.
type haltSignal struct{}

type exitSignal struct {
	code uint32
}

type resetSignal struct {
	reason string
}

type stepLimitSignal struct{}

// Run runs program on the machine until it returns, halts, exits or the
// processor shuts down, and returns the resulting state.
//
// A machine runs a single program.
func (m *Machine) Run(program func(m *Machine)) (state State) {
	if m.state != StateRunning {
		panic(fmt.Sprintf("Run on a machine in state %v", m.state))
	}
	defer func() {
		switch r := recover().(type) {
		case nil:
		case haltSignal:
			m.state = StateHalted
		case exitSignal:
			m.state = StateExited
			m.exitCode = r.code
		case resetSignal:
			m.state = StateReset
			m.reason = r.reason
		case stepLimitSignal:
			m.state = StateStepLimit
		default:
			panic(r)
		}
		state = m.state
	}()
	program(m)
	m.state = StateReturned
	return m.state
}

// State returns the run state.
func (m *Machine) State() State {
	return m.state
}

// Reason describes why the machine reset.
func (m *Machine) Reason() string {
	return m.reason
}

// ExitCode returns the value written to the debug exit port.
func (m *Machine) ExitCode() (uint32, bool) {
	return m.exitCode, m.state == StateExited
}

// ExitStatus returns the host exit status QEMU reports for the machine:
// (code << 1) | 1 after a debug exit, and 0 otherwise.
func (m *Machine) ExitStatus() int {
	if m.state != StateExited {
		return 0
	}
	return int(m.exitCode<<1 | 1)
}

// Serial returns everything transmitted on COM1.
func (m *Machine) Serial() string {
	return m.serial.String()
}

// Deliveries returns the deliveries so far, oldest first.
func (m *Machine) Deliveries() []Delivery {
	return append([]Delivery(nil), m.deliveries...)
}

// RIP returns the instruction pointer.
func (m *Machine) RIP() uint64 {
	return m.rip
}

// RSP returns the stack pointer.
func (m *Machine) RSP() uint64 {
	return m.rsp
}

// Stack names the memory region the stack pointer is in.
func (m *Machine) Stack() string {
	if name := m.mem.name(hostarch.Addr(m.rsp)); name != "" {
		return name
	}
	// Nothing pushed yet: the stack pointer is one past the top.
	return m.mem.name(hostarch.Addr(m.rsp - 1))
}

// KernelStack returns the range of the kernel stack.
func (m *Machine) KernelStack() hostarch.AddrRange {
	return m.kstack.stack()
}

// InterruptsEnabled returns RFLAGS.IF.
func (m *Machine) InterruptsEnabled() bool {
	return m.rflags&ring0.InterruptFlag != 0
}

// step accounts for one instruction.
func (m *Machine) step() {
	m.steps++
	if m.steps > m.opts.MaxSteps {
		log.Warningf("Machine stopped after %d steps", m.opts.MaxSteps)
		panic(stepLimitSignal{})
	}
}

// shutdown resets the processor.
func (m *Machine) shutdown(reason string) {
	log.Warningf("Processor shutdown: %s", reason)
	panic(resetSignal{reason: reason})
}
