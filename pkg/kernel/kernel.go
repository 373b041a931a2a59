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

// Package kernel sets up exception handling for a bare-metal kernel.
//
// Init runs once on the boot processor, with interrupts disabled. It builds
// the GDT and TSS, populates and loads the IDT, and enables interrupts.
// Afterwards the processor calls the handlers in this package directly.
package kernel

import (
	"fmt"

	"gvisor.dev/trapgate/pkg/pic"
	"gvisor.dev/trapgate/pkg/ring0"
)

// Console receives the lines written by exception handlers.
//
// WriteLine is called in interrupt context; it must not allocate and must
// not block on anything the interrupted code may hold.
type Console interface {
	WriteLine(line []byte)
}

// DefaultDoubleFaultStackIndex is the interrupt stack table slot used for
// the double fault handler.
const DefaultDoubleFaultStackIndex = 0

// Options configures Init.
type Options struct {
	// DoubleFaultStackIndex is the interrupt stack table slot holding the
	// double fault stack, in [0, ring0.MaxStackIndex].
	DoubleFaultStackIndex uint16

	// NoDoubleFaultStack leaves the double fault gate on the interrupted
	// stack. A kernel stack overflow then resets the processor.
	NoDoubleFaultStack bool

	// TestMode replaces the double fault handler with one that reports
	// success through the debug exit device.
	TestMode bool

	// OnPanic, if set, replaces the default Panic behaviour. It must not
	// return.
	OnPanic func(k *Kernel, msg string)
}

// Kernel is the exception handling state of one processor.
//
// A Kernel is latched by address once initialized and must not be copied or
// moved: use the package singleton via Init, or a heap allocated Kernel.
type Kernel struct {
	segs  ring0.Segments
	idt   ring0.IDT
	stack ring0.InterruptStack

	hw      ring0.Hardware
	console Console
	opts    Options

	// buf formats handler output.
	buf lineBuffer

	initialized bool
}

// Init brings up exception handling, in order: segments, table
// construction, table load, interrupt controller setup, interrupt enable.
//
// Precondition: interrupts are disabled. Init may only be called once.
func (k *Kernel) Init(hw ring0.Hardware, console Console, opts Options) {
	if k.initialized {
		panic("kernel initialized twice")
	}
	if opts.DoubleFaultStackIndex > ring0.MaxStackIndex {
		panic(fmt.Sprintf("double fault stack index %d out of range [0, %d]", opts.DoubleFaultStackIndex, ring0.MaxStackIndex))
	}
	k.hw = hw
	k.console = console
	k.opts = opts

	// The TSS must be live before any gate refers to its stack index.
	k.segs.Init(&k.stack, int(opts.DoubleFaultStackIndex))
	k.segs.Load(hw)

	k.idt.Init()
	k.installHandlers()
	k.idt.Load(hw)

	// Legacy IRQs would otherwise arrive on exception vectors.
	pic.Init(hw)

	k.initialized = true
	hw.EnableInterrupts()
}

// installHandlers populates the table.
func (k *Kernel) installHandlers() {
	k.idt.SetHandler(k.hw, ring0.DivideByZero, k.divideByZero)
	k.idt.SetHandler(k.hw, ring0.Breakpoint, k.breakpoint)

	df := k.doubleFault
	if k.opts.TestMode {
		df = k.testDoubleFault
	}
	opts := k.idt.SetHandlerWithErr(k.hw, ring0.DoubleFault, df)
	if !k.opts.NoDoubleFaultStack {
		opts.SetStackIndex(k.segs.StackIndex())
	}
}

// LoadIDT loads the table again. It has no effect on dispatch.
func (k *Kernel) LoadIDT() {
	k.idt.Load(k.hw)
}

// IDT returns the interrupt descriptor table.
func (k *Kernel) IDT() *ring0.IDT {
	return &k.idt
}

// Segments returns the GDT and TSS.
func (k *Kernel) Segments() *ring0.Segments {
	return &k.segs
}

// DoubleFaultStack returns the double fault stack.
func (k *Kernel) DoubleFaultStack() *ring0.InterruptStack {
	return &k.stack
}

// Initialized returns true once Init has completed.
func (k *Kernel) Initialized() bool {
	return k.initialized
}

// boot is the kernel of the boot processor.
var boot Kernel

// Init initializes the boot processor's kernel. It is called once from the
// boot entry.
func Init(hw ring0.Hardware, console Console, opts Options) *Kernel {
	boot.Init(hw, console, opts)
	return &boot
}
