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

package emu

import (
	"errors"
	"fmt"

	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/ring0"
)

// Delivery failures.
var (
	errNoIDT      = errors.New("no IDT loaded")
	errNotPresent = errors.New("gate not present")
	errNoTSS      = errors.New("no task register loaded")
)

// raise delivers v with the given error code and return address.
//
// If delivery itself faults, the processor tries a double fault instead, and
// a fault while delivering a double fault shuts it down.
//
// Every failed delivery escalates directly. Hardware first raises #NP or #GP
// for the failing gate and applies the benign and contributory class rules,
// which only reach #DF for a second contributory fault or a page fault.
func (m *Machine) raise(v ring0.Vector, errorCode, rip uint64) {
	err := m.deliver(v, errorCode, rip)
	if err == nil {
		return
	}
	if v == ring0.DoubleFault {
		m.shutdown(fmt.Sprintf("triple fault: delivering %v: %v", v, err))
	}
	log.Debugf("Delivering %v failed, escalating to %v: %v", v, ring0.DoubleFault, err)
	m.raise(ring0.DoubleFault, 0, rip)
}

// deliver performs one delivery of v: it returns an error if the processor
// would fault before reaching the handler.
func (m *Machine) deliver(v ring0.Vector, errorCode, rip uint64) error {
	if m.idt == nil {
		return errNoIDT
	}
	gate := *m.idt.Gate(v)
	if !gate.Present() {
		m.unhandled.Warningf("Unhandled vector %v at %#x", v, rip)
		return fmt.Errorf("vector %v: %w", v, errNotPresent)
	}
	if got, want := gate.Handler(), m.EntryPoint(v); got != want {
		return fmt.Errorf("vector %v: handler %#x is not an entry point (want %#x)", v, got, want)
	}
	if err := m.checkCode(gate.Selector()); err != nil {
		return fmt.Errorf("vector %v: %w", v, err)
	}

	opts := *gate.Options()
	rsp := m.rsp
	if idx, ok := opts.StackIndex(); ok {
		top, err := m.interruptStackTop(int(idx))
		if err != nil {
			return fmt.Errorf("vector %v: %w", v, err)
		}
		rsp = top
	}
	// The processor aligns the new stack pointer before pushing the frame.
	sp := hostarch.Addr(rsp).AlignDown(hostarch.StackAlignment)

	f := ring0.Frame{
		RIP:    rip,
		CS:     uint64(m.cs),
		RFLAGS: m.rflags,
		RSP:    m.rsp,
		SS:     uint64(m.ss),
	}
	words := []uint64{f.SS, f.RSP, f.RFLAGS, f.CS, f.RIP}
	if v.HasErrorCode() {
		words = append(words, errorCode)
	}
	for _, w := range words {
		sp -= 8
		if err := m.mem.writeUint64(sp, w); err != nil {
			return fmt.Errorf("vector %v: pushing frame: %w", v, err)
		}
	}

	// The handler runs.
	m.rsp = uint64(sp)
	m.cs = gate.Selector()
	if opts.InterruptsDisabled() {
		m.rflags &^= ring0.InterruptFlag
	}
	d := Delivery{
		Vector:    v,
		ErrorCode: errorCode,
		RIP:       rip,
		RSP:       m.rsp,
		Stack:     m.Stack(),
	}
	m.deliveries = append(m.deliveries, d)
	log.Debugf("Delivered %v", d)

	if !m.idt.Dispatch(v, &f, errorCode) {
		m.unhandled.Warningf("No handler registered for present vector %v", v)
		ring0.HaltLoop(m)
	}

	// iretq.
	m.rip = f.RIP
	m.cs = ring0.Selector(f.CS)
	m.rflags = f.RFLAGS
	m.rsp = f.RSP
	m.ss = ring0.Selector(f.SS)
	return nil
}

// interruptStackTop reads interrupt stack table slot idx from the TSS
// referenced by the task register.
func (m *Machine) interruptStackTop(idx int) (uint64, error) {
	if m.gdt == nil || m.tr == 0 {
		return 0, errNoTSS
	}
	base, ok := m.gdt.TSSBase(m.tr)
	if !ok {
		return 0, fmt.Errorf("task register %v outside the GDT", m.tr)
	}
	// The only TSS in memory is the one the GDT was built with.
	if want, _, _ := m.gdt.TSS(); base != want {
		return 0, fmt.Errorf("TSS base %#x is not mapped", base)
	}
	top := m.gdt.TaskState().IST(idx)
	if top == 0 {
		return 0, fmt.Errorf("IST%d is empty", idx+1)
	}
	return top, nil
}
