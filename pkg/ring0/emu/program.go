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

	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/ring0"
)

// Instruction lengths.
const (
	int3Len = 1
	intLen  = 2
	divLen  = 3
	callLen = 5
)

// Int3 executes a breakpoint instruction. The breakpoint is a trap: a
// handler that returns resumes after it.
func (m *Machine) Int3() {
	m.step()
	m.rip += int3Len
	m.raise(ring0.Breakpoint, 0, m.rip)
}

// Int executes a software interrupt for v. Unlike int n on hardware, an
// error code of zero is pushed for vectors that carry one, so that their
// handlers see the frame layout they expect.
func (m *Machine) Int(v ring0.Vector) {
	m.step()
	m.rip += intLen
	m.raise(v, 0, m.rip)
}

// Divide executes an unsigned 64-bit division. Division by zero is a fault:
// the instruction is restarted for as long as the handler returns.
func (m *Machine) Divide(dividend, divisor uint64) uint64 {
	for {
		m.step()
		if divisor != 0 {
			break
		}
		m.raise(ring0.DivideByZero, 0, m.rip)
	}
	m.rip += divLen
	return dividend / divisor
}

// Call calls fn with a new stack frame of Options.FrameSize bytes, the
// return address included.
//
// The call pushes the return address; fn's prologue then lowers the stack
// pointer by the rest of the frame before touching it. Running out of stack
// raises a page fault: on the call, with the stack pointer unchanged, or in
// the prologue, with the stack pointer already below the end of the stack.
func (m *Machine) Call(fn func()) {
	ret := m.rip + callLen
	m.restart(func() error { return m.push(ret) })
	m.rip = functionAddress

	// sub rsp, frame.
	m.step()
	m.rsp -= m.opts.FrameSize - 8
	m.restart(m.touchFrame)

	fn()

	// add rsp, frame; ret.
	m.step()
	m.rsp += m.opts.FrameSize
	m.rip = ret
}

// restart executes op, raising a page fault and retrying for as long as it
// faults and the handler returns.
func (m *Machine) restart(op func() error) {
	for {
		m.step()
		err := op()
		if err == nil {
			return
		}
		var ae *accessError
		if !errors.As(err, &ae) {
			panic(err)
		}
		m.raise(ring0.PageFault, ae.pageFaultCode(), m.rip)
	}
}

// push pushes v. The stack pointer only moves if the write succeeds.
func (m *Machine) push(v uint64) error {
	sp := hostarch.Addr(m.rsp) - 8
	if err := m.mem.writeUint64(sp, v); err != nil {
		return err
	}
	m.rsp = uint64(sp)
	return nil
}

// touchFrame writes every word of the frame below the return address, from
// the top down.
func (m *Machine) touchFrame() error {
	sp := hostarch.Addr(m.rsp)
	for off := m.opts.FrameSize - 8; off > 0; off -= 8 {
		if err := m.mem.writeUint64(sp+hostarch.Addr(off-8), 0); err != nil {
			return err
		}
	}
	return nil
}
