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

package ring0

// Ports is port-mapped I/O.
type Ports interface {
	// InB reads a byte from port.
	InB(port uint16) uint8

	// OutB writes a byte to port.
	OutB(port uint16, value uint8)

	// OutL writes a doubleword to port.
	OutL(port uint16, value uint32)
}

// Hardware is the set of privileged operations used by this package.
//
// There is one implementation per target: package metal issues the
// instructions on bare-metal amd64, package emu executes them against an
// emulated processor.
type Hardware interface {
	Ports

	// LoadGDT loads the global descriptor table register from s.GDT(). The
	// processor latches the address; s must not move afterwards.
	LoadGDT(s *Segments)

	// SetCodeSegment reloads CS.
	SetCodeSegment(sel Selector)

	// SetDataSegments reloads SS, DS and ES.
	SetDataSegments(sel Selector)

	// LoadTaskRegister loads the task register, marking the referenced
	// TSS descriptor busy.
	LoadTaskRegister(sel Selector)

	// CodeSegment returns the current CS.
	CodeSegment() Selector

	// LoadIDT loads the interrupt descriptor table register from
	// t.Pointer(). The processor latches the address; t must not move
	// afterwards.
	LoadIDT(t *IDT)

	// EntryPoint returns the address of the low-level entry stub for v.
	// The stub saves state, calls IDT.Dispatch and returns with iretq.
	EntryPoint(v Vector) uint64

	// EnableInterrupts sets RFLAGS.IF.
	EnableInterrupts()

	// DisableInterrupts clears RFLAGS.IF.
	DisableInterrupts()

	// Halt stops the processor until the next interrupt.
	Halt()
}

// HaltLoop halts forever.
//
//go:nosplit
func HaltLoop(hw Hardware) {
	for {
		hw.Halt()
	}
}
