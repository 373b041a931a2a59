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

//go:build amd64
// +build amd64

package metal

import (
	"encoding/binary"

	"gvisor.dev/trapgate/pkg/ring0"
)

// descriptorPointer is the 10-byte operand of lgdt and lidt: a 16-bit limit
// followed by the 64-bit base.
type descriptorPointer [10]byte

func makeDescriptorPointer(base uint64, limit uint16) descriptorPointer {
	var p descriptorPointer
	binary.LittleEndian.PutUint16(p[:2], limit)
	binary.LittleEndian.PutUint64(p[2:], base)
	return p
}

// loaded is the table the entry stubs dispatch through. It is written once by
// LoadIDT, before interrupts are enabled.
var loaded *ring0.IDT

// pointers are kept in static storage; the processor only reads them during
// the load instruction, but there is no reason to put them on the stack.
var (
	gdtPointer descriptorPointer
	idtPointer descriptorPointer
)

// CPU is the boot processor.
type CPU struct{}

var _ ring0.Hardware = CPU{}

// LoadGDT implements ring0.Hardware.LoadGDT.
//
//go:nosplit
func (CPU) LoadGDT(s *ring0.Segments) {
	gdtPointer = makeDescriptorPointer(s.GDT())
	lgdt(&gdtPointer)
}

// SetCodeSegment implements ring0.Hardware.SetCodeSegment.
//
//go:nosplit
func (CPU) SetCodeSegment(sel ring0.Selector) {
	setCS(uint64(sel))
}

// SetDataSegments implements ring0.Hardware.SetDataSegments.
//
//go:nosplit
func (CPU) SetDataSegments(sel ring0.Selector) {
	setDataSegments(uint64(sel))
}

// LoadTaskRegister implements ring0.Hardware.LoadTaskRegister.
//
//go:nosplit
func (CPU) LoadTaskRegister(sel ring0.Selector) {
	ltr(uint64(sel))
}

// CodeSegment implements ring0.Hardware.CodeSegment.
//
//go:nosplit
func (CPU) CodeSegment() ring0.Selector {
	return ring0.Selector(readCS())
}

// LoadIDT implements ring0.Hardware.LoadIDT.
//
//go:nosplit
func (CPU) LoadIDT(t *ring0.IDT) {
	loaded = t
	idtPointer = makeDescriptorPointer(t.Pointer())
	lidt(&idtPointer)
}

// EntryPoint implements ring0.Hardware.EntryPoint.
//
//go:nosplit
func (CPU) EntryPoint(v ring0.Vector) uint64 {
	return uint64(entryStubs()[v])
}

// EnableInterrupts implements ring0.Hardware.EnableInterrupts.
//
//go:nosplit
func (CPU) EnableInterrupts() {
	sti()
}

// DisableInterrupts implements ring0.Hardware.DisableInterrupts.
//
//go:nosplit
func (CPU) DisableInterrupts() {
	cli()
}

// Halt implements ring0.Hardware.Halt.
//
//go:nosplit
func (CPU) Halt() {
	hlt()
}

// InB implements ring0.Ports.InB.
//
//go:nosplit
func (CPU) InB(port uint16) uint8 {
	return inb(port)
}

// OutB implements ring0.Ports.OutB.
//
//go:nosplit
func (CPU) OutB(port uint16, value uint8) {
	outb(port, value)
}

// OutL implements ring0.Ports.OutL.
//
//go:nosplit
func (CPU) OutL(port uint16, value uint32) {
	outl(port, value)
}

// dispatch is called by the common entry stub with the vector and error code
// it pushed and a pointer to the processor's frame.
//
//go:nosplit
func dispatch(vector, errorCode uint64, f *ring0.Frame) {
	if loaded == nil || !loaded.Dispatch(ring0.Vector(vector), f, errorCode) {
		// Nothing to run: this is a misconfiguration, and there is no
		// one to report it to.
		for {
			hlt()
		}
	}
}
