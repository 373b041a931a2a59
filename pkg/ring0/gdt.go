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

import (
	"fmt"
	"unsafe"

	"gvisor.dev/trapgate/pkg/hostarch"
)

// Segment indices and Selectors.
const (
	// Index into GDT array.
	_        = iota // Null descriptor first.
	segKcode        // Kernel code (64-bit).
	segKdata        // Kernel data.
	segTss          // Task segment descriptor.
	segTssHi        // Upper bits for TSS.
	segLast         // Last segment (terminal, not included).
)

// Selectors.
const (
	Kcode Selector = segKcode << 3
	Kdata Selector = segKdata << 3
	Tss   Selector = segTss << 3
)

// descriptorTable is a collection of descriptors.
type descriptorTable [segLast]SegmentDescriptor

// Segments is the global descriptor table together with the task state
// segment it references.
//
// Like the IDT, a Segments is latched by address when loaded and must not be
// moved afterwards.
type Segments struct {
	gdt descriptorTable
	tss TaskState64

	// stackIndex is the interrupt stack table slot holding stack.
	stackIndex int

	// stack is the alternate stack installed in the TSS.
	stack *InterruptStack
}

// Init builds the descriptor table and installs stack in interrupt stack
// table slot stackIndex.
//
// This is the only place the alternate stack address is computed.
func (s *Segments) Init(stack *InterruptStack, stackIndex int) {
	if stack == nil {
		panic("no interrupt stack")
	}
	if stackIndex < 0 || stackIndex > MaxStackIndex {
		panic(fmt.Sprintf("interrupt stack index %d out of range [0, %d]", stackIndex, MaxStackIndex))
	}
	top := stack.Top()
	if !hostarch.Addr(top).IsAligned(hostarch.StackAlignment) || top <= uint64(stack.Range().Start) {
		panic(fmt.Sprintf("bad interrupt stack top %#x for %v", top, stack.Range()))
	}

	s.tss = TaskState64{}
	s.tss.SetIST(stackIndex, top)
	s.stackIndex = stackIndex
	s.stack = stack

	// Null segment.
	s.gdt[0].setNull()

	// Kernel segments.
	s.gdt[segKcode].setCode64(0, 0, Ring0)
	s.gdt[segKdata].setData(0, 0xffffffff, Ring0)

	// The task segment, this spans two entries.
	tssBase, tssLimit, _ := s.TSS()

	// Set the I/O bitmap base address beyond the last byte in the TSS
	// to block access to the entire I/O address range.
	//
	// From section 18.5.2 "I/O Permission Bit Map" from Intel SDM vol1:
	// I/O addresses not spanned by the map are treated as if they had set
	// bits in the map.
	s.tss.ioPerm = tssLimit + 1

	s.gdt[segTss].setTSS(uint32(tssBase), uint32(tssLimit))
	s.gdt[segTssHi].setHi(uint32(tssBase >> 32))
}

// Load loads the descriptor table, reloads the segment registers and loads
// the task register.
func (s *Segments) Load(hw Hardware) {
	if s.stack == nil {
		panic("Segments.Load before Init")
	}
	hw.LoadGDT(s)
	hw.SetCodeSegment(Kcode)
	hw.SetDataSegments(Kdata)
	hw.LoadTaskRegister(Tss)
}

// StackIndex returns the interrupt stack table slot holding the alternate
// stack. Gates that must survive a corrupt kernel stack use it.
func (s *Segments) StackIndex() uint16 {
	return uint16(s.stackIndex)
}

// Stack returns the alternate stack.
func (s *Segments) Stack() *InterruptStack {
	return s.stack
}

// GDT returns the descriptor table base and limit.
//
//go:nosplit
func (s *Segments) GDT() (uint64, uint16) {
	return uint64(uintptr(unsafe.Pointer(&s.gdt[0]))), uint16(unsafe.Sizeof(s.gdt) - 1)
}

// TSS returns the TSS base, limit and descriptor.
//
//go:nosplit
func (s *Segments) TSS() (uint64, uint16, *SegmentDescriptor) {
	return uint64(uintptr(unsafe.Pointer(&s.tss))), uint16(unsafe.Sizeof(s.tss) - 1), &s.gdt[segTss]
}

// TaskState returns the task state segment.
func (s *Segments) TaskState() *TaskState64 {
	return &s.tss
}

// Descriptor returns the descriptor referenced by sel, or nil if sel is
// outside the table.
func (s *Segments) Descriptor(sel Selector) *SegmentDescriptor {
	if sel.LDT() || sel.Index() >= len(s.gdt) {
		return nil
	}
	return &s.gdt[sel.Index()]
}

// TSSBase reassembles the 64-bit TSS base address from the two descriptor
// slots referenced by sel, as the processor does on a task register load.
func (s *Segments) TSSBase(sel Selector) (uint64, bool) {
	lo := s.Descriptor(sel)
	if lo == nil || sel.Index()+1 >= len(s.gdt) {
		return 0, false
	}
	hi := &s.gdt[sel.Index()+1]
	return uint64(hi.bits[0])<<32 | uint64(lo.Base()), true
}

// Descriptors returns a copy of the table.
func (s *Segments) Descriptors() []SegmentDescriptor {
	return append([]SegmentDescriptor(nil), s.gdt[:]...)
}
