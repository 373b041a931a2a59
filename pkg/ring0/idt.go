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
)

// idt64 is a 64-bit interrupt descriptor table.
type idt64 [NumVectors]Gate64

// handler is the Go side of a gate; exactly one of fn and fnWithErr is set for
// an installed vector.
type handler struct {
	fn        HandlerFunc
	fnWithErr HandlerFuncWithErr
}

// IDT is an interrupt descriptor table.
//
// gates is what the processor reads; handlers is consulted by the entry stubs
// once the processor has dispatched to them. An IDT is latched by address when
// loaded and must not be moved afterwards: allocate it statically or keep it
// in a heap object for the life of the machine.
type IDT struct {
	gates    idt64
	handlers [NumVectors]handler
}

// NewIDT returns a table with every gate missing.
func NewIDT() *IDT {
	t := &IDT{}
	t.Init()
	return t
}

// Init resets every gate to missing and forgets all handlers.
func (t *IDT) Init() {
	if unsafe.Sizeof(t.gates) != NumVectors*GateSize {
		panic(fmt.Sprintf("size of idt64 is %d, want %d", unsafe.Sizeof(t.gates), NumVectors*GateSize))
	}
	for v := range t.gates {
		t.gates[v] = MissingGate()
		t.handlers[v] = handler{}
	}
}

// Gate returns the gate for v.
func (t *IDT) Gate(v Vector) *Gate64 {
	return &t.gates[v]
}

// SetHandler installs fn for v and returns the gate options for further
// configuration. The gate points at the entry stub for v in the current code
// segment.
//
// The processor does not push an error code for v; installing a handler of
// the wrong kind is a programming error and panics.
func (t *IDT) SetHandler(hw Hardware, v Vector, fn HandlerFunc) *GateOptions {
	if v.HasErrorCode() {
		panic(fmt.Sprintf("vector %v pushes an error code, use SetHandlerWithErr", v))
	}
	if fn == nil {
		panic(fmt.Sprintf("nil handler for vector %v", v))
	}
	t.handlers[v] = handler{fn: fn}
	return t.install(hw, v)
}

// SetHandlerWithErr is SetHandler for vectors with an error code.
func (t *IDT) SetHandlerWithErr(hw Hardware, v Vector, fn HandlerFuncWithErr) *GateOptions {
	if !v.HasErrorCode() {
		panic(fmt.Sprintf("vector %v does not push an error code, use SetHandler", v))
	}
	if fn == nil {
		panic(fmt.Sprintf("nil handler for vector %v", v))
	}
	t.handlers[v] = handler{fnWithErr: fn}
	return t.install(hw, v)
}

func (t *IDT) install(hw Hardware, v Vector) *GateOptions {
	t.gates[v] = NewGate(hw.EntryPoint(v), hw.CodeSegment())
	return t.gates[v].Options()
}

// Clear makes v missing again.
func (t *IDT) Clear(v Vector) {
	t.gates[v] = MissingGate()
	t.handlers[v] = handler{}
}

// Load loads the table into the processor.
//
// Preconditions: every vector reachable from here on is installed, and t
// stays at its current address for as long as it is loaded. Loading again is
// harmless.
func (t *IDT) Load(hw Hardware) {
	hw.LoadIDT(t)
}

// Pointer returns the table base and limit for the IDTR.
//
//go:nosplit
func (t *IDT) Pointer() (uint64, uint16) {
	return uint64(uintptr(unsafe.Pointer(&t.gates[0]))), uint16(unsafe.Sizeof(t.gates) - 1)
}

// Installed returns the vectors with a present gate, in order.
func (t *IDT) Installed() []Vector {
	var vs []Vector
	for v := range t.gates {
		if t.gates[v].Present() {
			vs = append(vs, Vector(v))
		}
	}
	return vs
}

// Dispatch runs the Go handler for v. It is called by the entry stubs on the
// stack the processor selected, and returns false if no handler is
// registered, in which case the stub halts.
//
//go:nosplit
func (t *IDT) Dispatch(v Vector, f *Frame, errorCode uint64) bool {
	h := &t.handlers[v]
	switch {
	case h.fn != nil:
		h.fn(f)
	case h.fnWithErr != nil:
		h.fnWithErr(f, errorCode)
	default:
		return false
	}
	return true
}

// MarshalBytes writes the 4096 bytes the processor reads.
func (t *IDT) MarshalBytes(dst []byte) []byte {
	for v := range t.gates {
		dst = t.gates[v].MarshalBytes(dst)
	}
	return dst
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (*IDT) SizeBytes() int {
	return NumVectors * GateSize
}
