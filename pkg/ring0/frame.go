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

import "fmt"

// Frame is the interrupt stack frame pushed by the processor, lowest address
// first. The error code, when there is one, sits immediately below it and is
// passed to handlers separately.
type Frame struct {
	// RIP is the return address: the faulting instruction for faults, the
	// following instruction for traps.
	RIP uint64

	// CS is the code segment at the time of the interrupt.
	CS uint64

	// RFLAGS is the flags register at the time of the interrupt.
	RFLAGS uint64

	// RSP is the stack pointer at the time of the interrupt.
	RSP uint64

	// SS is the stack segment at the time of the interrupt.
	SS uint64
}

// FrameSize is the number of bytes the processor pushes for a Frame.
const FrameSize = 5 * 8

// String implements fmt.Stringer.String.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{RIP: %#x, CS: %#x, RFLAGS: %#x, RSP: %#x, SS: %#x}", f.RIP, f.CS, f.RFLAGS, f.RSP, f.SS)
}

// HandlerFunc handles a vector without an error code.
//
// Handlers run in interrupt context: they must not allocate or take locks the
// interrupted code may hold.
type HandlerFunc func(f *Frame)

// HandlerFuncWithErr handles a vector for which the processor pushes an error
// code.
type HandlerFuncWithErr func(f *Frame, errorCode uint64)
