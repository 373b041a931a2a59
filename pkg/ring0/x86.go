// Copyright 2018 The gVisor Authors.
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

// Vector is an exception vector.
type Vector uint8

// NumVectors is the number of gates in a full interrupt descriptor table.
const NumVectors = 256

// Exception vectors.
const (
	DivideByZero Vector = iota
	Debug
	NMI
	Breakpoint
	Overflow
	BoundRangeExceeded
	InvalidOpcode
	DeviceNotAvailable
	DoubleFault
	CoprocessorSegmentOverrun
	InvalidTSS
	SegmentNotPresent
	StackSegmentFault
	GeneralProtectionFault
	PageFault
	_
	X87FloatingPointException
	AlignmentCheck
	MachineCheck
	SIMDFloatingPointException
	VirtualizationException
	ControlProtectionException
	HypervisorInjectionException Vector = 0x1c
	VMMCommunicationException    Vector = 0x1d
	SecurityException            Vector = 0x1e

	// FirstExternal is the first vector not reserved by the architecture.
	FirstExternal Vector = 0x20

	// MaxVector is the last vector representable in the table.
	MaxVector Vector = NumVectors - 1
)

var vectorNames = map[Vector]string{
	DivideByZero:                 "DivideByZero",
	Debug:                        "Debug",
	NMI:                          "NMI",
	Breakpoint:                   "Breakpoint",
	Overflow:                     "Overflow",
	BoundRangeExceeded:           "BoundRangeExceeded",
	InvalidOpcode:                "InvalidOpcode",
	DeviceNotAvailable:           "DeviceNotAvailable",
	DoubleFault:                  "DoubleFault",
	CoprocessorSegmentOverrun:    "CoprocessorSegmentOverrun",
	InvalidTSS:                   "InvalidTSS",
	SegmentNotPresent:            "SegmentNotPresent",
	StackSegmentFault:            "StackSegmentFault",
	GeneralProtectionFault:       "GeneralProtectionFault",
	PageFault:                    "PageFault",
	X87FloatingPointException:    "X87FloatingPointException",
	AlignmentCheck:               "AlignmentCheck",
	MachineCheck:                 "MachineCheck",
	SIMDFloatingPointException:   "SIMDFloatingPointException",
	VirtualizationException:      "VirtualizationException",
	ControlProtectionException:   "ControlProtectionException",
	HypervisorInjectionException: "HypervisorInjectionException",
	VMMCommunicationException:    "VMMCommunicationException",
	SecurityException:            "SecurityException",
}

// String implements fmt.Stringer.String.
func (v Vector) String() string {
	if name, ok := vectorNames[v]; ok {
		return name
	}
	if v < FirstExternal {
		return fmt.Sprintf("Reserved(%#x)", uint8(v))
	}
	return fmt.Sprintf("Interrupt(%#x)", uint8(v))
}

// HasErrorCode returns true if the processor pushes an error code when
// delivering v.
//
// From Intel SDM vol 3, table 6-1 "Protected-Mode Exceptions and Interrupts".
func (v Vector) HasErrorCode() bool {
	switch v {
	case DoubleFault,
		InvalidTSS,
		SegmentNotPresent,
		StackSegmentFault,
		GeneralProtectionFault,
		PageFault,
		AlignmentCheck,
		ControlProtectionException,
		VMMCommunicationException,
		SecurityException:
		return true
	default:
		return false
	}
}

// IsTrap returns true if v is reported after the triggering instruction
// retires, so that returning from the handler resumes at the next
// instruction.
func (v Vector) IsTrap() bool {
	return v == Breakpoint || v == Overflow || v >= FirstExternal
}

// Privilege levels.
const (
	Ring0 = 0
	Ring3 = 3
)

// Selector is a segment Selector.
type Selector uint16

// NewSelector returns a GDT selector for the given descriptor index and
// requested privilege level.
func NewSelector(index uint16, rpl uint16) Selector {
	if rpl > Ring3 {
		panic(fmt.Sprintf("requested privilege level %d out of range", rpl))
	}
	return Selector(index<<3 | rpl)
}

// Index returns the descriptor table index.
func (s Selector) Index() int {
	return int(s >> 3)
}

// RPL returns the requested privilege level.
func (s Selector) RPL() int {
	return int(s & 3)
}

// LDT returns true if the selector references the local descriptor table.
func (s Selector) LDT() bool {
	return s&(1<<2) != 0
}

// String implements fmt.Stringer.String.
func (s Selector) String() string {
	return fmt.Sprintf("%#04x", uint16(s))
}

// Useful bits.
const (
	_RFLAGS_IF       = 1 << 9
	_RFLAGS_RESERVED = 1 << 1
)

const (
	// KernelFlagsSet should always be set in the kernel.
	KernelFlagsSet = _RFLAGS_RESERVED

	// InterruptFlag is the RFLAGS interrupt enable bit.
	InterruptFlag = _RFLAGS_IF
)
