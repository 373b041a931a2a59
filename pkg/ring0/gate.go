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
	"encoding/binary"
	"fmt"

	"gvisor.dev/trapgate/pkg/bits"
)

// GateType is the system descriptor type held in bits 8-11 of the gate
// options.
type GateType uint16

// Gate types valid in a 64-bit IDT.
const (
	InterruptGate GateType = 0xe
	TrapGate      GateType = 0xf
)

// String implements fmt.Stringer.String.
func (t GateType) String() string {
	switch t {
	case InterruptGate:
		return "interrupt"
	case TrapGate:
		return "trap"
	default:
		return fmt.Sprintf("type(%#x)", uint16(t))
	}
}

// Gate option bit positions.
const (
	gateISTShift   = 0
	gateISTWidth   = 3
	gateIFBit      = 8 // Set: trap gate, interrupts stay enabled.
	gateFixedShift = 9
	gateFixedWidth = 3
	gateFixedBits  = 0b111
	gateDPLShift   = 13
	gateDPLWidth   = 2
	gatePresentBit = 15
)

// MaxStackIndex is the highest interrupt stack table slot. Slots are
// zero-based here; the processor field is one-based with zero meaning "do not
// switch stacks".
const MaxStackIndex = 6

// GateOptions is the 16-bit options word of a 64-bit gate.
type GateOptions uint16

// minimalOptions returns options for a non-present interrupt gate.
func minimalOptions() GateOptions {
	return GateOptions(bits.SetField[uint16](0, gateFixedShift, gateFixedWidth, gateFixedBits))
}

// defaultOptions returns options for a present ring 0 interrupt gate.
func defaultOptions() GateOptions {
	o := minimalOptions()
	o.SetPresent(true).DisableInterrupts(true)
	return o
}

// SetPresent sets or clears the present flag.
func (o *GateOptions) SetPresent(present bool) *GateOptions {
	*o = GateOptions(bits.SetBit(uint16(*o), gatePresentBit, present))
	return o
}

// DisableInterrupts selects between an interrupt gate (true: the processor
// clears IF on entry) and a trap gate (false).
func (o *GateOptions) DisableInterrupts(disable bool) *GateOptions {
	*o = GateOptions(bits.SetBit(uint16(*o), gateIFBit, !disable))
	return o
}

// SetPrivilegeLevel sets the descriptor privilege level: the least privileged
// ring allowed to raise the vector with a software interrupt.
func (o *GateOptions) SetPrivilegeLevel(dpl uint16) *GateOptions {
	if dpl > Ring3 {
		panic(fmt.Sprintf("privilege level %d out of range", dpl))
	}
	*o = GateOptions(bits.SetField(uint16(*o), gateDPLShift, gateDPLWidth, dpl))
	return o
}

// SetStackIndex makes the processor switch to interrupt stack table slot
// index when delivering through this gate.
func (o *GateOptions) SetStackIndex(index uint16) *GateOptions {
	if index > MaxStackIndex {
		panic(fmt.Sprintf("interrupt stack index %d out of range [0, %d]", index, MaxStackIndex))
	}
	*o = GateOptions(bits.SetField(uint16(*o), gateISTShift, gateISTWidth, index+1))
	return o
}

// ClearStackIndex makes the gate run on the current (or privilege level 0)
// stack.
func (o *GateOptions) ClearStackIndex() *GateOptions {
	*o = GateOptions(bits.SetField(uint16(*o), gateISTShift, gateISTWidth, 0))
	return o
}

// Present returns the present flag.
func (o GateOptions) Present() bool {
	return bits.IsOn(uint16(o), bits.MaskOf[uint16](gatePresentBit))
}

// InterruptsDisabled returns true for interrupt gates.
func (o GateOptions) InterruptsDisabled() bool {
	return !bits.IsOn(uint16(o), bits.MaskOf[uint16](gateIFBit))
}

// PrivilegeLevel returns the descriptor privilege level.
func (o GateOptions) PrivilegeLevel() uint16 {
	return bits.Field(uint16(o), gateDPLShift, gateDPLWidth)
}

// StackIndex returns the zero-based interrupt stack table slot, if any.
func (o GateOptions) StackIndex() (uint16, bool) {
	ist := bits.Field(uint16(o), gateISTShift, gateISTWidth)
	if ist == 0 {
		return 0, false
	}
	return ist - 1, true
}

// Type returns the gate type.
func (o GateOptions) Type() GateType {
	return GateType(bits.Field(uint16(o), gateIFBit, 4))
}

// String implements fmt.Stringer.String.
func (o GateOptions) String() string {
	ist := "-"
	if idx, ok := o.StackIndex(); ok {
		ist = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("%#04x{present=%t type=%v dpl=%d ist=%s}", uint16(o), o.Present(), o.Type(), o.PrivilegeLevel(), ist)
}

// GateSize is the size of a 64-bit gate in bytes.
const GateSize = 16

// Gate64 is a 64-bit task, trap, or interrupt gate.
//
// The field order is the hardware layout; the struct has no padding.
type Gate64 struct {
	offsetLow  uint16
	selector   Selector
	options    GateOptions
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// NewGate returns a present interrupt gate for the given handler address and
// code segment.
func NewGate(handler uint64, cs Selector) Gate64 {
	g := Gate64{
		selector: cs,
		options:  defaultOptions(),
	}
	g.SetHandlerAddr(handler)
	return g
}

// MissingGate returns a gate that the processor will never dispatch to.
func MissingGate() Gate64 {
	return Gate64{options: minimalOptions()}
}

// SetHandlerAddr splits addr across the three offset fields.
func (g *Gate64) SetHandlerAddr(addr uint64) {
	g.offsetLow = uint16(addr)
	g.offsetMid = uint16(addr >> 16)
	g.offsetHigh = uint32(addr >> 32)
}

// Handler reassembles the handler address.
func (g *Gate64) Handler() uint64 {
	return uint64(g.offsetLow) | uint64(g.offsetMid)<<16 | uint64(g.offsetHigh)<<32
}

// Offsets returns the raw offset fields.
func (g *Gate64) Offsets() (low, mid uint16, high uint32) {
	return g.offsetLow, g.offsetMid, g.offsetHigh
}

// Selector returns the code segment selector.
func (g *Gate64) Selector() Selector {
	return g.selector
}

// Options returns the options word for in-place modification.
func (g *Gate64) Options() *GateOptions {
	return &g.options
}

// Present returns true if the processor may dispatch through g.
func (g *Gate64) Present() bool {
	return g.options.Present()
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (*Gate64) SizeBytes() int {
	return GateSize
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (g *Gate64) MarshalBytes(dst []byte) []byte {
	binary.LittleEndian.PutUint16(dst[0:], g.offsetLow)
	binary.LittleEndian.PutUint16(dst[2:], uint16(g.selector))
	binary.LittleEndian.PutUint16(dst[4:], uint16(g.options))
	binary.LittleEndian.PutUint16(dst[6:], g.offsetMid)
	binary.LittleEndian.PutUint32(dst[8:], g.offsetHigh)
	binary.LittleEndian.PutUint32(dst[12:], g.reserved)
	return dst[GateSize:]
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (g *Gate64) UnmarshalBytes(src []byte) []byte {
	g.offsetLow = binary.LittleEndian.Uint16(src[0:])
	g.selector = Selector(binary.LittleEndian.Uint16(src[2:]))
	g.options = GateOptions(binary.LittleEndian.Uint16(src[4:]))
	g.offsetMid = binary.LittleEndian.Uint16(src[6:])
	g.offsetHigh = binary.LittleEndian.Uint32(src[8:])
	g.reserved = binary.LittleEndian.Uint32(src[12:])
	return src[GateSize:]
}

// String implements fmt.Stringer.String.
func (g Gate64) String() string {
	if !g.Present() {
		return "<missing>"
	}
	return fmt.Sprintf("handler=%#016x cs=%v %v", g.Handler(), g.selector, g.options)
}
