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

// SegmentDescriptor is a segment descriptor.
type SegmentDescriptor struct {
	bits [2]uint32
}

// SegmentDescriptorFlags are typed flags within a descriptor.
type SegmentDescriptorFlags uint32

// SegmentDescriptorFlag declarations.
const (
	SegmentDescriptorAccess     SegmentDescriptorFlags = 1 << 8  // Access bit (always set).
	SegmentDescriptorWrite                             = 1 << 9  // Write permission.
	SegmentDescriptorExpandDown                        = 1 << 10 // Grows down, not used.
	SegmentDescriptorExecute                           = 1 << 11 // Execute permission.
	SegmentDescriptorSystem                            = 1 << 12 // Zero => system, 1 => user code/data.
	SegmentDescriptorPresent                           = 1 << 15 // Present.
	SegmentDescriptorAVL                               = 1 << 20 // Available.
	SegmentDescriptorLong                              = 1 << 21 // Long mode.
	SegmentDescriptorDB                                = 1 << 22 // 16 or 32-bit.
	SegmentDescriptorG                                 = 1 << 23 // Granularity: page or byte.
)

// System descriptor types, held in bits 8-11 when SegmentDescriptorSystem is
// clear.
const (
	SystemTypeTSSAvailable = 0x9
	SystemTypeTSSBusy      = 0xb
)

// Base returns the descriptor's base linear address.
func (d *SegmentDescriptor) Base() uint32 {
	return d.bits[1]&0xFF000000 | (d.bits[1]&0x000000FF)<<16 | d.bits[0]>>16
}

// Limit returns the descriptor size.
func (d *SegmentDescriptor) Limit() uint32 {
	l := d.bits[0]&0xFFFF | d.bits[1]&0xF0000
	if d.bits[1]&uint32(SegmentDescriptorG) != 0 {
		l <<= 12
		l |= 0xFFF
	}
	return l
}

// Flags returns descriptor flags.
func (d *SegmentDescriptor) Flags() SegmentDescriptorFlags {
	return SegmentDescriptorFlags(d.bits[1] & 0x00F09F00)
}

// DPL returns the descriptor privilege level.
func (d *SegmentDescriptor) DPL() int {
	return int((d.bits[1] >> 13) & 3)
}

// Present returns the present flag.
func (d *SegmentDescriptor) Present() bool {
	return d.bits[1]&uint32(SegmentDescriptorPresent) != 0
}

// SystemType returns the type field of a system descriptor, and false for
// code and data descriptors.
func (d *SegmentDescriptor) SystemType() (uint32, bool) {
	if d.bits[1]&uint32(SegmentDescriptorSystem) != 0 {
		return 0, false
	}
	return (d.bits[1] >> 8) & 0xf, true
}

// SetBusy marks an available TSS descriptor busy, as the processor does when
// the task register is loaded.
func (d *SegmentDescriptor) SetBusy() {
	d.bits[1] |= uint32(SegmentDescriptorWrite)
}

// Raw returns the two descriptor words.
func (d *SegmentDescriptor) Raw() uint64 {
	return uint64(d.bits[1])<<32 | uint64(d.bits[0])
}

func (d *SegmentDescriptor) setNull() {
	d.bits[0] = 0
	d.bits[1] = 0
}

func (d *SegmentDescriptor) set(base, limit uint32, dpl int, flags SegmentDescriptorFlags) {
	flags |= SegmentDescriptorPresent
	if limit>>12 != 0 {
		limit >>= 12
		flags |= SegmentDescriptorG
	}
	d.bits[0] = base<<16 | limit&0xFFFF
	d.bits[1] = base&0xFF000000 | (base>>16)&0xFF | limit&0x000F0000 | uint32(flags) | uint32(dpl)<<13
}

func (d *SegmentDescriptor) setCode64(base, limit uint32, dpl int) {
	d.set(base, limit, dpl,
		SegmentDescriptorG|
			SegmentDescriptorLong|
			SegmentDescriptorExecute|
			SegmentDescriptorSystem)
}

func (d *SegmentDescriptor) setData(base, limit uint32, dpl int) {
	d.set(base, limit, dpl,
		SegmentDescriptorWrite|
			SegmentDescriptorSystem)
}

// setTSS sets an available 64-bit TSS descriptor. The upper half of the base
// goes in the following slot, see setHi.
func (d *SegmentDescriptor) setTSS(base, limit uint32) {
	d.set(base, limit, Ring0,
		SegmentDescriptorAccess|
			SegmentDescriptorExecute)
}

// setHi is only used for the TSS segment, which is magically 64-bits.
func (d *SegmentDescriptor) setHi(base uint32) {
	d.bits[0] = base
	d.bits[1] = 0
}

// String implements fmt.Stringer.String.
func (d SegmentDescriptor) String() string {
	if !d.Present() {
		return fmt.Sprintf("%#016x", d.Raw())
	}
	return fmt.Sprintf("%#016x{base=%#x limit=%#x dpl=%d flags=%#x}", d.Raw(), d.Base(), d.Limit(), d.DPL(), uint32(d.Flags()))
}
