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

// Package pic programs the pair of cascaded 8259 interrupt controllers.
package pic

import "gvisor.dev/trapgate/pkg/ring0"

// Controller I/O ports.
const (
	PrimaryCommand   = 0x20
	PrimaryData      = 0x21
	SecondaryCommand = 0xa0
	SecondaryData    = 0xa1
)

// Default vector offsets, the first vectors above the exception range.
const (
	PrimaryOffset   = 0x20
	SecondaryOffset = 0x28
)

// Initialization command words.
const (
	icw1Init = 0x11 // Edge triggered, cascaded, ICW4 follows.
	icw4x86  = 0x01

	// cascadeLine is the primary input the secondary is wired to.
	cascadeLine = 2
)

// MaskAll disables every interrupt line.
const MaskAll = 0xff

// Remap moves the primary controller's vectors to offset1 and the
// secondary's to offset2.
//
// Both controllers power up delivering IRQs on vectors that collide with
// processor exceptions, so this must run before interrupts are enabled.
// The interrupt masks are left as they were.
func Remap(ports ring0.Ports, offset1, offset2 uint8) {
	mask1 := ports.InB(PrimaryData)
	mask2 := ports.InB(SecondaryData)

	ports.OutB(PrimaryCommand, icw1Init)
	ports.OutB(SecondaryCommand, icw1Init)
	ports.OutB(PrimaryData, offset1)
	ports.OutB(SecondaryData, offset2)
	ports.OutB(PrimaryData, 1<<cascadeLine)
	ports.OutB(SecondaryData, cascadeLine)
	ports.OutB(PrimaryData, icw4x86)
	ports.OutB(SecondaryData, icw4x86)

	ports.OutB(PrimaryData, mask1)
	ports.OutB(SecondaryData, mask2)
}

// Mask sets the interrupt masks of both controllers.
func Mask(ports ring0.Ports, mask1, mask2 uint8) {
	ports.OutB(PrimaryData, mask1)
	ports.OutB(SecondaryData, mask2)
}

// Init remaps both controllers to the default offsets and masks every
// line. No IRQ handlers are installed, so nothing may be delivered.
func Init(ports ring0.Ports) {
	Remap(ports, PrimaryOffset, SecondaryOffset)
	Mask(ports, MaskAll, MaskAll)
}
