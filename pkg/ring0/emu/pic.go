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

// Vector offsets the firmware leaves in the 8259s.
const (
	biosPrimaryOffset   = 0x08
	biosSecondaryOffset = 0x70
)

// 8259 command bits.
const (
	icw1Init   = 0x10
	icw1Single = 0x02
	icw1ICW4   = 0x01
)

// pic is one 8259 interrupt controller. It has no interrupt sources; only
// the programmed vector offset and mask are modelled.
type pic struct {
	offset uint8
	mask   uint8

	// next is the initialization word the data port expects, or zero
	// once initialization is complete.
	next     int
	single   bool
	needICW4 bool
}

func (p *pic) command(value uint8) {
	// OCW2 and OCW3 (EOI and register selection) have no effect.
	if value&icw1Init == 0 {
		return
	}
	p.next = 2
	p.single = value&icw1Single != 0
	p.needICW4 = value&icw1ICW4 != 0
	p.mask = 0
}

func (p *pic) data(value uint8) {
	switch p.next {
	case 2:
		p.offset = value &^ 7
		p.next = 3
		if p.single {
			p.next = 4
		}
		if p.next == 4 && !p.needICW4 {
			p.next = 0
		}
	case 3:
		p.next = 0
		if p.needICW4 {
			p.next = 4
		}
	case 4:
		p.next = 0
	default:
		p.mask = value
	}
}

// InterruptController is the programmed state of an 8259.
type InterruptController struct {
	// Offset is the vector of IRQ 0 on this controller.
	Offset uint8

	// Mask has a bit set for each disabled line.
	Mask uint8
}

// InterruptControllers returns the state of the primary and secondary
// 8259.
func (m *Machine) InterruptControllers() (primary, secondary InterruptController) {
	return InterruptController{Offset: m.pics[0].offset, Mask: m.pics[0].mask},
		InterruptController{Offset: m.pics[1].offset, Mask: m.pics[1].mask}
}
