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

import (
	"fmt"

	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/ring0"
)

// bootCode is the code segment the loader leaves in CS.
const bootCode = ring0.Kcode

// Device ports.
const (
	com1Data        = 0x3f8
	com1LineControl = 0x3fb
	com1LineStatus  = 0x3fd
	com1Last        = 0x3ff
	debugExitPort   = 0xf4

	picPrimaryCommand   = 0x20
	picPrimaryData      = 0x21
	picSecondaryCommand = 0xa0
	picSecondaryData    = 0xa1
)

// Line status bits: transmitter holding register empty, transmitter empty.
const lineStatusIdle = 0x20 | 0x40

// lineControlDLAB redirects the data port to the baud rate divisor.
const lineControlDLAB = 0x80

// InB implements ring0.Ports.InB.
func (m *Machine) InB(port uint16) uint8 {
	m.step()
	switch port {
	case com1LineStatus:
		return lineStatusIdle
	case picPrimaryData:
		return m.pics[0].mask
	case picSecondaryData:
		return m.pics[1].mask
	default:
		return 0xff
	}
}

// OutB implements ring0.Ports.OutB.
func (m *Machine) OutB(port uint16, value uint8) {
	m.step()
	switch {
	case port == com1Data && !m.dlab:
		m.serial.WriteByte(value)
	case port == com1LineControl:
		m.dlab = value&lineControlDLAB != 0
	case port >= com1Data && port <= com1Last:
		// UART configuration has no effect on the capture.
	case port == picPrimaryCommand:
		m.pics[0].command(value)
	case port == picPrimaryData:
		m.pics[0].data(value)
	case port == picSecondaryCommand:
		m.pics[1].command(value)
	case port == picSecondaryData:
		m.pics[1].data(value)
	default:
		log.Debugf("Ignoring outb %#x to port %#x", value, port)
	}
}

// OutL implements ring0.Ports.OutL.
func (m *Machine) OutL(port uint16, value uint32) {
	m.step()
	if port == debugExitPort {
		log.Debugf("Debug exit with code %#x", value)
		panic(exitSignal{code: value})
	}
	log.Debugf("Ignoring outl %#x to port %#x", value, port)
}

// LoadGDT implements ring0.Hardware.LoadGDT.
//
// The interrupt stack installed in s becomes addressable.
func (m *Machine) LoadGDT(s *ring0.Segments) {
	m.step()
	m.gdt = s
	if st := s.Stack(); st != nil {
		m.mem.mapRegion(InterruptStack, st.Range(), st.Bytes(), false)
	}
	base, limit := s.GDT()
	log.Debugf("GDT loaded at %#x limit %#x", base, limit)
}

// SetCodeSegment implements ring0.Hardware.SetCodeSegment.
func (m *Machine) SetCodeSegment(sel ring0.Selector) {
	m.step()
	if err := m.checkCode(sel); err != nil {
		m.raise(ring0.GeneralProtectionFault, uint64(sel), m.rip)
		return
	}
	m.cs = sel
}

// SetDataSegments implements ring0.Hardware.SetDataSegments.
func (m *Machine) SetDataSegments(sel ring0.Selector) {
	m.step()
	d := m.descriptor(sel)
	if d == nil || !d.Present() || d.Flags()&ring0.SegmentDescriptorExecute != 0 {
		m.raise(ring0.GeneralProtectionFault, uint64(sel), m.rip)
		return
	}
	m.ss = sel
}

// LoadTaskRegister implements ring0.Hardware.LoadTaskRegister.
//
// As on hardware, the descriptor must be an available TSS; it becomes busy.
func (m *Machine) LoadTaskRegister(sel ring0.Selector) {
	m.step()
	d := m.descriptor(sel)
	if d == nil || !d.Present() {
		m.raise(ring0.GeneralProtectionFault, uint64(sel), m.rip)
		return
	}
	if typ, ok := d.SystemType(); !ok || typ != ring0.SystemTypeTSSAvailable {
		m.raise(ring0.GeneralProtectionFault, uint64(sel), m.rip)
		return
	}
	d.SetBusy()
	m.tr = sel
}

// CodeSegment implements ring0.Hardware.CodeSegment.
func (m *Machine) CodeSegment() ring0.Selector {
	return m.cs
}

// LoadIDT implements ring0.Hardware.LoadIDT.
func (m *Machine) LoadIDT(t *ring0.IDT) {
	m.step()
	m.idt = t
	base, limit := t.Pointer()
	log.Debugf("IDT loaded at %#x limit %#x", base, limit)
}

// EntryPoint implements ring0.Hardware.EntryPoint.
func (m *Machine) EntryPoint(v ring0.Vector) uint64 {
	return entryBase + uint64(v)*entryStride
}

// EnableInterrupts implements ring0.Hardware.EnableInterrupts.
func (m *Machine) EnableInterrupts() {
	m.step()
	m.rflags |= ring0.InterruptFlag
	for i := range m.pics {
		if p := &m.pics[i]; p.mask != 0xff && p.offset < uint8(ring0.FirstExternal) {
			log.Warningf("Interrupts enabled with 8259 #%d delivering IRQs on exception vectors %#x-%#x", i, p.offset, p.offset+7)
		}
	}
}

// DisableInterrupts implements ring0.Hardware.DisableInterrupts.
func (m *Machine) DisableInterrupts() {
	m.step()
	m.rflags &^= ring0.InterruptFlag
}

// Halt implements ring0.Hardware.Halt.
//
// The machine has no interrupt sources, so nothing ever wakes it.
func (m *Machine) Halt() {
	m.step()
	log.Debugf("Halted at %#x", m.rip)
	panic(haltSignal{})
}

// descriptor returns the GDT entry for sel, or nil.
func (m *Machine) descriptor(sel ring0.Selector) *ring0.SegmentDescriptor {
	if m.gdt == nil || sel.Index() == 0 {
		return nil
	}
	return m.gdt.Descriptor(sel)
}

// checkCode returns an error unless sel references a present 64-bit code
// segment.
func (m *Machine) checkCode(sel ring0.Selector) error {
	if m.gdt == nil {
		if sel == bootCode {
			return nil
		}
		return fmt.Errorf("selector %v with no GDT loaded", sel)
	}
	d := m.descriptor(sel)
	if d == nil || !d.Present() {
		return fmt.Errorf("selector %v is not present", sel)
	}
	if f := d.Flags(); f&ring0.SegmentDescriptorExecute == 0 || f&ring0.SegmentDescriptorLong == 0 {
		return fmt.Errorf("selector %v is not a 64-bit code segment: %v", sel, d)
	}
	return nil
}
