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

// fakeHardware records privileged operations without executing them.
type fakeHardware struct {
	cs         Selector
	gdt        *Segments
	idt        *IDT
	tr         Selector
	ds         Selector
	idtLoads   int
	interrupts bool
	ports      map[uint16][]uint32
}

func newFakeHardware() *fakeHardware {
	return &fakeHardware{cs: Kcode, ports: make(map[uint16][]uint32)}
}

func (f *fakeHardware) InB(port uint16) uint8 { return 0 }

func (f *fakeHardware) OutB(port uint16, value uint8) {
	f.ports[port] = append(f.ports[port], uint32(value))
}

func (f *fakeHardware) OutL(port uint16, value uint32) {
	f.ports[port] = append(f.ports[port], value)
}

func (f *fakeHardware) LoadGDT(s *Segments) { f.gdt = s }
func (f *fakeHardware) SetCodeSegment(sel Selector) { f.cs = sel }
func (f *fakeHardware) SetDataSegments(sel Selector) { f.ds = sel }
func (f *fakeHardware) CodeSegment() Selector { return f.cs }
func (f *fakeHardware) EnableInterrupts() { f.interrupts = true }
func (f *fakeHardware) DisableInterrupts() { f.interrupts = false }
func (f *fakeHardware) Halt() {}
func (f *fakeHardware) EntryPoint(v Vector) uint64 { return 0xffff_8000_0010_0000 + uint64(v)*16 }

func (f *fakeHardware) LoadTaskRegister(sel Selector) {
	f.tr = sel
	f.gdt.Descriptor(sel).SetBusy()
}

func (f *fakeHardware) LoadIDT(t *IDT) {
	f.idt = t
	f.idtLoads++
}
