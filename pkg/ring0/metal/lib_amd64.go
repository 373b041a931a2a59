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

//go:build amd64
// +build amd64

package metal

// lgdt loads the global descriptor table register.
func lgdt(p *descriptorPointer)

// lidt loads the interrupt descriptor table register.
func lidt(p *descriptorPointer)

// ltr loads the task register.
func ltr(sel uint64)

// setCS reloads CS with a far return.
func setCS(sel uint64)

// setDataSegments reloads SS, DS and ES.
func setDataSegments(sel uint64)

// readCS reads the current code segment selector.
func readCS() uint64

// sti enables interrupts.
func sti()

// cli disables interrupts.
func cli()

// hlt halts until the next interrupt.
func hlt()

// inb reads a byte from an I/O port.
func inb(port uint16) uint8

// outb writes a byte to an I/O port.
func outb(port uint16, value uint8)

// outl writes a doubleword to an I/O port.
func outl(port uint16, value uint32)
