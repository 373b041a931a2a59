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

// Package console provides line output for the kernel.
package console

import "gvisor.dev/trapgate/pkg/ring0"

// COM1 is the I/O base of the first serial port.
const COM1 = 0x3f8

// 16550 register offsets from the I/O base.
const (
	regData        = 0 // Transmit holding register; divisor low with DLAB.
	regIntEnable   = 1 // Interrupt enable; divisor high with DLAB.
	regFIFOControl = 2
	regLineControl = 3
	regModemCtrl   = 4
	regLineStatus  = 5
)

// Register values.
const (
	lineControlDLAB = 0x80
	lineControl8N1  = 0x03
	fifoEnableClear = 0xc7
	modemDTRRTSOut2 = 0x0b
	lineStatusTHRE  = 0x20

	// baudDivisor selects 38400 baud.
	baudDivisor = 3
)

// Serial is a polled 16550 transmitter.
//
// Serial does not allocate and takes no locks, so it may be used from
// interrupt handlers.
type Serial struct {
	ports ring0.Ports
	base  uint16
}

// NewSerial returns the serial port at base. Init must be called before
// writing.
func NewSerial(ports ring0.Ports, base uint16) *Serial {
	return &Serial{ports: ports, base: base}
}

// Init programs the port for 38400 8N1 with FIFOs enabled and interrupts
// disabled.
func (s *Serial) Init() {
	s.ports.OutB(s.base+regIntEnable, 0)
	s.ports.OutB(s.base+regLineControl, lineControlDLAB)
	s.ports.OutB(s.base+regData, baudDivisor&0xff)
	s.ports.OutB(s.base+regIntEnable, baudDivisor>>8)
	s.ports.OutB(s.base+regLineControl, lineControl8N1)
	s.ports.OutB(s.base+regFIFOControl, fifoEnableClear)
	s.ports.OutB(s.base+regModemCtrl, modemDTRRTSOut2)
}

// WriteByte transmits b once the holding register is empty.
//
//go:nosplit
func (s *Serial) WriteByte(b byte) error {
	for s.ports.InB(s.base+regLineStatus)&lineStatusTHRE == 0 {
	}
	s.ports.OutB(s.base+regData, b)
	return nil
}

// Write implements io.Writer.Write.
func (s *Serial) Write(p []byte) (int, error) {
	for _, b := range p {
		s.WriteByte(b)
	}
	return len(p), nil
}

// WriteString writes str.
func (s *Serial) WriteString(str string) (int, error) {
	for i := 0; i < len(str); i++ {
		s.WriteByte(str[i])
	}
	return len(str), nil
}

// WriteLine writes line followed by a newline.
func (s *Serial) WriteLine(line []byte) {
	s.Write(line)
	s.WriteByte('\n')
}
