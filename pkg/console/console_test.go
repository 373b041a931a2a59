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

package console

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/trapgate/pkg/ring0/emu"
)

// busyPorts reports a busy transmitter a fixed number of times per byte.
type busyPorts struct {
	busy    int
	polls   int
	dlab    bool
	written []byte
	config  map[uint16][]uint8
}

func (p *busyPorts) InB(port uint16) uint8 {
	if port != COM1+regLineStatus {
		return 0
	}
	p.polls++
	if p.polls%(p.busy+1) != 0 {
		return 0
	}
	return lineStatusTHRE
}

func (p *busyPorts) OutB(port uint16, value uint8) {
	if port == COM1+regData && !p.dlab {
		p.written = append(p.written, value)
		return
	}
	if port == COM1+regLineControl {
		p.dlab = value&lineControlDLAB != 0
	}
	if p.config == nil {
		p.config = make(map[uint16][]uint8)
	}
	p.config[port] = append(p.config[port], value)
}

func (p *busyPorts) OutL(uint16, uint32) {}

func TestSerialWaitsForTransmitter(t *testing.T) {
	p := &busyPorts{busy: 3}
	s := NewSerial(p, COM1)
	s.Init()
	s.WriteLine([]byte("ok"))

	if got, want := string(p.written), "ok\n"; got != want {
		t.Errorf("written: got %q, want %q", got, want)
	}
	if got, want := p.polls, 3*(p.busy+1); got != want {
		t.Errorf("line status polls: got %d, want %d", got, want)
	}
	want := map[uint16][]uint8{
		COM1 + regData:        {baudDivisor},
		COM1 + regIntEnable:   {0, 0},
		COM1 + regLineControl: {lineControlDLAB, lineControl8N1},
		COM1 + regFIFOControl: {fifoEnableClear},
		COM1 + regModemCtrl:   {modemDTRRTSOut2},
	}
	if diff := cmp.Diff(want, p.config); diff != "" {
		t.Errorf("configuration writes mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialOnMachine(t *testing.T) {
	m, err := emu.New(emu.Options{})
	if err != nil {
		t.Fatalf("emu.New: %v", err)
	}
	defer m.Close()

	m.Run(func(m *emu.Machine) {
		s := NewSerial(m, COM1)
		s.Init()
		fmt.Fprintf(s, "Running %d tests\n", 2)
		s.WriteString("a...\t")
		s.WriteLine([]byte("[ok]"))
	})
	if got, want := m.Serial(), "Running 2 tests\na...\t[ok]\n"; got != want {
		t.Errorf("Serial(): got %q, want %q", got, want)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.WriteLine([]byte("EXCEPTION: BREAKPOINT"))
	r.WriteLine(nil)
	r.WriteLine([]byte("second"))
	if diff := cmp.Diff([]string{"EXCEPTION: BREAKPOINT", "", "second"}, r.Lines()); diff != "" {
		t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
	}

	r.Reset()
	big := make([]byte, RecorderBytes)
	r.WriteLine(big)
	r.WriteLine([]byte("x"))
	if got := len(r.Lines()); got != 1 {
		t.Errorf("Lines() after filling the buffer: got %d lines, want 1", got)
	}
	if got := r.Dropped(); got != 1 {
		t.Errorf("Dropped(): got %d, want 1", got)
	}

	r.Reset()
	for i := 0; i < RecorderLines+2; i++ {
		r.WriteLine([]byte("l"))
	}
	if got := len(r.Lines()); got != RecorderLines {
		t.Errorf("Lines(): got %d lines, want %d", got, RecorderLines)
	}
	if got := r.Dropped(); got != 2 {
		t.Errorf("Dropped(): got %d, want 2", got)
	}
}
