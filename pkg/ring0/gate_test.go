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
	"bytes"
	"testing"
)

func TestGateHandlerSplit(t *testing.T) {
	const addr = 0x1_2345_6789
	g := NewGate(addr, Kcode)
	low, mid, high := g.Offsets()
	if low != 0x6789 || mid != 0x2345 || high != 0x1 {
		t.Errorf("Offsets(): got (%#x, %#x, %#x), want (0x6789, 0x2345, 0x1)", low, mid, high)
	}
	if got := g.Handler(); got != addr {
		t.Errorf("Handler(): got %#x, want %#x", got, uint64(addr))
	}
}

func TestGateHandlerRoundTrip(t *testing.T) {
	for _, addr := range []uint64{0, 0xffff, 0x1_0000, 0xffff_ffff, 0xffff_8000_dead_beef, ^uint64(0)} {
		var g Gate64
		g.SetHandlerAddr(addr)
		if got := g.Handler(); got != addr {
			t.Errorf("SetHandlerAddr(%#x): Handler() = %#x", addr, got)
		}
	}
}

func TestMissingGate(t *testing.T) {
	g := MissingGate()
	if g.Present() {
		t.Errorf("MissingGate().Present(): got true, want false")
	}
	if g.Handler() != 0 || g.Selector() != 0 {
		t.Errorf("MissingGate(): got handler %#x selector %v, want zero", g.Handler(), g.Selector())
	}
	if got, want := uint16(*g.Options()), uint16(0x0e00); got != want {
		t.Errorf("MissingGate() options: got %#x, want %#x", got, want)
	}
}

func TestNewGateOptions(t *testing.T) {
	g := NewGate(0x1000, Kcode)
	o := g.Options()
	if got, want := uint16(*o), uint16(0x8e00); got != want {
		t.Errorf("NewGate options: got %#x, want %#x", got, want)
	}
	if !o.Present() || !o.InterruptsDisabled() || o.Type() != InterruptGate {
		t.Errorf("NewGate options: got %v, want present interrupt gate", o)
	}
	if _, ok := o.StackIndex(); ok {
		t.Errorf("NewGate options: unexpected stack index in %v", o)
	}
	if got := o.PrivilegeLevel(); got != Ring0 {
		t.Errorf("PrivilegeLevel(): got %d, want %d", got, Ring0)
	}
}

func TestGateOptionsChain(t *testing.T) {
	o := minimalOptions()
	o.SetPresent(true).DisableInterrupts(false).SetPrivilegeLevel(Ring3).SetStackIndex(0)
	if got, want := uint16(o), uint16(0xef01); got != want {
		t.Errorf("options: got %#x, want %#x", got, want)
	}
	if o.Type() != TrapGate {
		t.Errorf("Type(): got %v, want %v", o.Type(), TrapGate)
	}
	if idx, ok := o.StackIndex(); !ok || idx != 0 {
		t.Errorf("StackIndex(): got (%d, %t), want (0, true)", idx, ok)
	}
	o.ClearStackIndex().SetPresent(false)
	if got, want := uint16(o), uint16(0x6f00); got != want {
		t.Errorf("options after clear: got %#x, want %#x", got, want)
	}
}

func TestSetStackIndexRange(t *testing.T) {
	for i := uint16(0); i <= MaxStackIndex; i++ {
		o := defaultOptions()
		o.SetStackIndex(i)
		if got, ok := o.StackIndex(); !ok || got != i {
			t.Errorf("SetStackIndex(%d): StackIndex() = (%d, %t)", i, got, ok)
		}
		if got := uint16(o) & 7; got != i+1 {
			t.Errorf("SetStackIndex(%d): raw field %d, want %d", i, got, i+1)
		}
	}
	defer func() {
		if recover() == nil {
			t.Errorf("SetStackIndex(%d) did not panic", MaxStackIndex+1)
		}
	}()
	o := defaultOptions()
	o.SetStackIndex(MaxStackIndex + 1)
}

func TestSetPrivilegeLevelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("SetPrivilegeLevel(4) did not panic")
		}
	}()
	o := defaultOptions()
	o.SetPrivilegeLevel(4)
}

func TestGateMarshal(t *testing.T) {
	g := NewGate(0xffff_8000_1234_5678, Kcode)
	g.Options().SetStackIndex(1)
	buf := make([]byte, GateSize)
	if rest := g.MarshalBytes(buf); len(rest) != 0 {
		t.Fatalf("MarshalBytes left %d bytes", len(rest))
	}
	want := []byte{
		0x78, 0x56, // offset low
		0x08, 0x00, // selector
		0x02, 0x8e, // options
		0x34, 0x12, // offset mid
		0x00, 0x80, 0xff, 0xff, // offset high
		0x00, 0x00, 0x00, 0x00, // reserved
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("MarshalBytes: got % x, want % x", buf, want)
	}

	var got Gate64
	got.UnmarshalBytes(buf)
	if got != g {
		t.Errorf("UnmarshalBytes: got %v, want %v", got, g)
	}
}
