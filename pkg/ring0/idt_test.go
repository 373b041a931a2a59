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
	"testing"
	"unsafe"
)

func TestNewIDTAllMissing(t *testing.T) {
	idt := NewIDT()
	for v := 0; v < NumVectors; v++ {
		if idt.Gate(Vector(v)).Present() {
			t.Errorf("vector %v present in a new table", Vector(v))
		}
		if idt.Dispatch(Vector(v), &Frame{}, 0) {
			t.Errorf("Dispatch(%v) ran a handler in a new table", Vector(v))
		}
	}
	if got := idt.Installed(); len(got) != 0 {
		t.Errorf("Installed(): got %v, want none", got)
	}
}

func TestIDTPointer(t *testing.T) {
	idt := NewIDT()
	base, limit := idt.Pointer()
	if want := uint64(uintptr(unsafe.Pointer(idt.Gate(0)))); base != want {
		t.Errorf("Pointer() base: got %#x, want %#x", base, want)
	}
	if limit != NumVectors*GateSize-1 {
		t.Errorf("Pointer() limit: got %d, want %d", limit, NumVectors*GateSize-1)
	}
	if got, want := uint64(uintptr(unsafe.Pointer(idt.Gate(MaxVector)))), base+uint64(MaxVector)*GateSize; got != want {
		t.Errorf("gate %v at %#x, want %#x", MaxVector, got, want)
	}
}

func TestSetHandler(t *testing.T) {
	hw := newFakeHardware()
	idt := NewIDT()
	var hits int
	var frame *Frame
	idt.SetHandler(hw, Breakpoint, func(f *Frame) {
		hits++
		frame = f
	})

	g := idt.Gate(Breakpoint)
	if !g.Present() {
		t.Fatalf("breakpoint gate not present")
	}
	if got, want := g.Handler(), hw.EntryPoint(Breakpoint); got != want {
		t.Errorf("Handler(): got %#x, want %#x", got, want)
	}
	if got := g.Selector(); got != Kcode {
		t.Errorf("Selector(): got %v, want %v", got, Kcode)
	}

	f := &Frame{RIP: 0x1234}
	if !idt.Dispatch(Breakpoint, f, 0) {
		t.Fatalf("Dispatch(%v) found no handler", Breakpoint)
	}
	if hits != 1 || frame != f {
		t.Errorf("handler: got %d calls with %p, want 1 call with %p", hits, frame, f)
	}
	if idt.Dispatch(DivideByZero, f, 0) {
		t.Errorf("Dispatch(%v) ran a handler that was never installed", DivideByZero)
	}
}

func TestSetHandlerWithErr(t *testing.T) {
	hw := newFakeHardware()
	idt := NewIDT()
	var code uint64
	idt.SetHandlerWithErr(hw, DoubleFault, func(f *Frame, errorCode uint64) {
		code = errorCode
	}).SetStackIndex(0)

	if !idt.Dispatch(DoubleFault, &Frame{}, 0x42) {
		t.Fatalf("Dispatch(%v) found no handler", DoubleFault)
	}
	if code != 0x42 {
		t.Errorf("error code: got %#x, want 0x42", code)
	}
	if idx, ok := idt.Gate(DoubleFault).Options().StackIndex(); !ok || idx != 0 {
		t.Errorf("StackIndex(): got (%d, %t), want (0, true)", idx, ok)
	}
}

func TestSetHandlerWrongKind(t *testing.T) {
	hw := newFakeHardware()
	for _, tc := range []struct {
		name    string
		install func(*IDT)
	}{
		{
			name:    "error code vector without error code",
			install: func(idt *IDT) { idt.SetHandler(hw, PageFault, func(*Frame) {}) },
		},
		{
			name:    "plain vector with error code",
			install: func(idt *IDT) { idt.SetHandlerWithErr(hw, Breakpoint, func(*Frame, uint64) {}) },
		},
		{
			name:    "nil handler",
			install: func(idt *IDT) { idt.SetHandler(hw, Breakpoint, nil) },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("install did not panic")
				}
			}()
			tc.install(NewIDT())
		})
	}
}

func TestInstallLastVector(t *testing.T) {
	hw := newFakeHardware()
	idt := NewIDT()
	before := *idt.Gate(MaxVector - 1)
	idt.SetHandler(hw, MaxVector, func(*Frame) {})

	if !idt.Gate(MaxVector).Present() {
		t.Errorf("vector %v not present", MaxVector)
	}
	if got := *idt.Gate(MaxVector - 1); got != before {
		t.Errorf("vector %v changed: got %v, want %v", MaxVector-1, got, before)
	}
	if _, limit := idt.Pointer(); int(limit) > 0xffff || int(limit)+1 != idt.SizeBytes() {
		t.Errorf("limit %#x does not cover %d bytes", limit, idt.SizeBytes())
	}
	if got := idt.Installed(); len(got) != 1 || got[0] != MaxVector {
		t.Errorf("Installed(): got %v, want [%v]", got, MaxVector)
	}
}

func TestClear(t *testing.T) {
	hw := newFakeHardware()
	idt := NewIDT()
	idt.SetHandler(hw, Breakpoint, func(*Frame) {})
	idt.Clear(Breakpoint)
	if idt.Gate(Breakpoint).Present() || idt.Dispatch(Breakpoint, &Frame{}, 0) {
		t.Errorf("vector %v still installed after Clear", Breakpoint)
	}
}

func TestLoadLatchesTable(t *testing.T) {
	hw := newFakeHardware()
	idt := NewIDT()
	idt.Load(hw)
	idt.Load(hw)
	if hw.idt != idt || hw.idtLoads != 2 {
		t.Errorf("LoadIDT: got table %p after %d loads, want %p after 2", hw.idt, hw.idtLoads, idt)
	}
}

func TestIDTMarshal(t *testing.T) {
	hw := newFakeHardware()
	idt := NewIDT()
	idt.SetHandler(hw, Breakpoint, func(*Frame) {})
	raw := make([]byte, idt.SizeBytes())
	if rest := idt.MarshalBytes(raw); len(rest) != 0 {
		t.Fatalf("MarshalBytes left %d bytes", len(rest))
	}
	for v := 0; v < NumVectors; v++ {
		var g Gate64
		g.UnmarshalBytes(raw[v*GateSize:])
		if g != *idt.Gate(Vector(v)) {
			t.Errorf("vector %v: got %v, want %v", Vector(v), g, *idt.Gate(Vector(v)))
		}
	}
}
