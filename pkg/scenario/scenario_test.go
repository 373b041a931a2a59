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

package scenario

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/trapgate/pkg/qemu"
	"gvisor.dev/trapgate/pkg/ring0"
	"gvisor.dev/trapgate/pkg/ring0/emu"
)

func TestNames(t *testing.T) {
	want := []string{"basic-boot", "breakpoint", "divide-by-zero", "should-panic", "stack-overflow", "stack-overflow-no-ist"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := Lookup("no-such-scenario"); ok {
		t.Errorf("Lookup found a scenario that does not exist")
	}
}

func TestScenarios(t *testing.T) {
	for _, s := range All() {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			t.Parallel()
			r, err := s.Run(RunOptions{})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !r.Passed() {
				t.Errorf("scenario failed: %s\noutput:\n%s", r.Mismatch, r.Output)
			}
		})
	}
}

func TestStackIndex(t *testing.T) {
	s, ok := Lookup("stack-overflow")
	if !ok {
		t.Fatalf("stack-overflow scenario missing")
	}
	for idx := uint16(0); idx <= ring0.MaxStackIndex; idx++ {
		r, err := s.Run(RunOptions{DoubleFaultStackIndex: idx})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !r.Passed() {
			t.Errorf("stack index %d: %s", idx, r.Mismatch)
		}
		if r.ExitStatus != qemu.Success.Status() {
			t.Errorf("stack index %d: exit status %d, want %d", idx, r.ExitStatus, qemu.Success.Status())
		}
		if len(r.Deliveries) != 1 || r.Deliveries[0].Stack != emu.InterruptStack {
			t.Errorf("stack index %d: deliveries %v, want one on the interrupt stack", idx, r.Deliveries)
		}
	}
}

func TestStackOverflowFrameSizes(t *testing.T) {
	for _, frameSize := range []uint64{emu.DefaultFrameSize, 96, 4160} {
		for _, name := range []string{"stack-overflow", "stack-overflow-no-ist"} {
			s, ok := Lookup(name)
			if !ok {
				t.Fatalf("%s scenario missing", name)
			}
			r, err := s.Run(RunOptions{Machine: emu.Options{FrameSize: frameSize}})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !r.Passed() {
				t.Errorf("%s with frame size %d: %s\noutput:\n%s", name, frameSize, r.Mismatch, r.Output)
			}
		}
	}
}

func TestMismatch(t *testing.T) {
	s := &Scenario{
		Name:    "wrong-expectation",
		Program: func(env *Env) { env.Printf("hello\n") },
		Expect: Expectation{
			State:  emu.StateReturned,
			Output: []string{"hello", "goodbye"},
		},
	}
	r, err := s.Run(RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Passed() {
		t.Errorf("Passed(): got true for output %q", r.Output)
	}

	s.Expect = Expectation{State: emu.StateExited, ExitCode: qemu.Success}
	if r, _ := s.Run(RunOptions{}); r.Passed() {
		t.Errorf("Passed(): got true for a machine in state %v", r.State)
	}
}

func TestBadMachineOptions(t *testing.T) {
	s, _ := Lookup("breakpoint")
	if _, err := s.Run(RunOptions{Machine: emu.Options{KernelStackSize: 1}}); err == nil {
		t.Errorf("Run with a bad kernel stack size: got nil error")
	}
}
