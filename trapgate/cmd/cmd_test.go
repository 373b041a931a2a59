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

package cmd

import (
	"bytes"
	"context"
	"flag"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"
	"gvisor.dev/trapgate/pkg/qemu"
	"gvisor.dev/trapgate/pkg/ring0"
	"gvisor.dev/trapgate/pkg/ring0/emu"
	"gvisor.dev/trapgate/pkg/scenario"
	"gvisor.dev/trapgate/trapgate/config"
)

func testConfig(t *testing.T, set map[string]string) *config.Config {
	t.Helper()
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	config.RegisterFlags(testFlags)
	for name, value := range set {
		if err := testFlags.Set(name, value); err != nil {
			t.Fatalf("Flag set: %v", err)
		}
	}
	conf, err := config.NewFromFlags(testFlags)
	if err != nil {
		t.Fatalf("NewFromFlags: %v", err)
	}
	return conf
}

// execute parses cmdArgs with the command's flags and runs it.
func execute(t *testing.T, c subcommands.Command, conf *config.Config, cmdArgs ...string) (subcommands.ExitStatus, int) {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	f.SetOutput(&bytes.Buffer{})
	c.SetFlags(f)
	if err := f.Parse(cmdArgs); err != nil {
		t.Fatalf("Parse(%v): %v", cmdArgs, err)
	}
	var status int
	ret := c.Execute(context.Background(), f, conf, &status)
	return ret, status
}

func TestReport(t *testing.T) {
	for _, idx := range []uint16{0, 3, ring0.MaxStackIndex} {
		conf := testConfig(t, map[string]string{"double-fault-ist": strconv.Itoa(int(idx))})
		r, err := NewReport(conf)
		if err != nil {
			t.Fatalf("NewReport: %v", err)
		}

		var vectors []uint8
		for _, g := range r.IDT {
			vectors = append(vectors, g.Vector)
			if g.Selector != ring0.Kcode.String() {
				t.Errorf("gate %s: selector %s, want %s", g.Name, g.Selector, ring0.Kcode)
			}
			if g.Type != ring0.InterruptGate.String() {
				t.Errorf("gate %s: type %s, want %v", g.Name, g.Type, ring0.InterruptGate)
			}
			switch g.Vector {
			case uint8(ring0.DoubleFault):
				if g.StackIndex == nil || *g.StackIndex != idx {
					t.Errorf("double fault gate: stack index %v, want %d", g.StackIndex, idx)
				}
			default:
				if g.StackIndex != nil {
					t.Errorf("gate %s: stack index %d, want none", g.Name, *g.StackIndex)
				}
			}
		}
		want := []uint8{uint8(ring0.DivideByZero), uint8(ring0.Breakpoint), uint8(ring0.DoubleFault)}
		if diff := cmp.Diff(want, vectors); diff != "" {
			t.Errorf("ist %d: installed vectors mismatch (-want +got):\n%s", idx, diff)
		}

		var kinds []string
		for _, d := range r.GDT {
			kinds = append(kinds, d.Kind)
		}
		if diff := cmp.Diff([]string{"null", "code64", "data", "tss (busy)", "tss (high)"}, kinds); diff != "" {
			t.Errorf("ist %d: descriptor kinds mismatch (-want +got):\n%s", idx, diff)
		}

		if r.TSS.StackIndex != idx {
			t.Errorf("TSS stack index %d, want %d", r.TSS.StackIndex, idx)
		}
		for i, top := range r.TSS.IST {
			if set := top != "0x0"; set != (i == int(idx)) {
				t.Errorf("ist %d: slot %d = %s", idx, i, top)
			}
		}
	}
}

func TestDumpSections(t *testing.T) {
	conf := testConfig(t, nil)
	for _, tc := range []struct {
		section string
		idt     bool
		gdt     bool
		tss     bool
	}{
		{section: "all", idt: true, gdt: true, tss: true},
		{section: "idt", idt: true},
		{section: "gdt", gdt: true},
		{section: "tss", tss: true},
	} {
		t.Run(tc.section, func(t *testing.T) {
			var out bytes.Buffer
			d := &Dump{out: &out}
			if ret, _ := execute(t, d, conf, "-format=yaml", "-section="+tc.section); ret != subcommands.ExitSuccess {
				t.Fatalf("Execute: got %v", ret)
			}
			var r Report
			if err := yaml.Unmarshal(out.Bytes(), &r); err != nil {
				t.Fatalf("Unmarshal(%q): %v", out.String(), err)
			}
			if got := r.IDT != nil; got != tc.idt {
				t.Errorf("IDT present: %t, want %t", got, tc.idt)
			}
			if got := r.GDT != nil; got != tc.gdt {
				t.Errorf("GDT present: %t, want %t", got, tc.gdt)
			}
			if got := r.TSS != nil; got != tc.tss {
				t.Errorf("TSS present: %t, want %t", got, tc.tss)
			}
		})
	}
}

func TestDumpText(t *testing.T) {
	var out bytes.Buffer
	d := &Dump{out: &out}
	if ret, _ := execute(t, d, testConfig(t, nil)); ret != subcommands.ExitSuccess {
		t.Fatalf("Execute: got %v", ret)
	}
	for _, want := range []string{"VECTOR", "DoubleFault", "Breakpoint", "DivideByZero", "tss (busy)", "IST0", "DOUBLE FAULT STACK"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestDumpErrors(t *testing.T) {
	conf := testConfig(t, nil)
	for _, cmdArgs := range [][]string{
		{"-section=ldt"},
		{"-format=xml"},
	} {
		d := &Dump{out: &bytes.Buffer{}}
		if ret, _ := execute(t, d, conf, cmdArgs...); ret != subcommands.ExitFailure {
			t.Errorf("Execute(%v): got %v, want %v", cmdArgs, ret, subcommands.ExitFailure)
		}
	}
	d := &Dump{out: &bytes.Buffer{}}
	if ret, _ := execute(t, d, conf, "extra"); ret != subcommands.ExitUsageError {
		t.Errorf("Execute with arguments: got %v, want %v", ret, subcommands.ExitUsageError)
	}
}

func TestBoot(t *testing.T) {
	for _, tc := range []struct {
		scenario string
		testMode bool
		status   int
		output   string
	}{
		{scenario: "breakpoint", status: 0, output: "EXCEPTION: BREAKPOINT\n"},
		{scenario: "breakpoint", testMode: true, status: qemu.Success.Status(), output: "It did not crash!\n"},
		{scenario: "stack-overflow", testMode: true, status: qemu.Success.Status(), output: "[ok]\n"},
		{scenario: "divide-by-zero", status: 0, output: "EXCEPTION: DIVIDE BY ZERO\n"},
		// Halted machines never exit through the debug device.
		{scenario: "divide-by-zero", testMode: true, status: qemu.Failed.Status()},
	} {
		name := tc.scenario
		if tc.testMode {
			name += "/test-mode"
		}
		t.Run(name, func(t *testing.T) {
			set := map[string]string{}
			if tc.testMode {
				set["test-mode"] = "true"
			}
			var out bytes.Buffer
			b := &Boot{out: &out}
			ret, status := execute(t, b, testConfig(t, set), tc.scenario)
			if ret != subcommands.ExitSuccess {
				t.Fatalf("Execute: got %v", ret)
			}
			if status != tc.status {
				t.Errorf("status: got %d, want %d", status, tc.status)
			}
			if !strings.Contains(out.String(), tc.output) {
				t.Errorf("output %q does not contain %q", out.String(), tc.output)
			}
		})
	}
}

func TestBootDeliveries(t *testing.T) {
	var out bytes.Buffer
	b := &Boot{out: &out}
	if ret, _ := execute(t, b, testConfig(t, nil), "-deliveries", "stack-overflow"); ret != subcommands.ExitSuccess {
		t.Fatalf("Execute: got %v", ret)
	}
	for _, want := range []string{ring0.DoubleFault.String(), emu.InterruptStack} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestBootErrors(t *testing.T) {
	conf := testConfig(t, nil)
	if ret, _ := execute(t, &Boot{out: &bytes.Buffer{}}, conf); ret != subcommands.ExitUsageError {
		t.Errorf("Execute without a scenario: got %v, want %v", ret, subcommands.ExitUsageError)
	}
	if ret, _ := execute(t, &Boot{out: &bytes.Buffer{}}, conf, "no-such-scenario"); ret != subcommands.ExitFailure {
		t.Errorf("Execute with an unknown scenario: got %v, want %v", ret, subcommands.ExitFailure)
	}
}

func TestBootStatus(t *testing.T) {
	for _, tc := range []struct {
		name     string
		result   scenario.Result
		testMode bool
		want     int
	}{
		{name: "passed", result: scenario.Result{State: emu.StateHalted}, want: 0},
		{name: "failed", result: scenario.Result{State: emu.StateReset, Mismatch: "machine reset"}, want: 1},
		{name: "exited", result: scenario.Result{State: emu.StateExited, ExitStatus: 35, Mismatch: "exit code"}, testMode: true, want: 35},
		{name: "reset", result: scenario.Result{State: emu.StateReset}, testMode: true, want: qemu.Failed.Status()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := bootStatus(&tc.result, tc.testMode); got != tc.want {
				t.Errorf("bootStatus: got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSelfTest(t *testing.T) {
	for _, jobs := range []string{"1", "4"} {
		t.Run("j"+jobs, func(t *testing.T) {
			var out bytes.Buffer
			s := &SelfTest{out: &out}
			ret, status := execute(t, s, testConfig(t, nil), "-j="+jobs)
			if ret != subcommands.ExitSuccess || status != 0 {
				t.Fatalf("Execute: got %v, status %d; output:\n%s", ret, status, out.String())
			}
			for _, name := range scenario.Names() {
				if !strings.Contains(out.String(), name+"...\t[ok]\n") {
					t.Errorf("output does not report %s as passed:\n%s", name, out.String())
				}
			}
			if want := "0 failed\n"; !strings.HasSuffix(out.String(), want) {
				t.Errorf("output does not end with %q:\n%s", want, out.String())
			}
		})
	}
}

func TestSelfTestSelection(t *testing.T) {
	var out bytes.Buffer
	s := &SelfTest{out: &out}
	ret, status := execute(t, s, testConfig(t, nil), "breakpoint", "divide-by-zero")
	if ret != subcommands.ExitSuccess || status != 0 {
		t.Fatalf("Execute: got %v, status %d", ret, status)
	}
	if want := "breakpoint...\t[ok]\ndivide-by-zero...\t[ok]\n2 passed, 0 failed\n"; out.String() != want {
		t.Errorf("output: got %q, want %q", out.String(), want)
	}

	if ret, _ := execute(t, &SelfTest{out: &bytes.Buffer{}}, testConfig(t, nil), "bogus"); ret != subcommands.ExitFailure {
		t.Errorf("Execute with an unknown scenario: got %v, want %v", ret, subcommands.ExitFailure)
	}
	if ret, _ := execute(t, &SelfTest{out: &bytes.Buffer{}}, testConfig(t, nil), "-j=0"); ret != subcommands.ExitUsageError {
		t.Errorf("Execute with -j=0: got %v, want %v", ret, subcommands.ExitUsageError)
	}
}

func TestList(t *testing.T) {
	var out bytes.Buffer
	if ret, _ := execute(t, &List{out: &out}, testConfig(t, nil)); ret != subcommands.ExitSuccess {
		t.Fatalf("Execute: got %v", ret)
	}
	for _, name := range scenario.Names() {
		if !strings.Contains(out.String(), name) {
			t.Errorf("output does not list %s:\n%s", name, out.String())
		}
	}
}
