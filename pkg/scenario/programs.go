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
	"gvisor.dev/trapgate/pkg/kernel"
	"gvisor.dev/trapgate/pkg/qemu"
	"gvisor.dev/trapgate/pkg/ring0/emu"
)

// recurse overflows the kernel stack.
func recurse(m *emu.Machine) {
	m.Call(func() { recurse(m) })
}

func init() {
	register(&Scenario{
		Name:        "basic-boot",
		Description: "print from a test without initializing exception handling",
		SkipInit:    true,
		Program: func(env *Env) {
			env.Printf("Running %d tests\n", 1)
			env.Test("basic_boot::test_println", func() {
				env.Printf("test_println output\n")
			})
			qemu.Exit(env.Machine, qemu.Success)
		},
		Expect: Expectation{
			State:    emu.StateExited,
			ExitCode: qemu.Success,
			Output:   []string{"Running 1 tests\n", "basic_boot::test_println...\t", "test_println output\n", "[ok]\n"},
		},
	})

	register(&Scenario{
		Name:        "breakpoint",
		Description: "execute int3 and resume after the handler returns",
		Program: func(env *Env) {
			env.Test("interrupts::test_breakpoint_exception", func() {
				env.Machine.Int3()
			})
			env.Printf("It did not crash!\n")
			qemu.Exit(env.Machine, qemu.Success)
		},
		Expect: Expectation{
			State:    emu.StateExited,
			ExitCode: qemu.Success,
			Output:   []string{"interrupts::test_breakpoint_exception...\t", "EXCEPTION: BREAKPOINT\n", "[ok]\n", "It did not crash!\n"},
		},
	})

	register(&Scenario{
		Name:        "divide-by-zero",
		Description: "divide by zero and halt in the handler",
		Program: func(env *Env) {
			env.Printf("interrupts::divide_by_zero...\t\n")
			env.Machine.Divide(42, 0)
			env.Printf("[divide by zero not caught]\n")
			qemu.Exit(env.Machine, qemu.Failed)
		},
		Expect: Expectation{
			State:  emu.StateHalted,
			Output: []string{"EXCEPTION: DIVIDE BY ZERO\n", "RIP="},
		},
	})

	register(&Scenario{
		Name:        "stack-overflow",
		Description: "overflow the kernel stack and catch the double fault on its own stack",
		Kernel:      kernel.Options{TestMode: true},
		Program: func(env *Env) {
			env.Printf("stack_overflow::stack_overflow...\t")
			recurse(env.Machine)
			env.Printf("[execution continued after stack overflow]\n")
			qemu.Exit(env.Machine, qemu.Failed)
		},
		Expect: Expectation{
			State:    emu.StateExited,
			ExitCode: qemu.Success,
			Output:   []string{"stack_overflow::stack_overflow...\t[ok]\n"},
		},
	})

	register(&Scenario{
		Name:        "stack-overflow-no-ist",
		Description: "overflow the kernel stack with the double fault handler on the kernel stack",
		Kernel:      kernel.Options{TestMode: true, NoDoubleFaultStack: true},
		Program: func(env *Env) {
			env.Printf("stack_overflow::stack_overflow_no_ist...\t")
			recurse(env.Machine)
		},
		Expect: Expectation{
			State: emu.StateReset,
		},
	})

	register(&Scenario{
		Name:        "should-panic",
		Description: "fail an assertion and catch it in the panic handler",
		Kernel: kernel.Options{OnPanic: func(k *kernel.Kernel, msg string) {
			k.Pass()
		}},
		Program: func(env *Env) {
			env.Printf("should_panic::should_fail...\t\n")
			if got, want := 1, 0; got != want {
				env.Kernel.Panic("assertion failed: 0 == 1")
			}
			env.Printf("[test did not panic]\n")
			qemu.Exit(env.Machine, qemu.Failed)
		},
		Expect: Expectation{
			State:    emu.StateExited,
			ExitCode: qemu.Success,
			Output:   []string{"should_panic::should_fail...\t\n", "[ok]\n"},
		},
	})
}
