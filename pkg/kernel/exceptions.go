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

package kernel

import (
	"gvisor.dev/trapgate/pkg/qemu"
	"gvisor.dev/trapgate/pkg/ring0"
)

// Handler output.
const (
	divideByZeroMessage = "EXCEPTION: DIVIDE BY ZERO"
	breakpointMessage   = "EXCEPTION: BREAKPOINT"
	doubleFaultMessage  = "EXCEPTION: DOUBLE FAULT"
	okMessage           = "[ok]"
	failedMessage       = "[failed]"
)

// line writes a constant line.
func (k *Kernel) line(s string) {
	k.buf.reset()
	k.buf.writeString(s)
	k.console.WriteLine(k.buf.bytes())
}

// frame writes f.
func (k *Kernel) frame(f *ring0.Frame) {
	k.buf.reset()
	k.buf.writeString("RIP=")
	k.buf.writeHex(f.RIP)
	k.buf.writeString(" CS=")
	k.buf.writeHex(f.CS)
	k.buf.writeString(" RFLAGS=")
	k.buf.writeHex(f.RFLAGS)
	k.buf.writeString(" RSP=")
	k.buf.writeHex(f.RSP)
	k.buf.writeString(" SS=")
	k.buf.writeHex(f.SS)
	k.console.WriteLine(k.buf.bytes())
}

// divideByZero reports the fault and halts: returning would restart the
// division.
func (k *Kernel) divideByZero(f *ring0.Frame) {
	k.line(divideByZeroMessage)
	k.frame(f)
	ring0.HaltLoop(k.hw)
}

// breakpoint reports the trap and resumes after the int3.
func (k *Kernel) breakpoint(*ring0.Frame) {
	k.line(breakpointMessage)
}

// doubleFault runs on the double fault stack. The error code is always zero.
func (k *Kernel) doubleFault(f *ring0.Frame, errorCode uint64) {
	k.line(doubleFaultMessage)
	k.buf.reset()
	k.buf.writeString("error code: ")
	k.buf.writeHex(errorCode)
	k.console.WriteLine(k.buf.bytes())
	k.frame(f)
	ring0.HaltLoop(k.hw)
}

// testDoubleFault reports that the double fault was caught.
func (k *Kernel) testDoubleFault(*ring0.Frame, uint64) {
	k.line(okMessage)
	qemu.Exit(k.hw, qemu.Success)
	ring0.HaltLoop(k.hw)
}

// Panic reports a fatal kernel error and stops. In test mode the failure is
// signalled through the debug exit device.
func (k *Kernel) Panic(msg string) {
	if k.opts.OnPanic != nil {
		k.opts.OnPanic(k, msg)
	} else {
		if k.opts.TestMode {
			k.line(failedMessage)
		}
		k.buf.reset()
		k.buf.writeString("Error: ")
		k.buf.writeString(msg)
		k.console.WriteLine(k.buf.bytes())
		if k.opts.TestMode {
			qemu.Exit(k.hw, qemu.Failed)
		}
	}
	ring0.HaltLoop(k.hw)
}

// Pass reports a passing test and signals success.
func (k *Kernel) Pass() {
	k.line(okMessage)
	qemu.Exit(k.hw, qemu.Success)
	ring0.HaltLoop(k.hw)
}

// Fail reports a failing test with msg and signals failure.
func (k *Kernel) Fail(msg string) {
	k.buf.reset()
	k.buf.writeString(msg)
	k.console.WriteLine(k.buf.bytes())
	qemu.Exit(k.hw, qemu.Failed)
	ring0.HaltLoop(k.hw)
}
