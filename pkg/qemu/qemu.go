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

// Package qemu signals test outcomes through QEMU's isa-debug-exit device.
//
// The device is configured with iobase=0xf4,iosize=0x04. Writing a value v
// terminates QEMU with exit status (v << 1) | 1.
package qemu

import (
	"fmt"

	"gvisor.dev/trapgate/pkg/ring0"
)

// ExitPort is the isa-debug-exit I/O port.
const ExitPort = 0xf4

// ExitCode is a value written to ExitPort.
type ExitCode uint32

// Exit codes. Zero is avoided since QEMU reports (0 << 1) | 1 = 1, which is
// indistinguishable from QEMU's own failure status.
const (
	Success ExitCode = 0x10
	Failed  ExitCode = 0x11
)

// String implements fmt.Stringer.String.
func (c ExitCode) String() string {
	switch c {
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("ExitCode(%#x)", uint32(c))
	}
}

// Status returns the host exit status QEMU reports for c.
func (c ExitCode) Status() int {
	return int(c<<1 | 1)
}

// FromStatus returns the exit code for a host exit status, if the status
// could have come from the device.
func FromStatus(status int) (ExitCode, bool) {
	if status <= 0 || status&1 == 0 {
		return 0, false
	}
	return ExitCode(status >> 1), true
}

// Exit writes c to the device. Under QEMU it does not return.
func Exit(ports ring0.Ports, c ExitCode) {
	ports.OutL(ExitPort, uint32(c))
}
