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

//go:build amd64
// +build amd64

package kernel

import (
	"gvisor.dev/trapgate/pkg/console"
	"gvisor.dev/trapgate/pkg/ring0/metal"
)

// Boot initializes the boot processor on bare metal, with handler output on
// COM1. It is called from the boot entry with interrupts disabled.
func Boot(opts Options) *Kernel {
	cpu := metal.CPU{}
	serial := console.NewSerial(cpu, console.COM1)
	serial.Init()
	return Init(cpu, serial, opts)
}
