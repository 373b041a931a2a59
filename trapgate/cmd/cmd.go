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

// Package cmd holds implementations of the trapgate commands.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gvisor.dev/trapgate/pkg/console"
	"gvisor.dev/trapgate/pkg/kernel"
	"gvisor.dev/trapgate/pkg/ring0/emu"
	"gvisor.dev/trapgate/trapgate/config"
)

// commandArgs unpacks the arguments passed to every command by the main
// entry point: the configuration and where to store the exit status.
func commandArgs(args []any) (*config.Config, *int) {
	if len(args) != 2 {
		panic(fmt.Sprintf("command called with %d arguments, want 2", len(args)))
	}
	return args[0].(*config.Config), args[1].(*int)
}

// output returns w, or stdout if w is nil.
func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// initKernel initializes a kernel on a fresh machine without running any
// program. The caller must close the machine.
func initKernel(conf *config.Config) (*emu.Machine, *kernel.Kernel, *console.Recorder, error) {
	m, err := emu.New(conf.MachineOptions())
	if err != nil {
		return nil, nil, nil, err
	}
	k := new(kernel.Kernel)
	rec := new(console.Recorder)
	if state := m.Run(func(m *emu.Machine) {
		k.Init(m, rec, conf.KernelOptions())
	}); state != emu.StateReturned {
		m.Close()
		return nil, nil, nil, fmt.Errorf("kernel initialization stopped the machine: %v: %s", state, m.Reason())
	}
	return m, k, rec, nil
}

// usage prints a message followed by the usage of the command.
func usage(f *flag.FlagSet, format string, args ...any) {
	fmt.Fprintf(f.Output(), format+"\n", args...)
	f.Usage()
}
