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
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/qemu"
	"gvisor.dev/trapgate/pkg/ring0/emu"
	"gvisor.dev/trapgate/pkg/scenario"
	"gvisor.dev/trapgate/trapgate/cmd/util"
)

// Boot implements subcommands.Command for the "boot" command.
type Boot struct {
	deliveries bool

	// out is where the serial output is written; stdout if nil.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*Boot) Name() string {
	return "boot"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Boot) Synopsis() string {
	return "boot the kernel on an emulated machine and run a scenario"
}

// Usage implements subcommands.Command.Usage.
func (*Boot) Usage() string {
	return `boot [flags] <scenario> - boot the kernel and run a scenario, printing the serial output.

With --test-mode the exit status is the one QEMU reports for the debug exit
device. Otherwise it is 0 if the scenario ended as expected and 1 if not.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Boot) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&b.deliveries, "deliveries", false, "print every interrupt delivered by the machine after the serial output.")
}

// Execute implements subcommands.Command.Execute.
func (b *Boot) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		usage(f, "expected one scenario, one of %v", scenario.Names())
		return subcommands.ExitUsageError
	}
	conf, status := commandArgs(args)

	name := f.Arg(0)
	s, ok := scenario.Lookup(name)
	if !ok {
		return util.Errorf("unknown scenario %q, must be one of %v", name, scenario.Names())
	}
	r, err := s.Run(conf.RunOptions())
	if err != nil {
		return util.Errorf("running scenario: %v", err)
	}

	out := output(b.out)
	fmt.Fprint(out, r.Output)
	if b.deliveries {
		for _, d := range r.Deliveries {
			fmt.Fprintf(out, "%v\n", d)
		}
	}
	log.Infof("Scenario %q stopped: %v (%s)", name, r.State, r.Reason)
	if !r.Passed() {
		log.Warningf("Scenario %q failed: %s", name, r.Mismatch)
	}

	*status = bootStatus(r, conf.TestMode)
	return subcommands.ExitSuccess
}

// bootStatus returns the process exit status for r.
func bootStatus(r *scenario.Result, testMode bool) int {
	if testMode {
		if r.State == emu.StateExited {
			return r.ExitStatus
		}
		return qemu.Failed.Status()
	}
	if r.Passed() {
		return 0
	}
	return 1
}
