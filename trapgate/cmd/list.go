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
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/trapgate/pkg/scenario"
)

// List implements subcommands.Command for the "list" command.
type List struct {
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*List) Name() string {
	return "list"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*List) Synopsis() string {
	return "list the scenarios that boot and selftest can run"
}

// Usage implements subcommands.Command.Usage.
func (*List) Usage() string {
	return `list - list scenarios with their expected outcome.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*List) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (l *List) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	tw := tabwriter.NewWriter(output(l.out), 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tEXPECT\tDESCRIPTION\n")
	for _, s := range scenario.All() {
		fmt.Fprintf(tw, "%s\t%v\t%s\n", s.Name, s.Expect.State, s.Description)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}
