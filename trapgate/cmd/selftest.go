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
	"runtime"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/scenario"
	"gvisor.dev/trapgate/trapgate/cmd/util"
)

// SelfTest implements subcommands.Command for the "selftest" command.
type SelfTest struct {
	jobs int

	// out is where results are written; stdout if nil.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*SelfTest) Name() string {
	return "selftest"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*SelfTest) Synopsis() string {
	return "run every scenario and report which ones ended as expected"
}

// Usage implements subcommands.Command.Usage.
func (*SelfTest) Usage() string {
	return `selftest [flags] [scenario...] - run scenarios, all of them if none is named.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *SelfTest) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.jobs, "j", runtime.NumCPU(), "number of scenarios to run concurrently.")
}

// Execute implements subcommands.Command.Execute.
func (s *SelfTest) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf, status := commandArgs(args)
	if s.jobs < 1 {
		usage(f, "-j must be positive, got %d", s.jobs)
		return subcommands.ExitUsageError
	}

	scenarios := scenario.All()
	if f.NArg() > 0 {
		scenarios = scenarios[:0:0]
		for _, name := range f.Args() {
			sc, ok := scenario.Lookup(name)
			if !ok {
				return util.Errorf("unknown scenario %q, must be one of %v", name, scenario.Names())
			}
			scenarios = append(scenarios, sc)
		}
	}

	results := make([]*scenario.Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := sc.Run(conf.RunOptions())
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return util.Errorf("running scenarios: %v", err)
	}

	out := output(s.out)
	failed := 0
	for _, r := range results {
		if r.Passed() {
			fmt.Fprintf(out, "%s...\t[ok]\n", r.Scenario)
			continue
		}
		failed++
		fmt.Fprintf(out, "%s...\t[failed]\n\t%s\n", r.Scenario, r.Mismatch)
		log.Warningf("Scenario %q failed: %s; output:\n%s", r.Scenario, r.Mismatch, r.Output)
	}
	fmt.Fprintf(out, "%d passed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		*status = 1
	}
	return subcommands.ExitSuccess
}
