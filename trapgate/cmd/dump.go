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
	"gopkg.in/yaml.v3"
	"gvisor.dev/trapgate/pkg/kernel"
	"gvisor.dev/trapgate/pkg/ring0"
	"gvisor.dev/trapgate/trapgate/cmd/util"
	"gvisor.dev/trapgate/trapgate/config"
)

// Dump implements subcommands.Command for the "dump" command.
type Dump struct {
	format  string
	section string

	// out is where the report is written; stdout if nil.
	out io.Writer
}

// Dump sections.
const (
	sectionAll = "all"
	sectionIDT = "idt"
	sectionGDT = "gdt"
	sectionTSS = "tss"
)

// Name implements subcommands.Command.Name.
func (*Dump) Name() string {
	return "dump"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Dump) Synopsis() string {
	return "initialize the kernel on an emulated machine and print its descriptor tables"
}

// Usage implements subcommands.Command.Usage.
func (*Dump) Usage() string {
	return `dump [flags] - print the IDT, GDT and TSS built by kernel initialization.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Dump) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.format, "format", "", "output format: text or yaml. Defaults to the dump-format setting.")
	f.StringVar(&d.section, "section", sectionAll, "table to print: idt, gdt, tss or all.")
}

// Execute implements subcommands.Command.Execute.
func (d *Dump) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		usage(f, "unexpected arguments: %v", f.Args())
		return subcommands.ExitUsageError
	}
	conf, _ := commandArgs(args)

	format := d.format
	if format == "" {
		format = conf.DumpFormat
	}
	switch d.section {
	case sectionAll, sectionIDT, sectionGDT, sectionTSS:
	default:
		return util.Errorf("invalid section %q, must be %q, %q, %q or %q", d.section, sectionIDT, sectionGDT, sectionTSS, sectionAll)
	}

	r, err := NewReport(conf)
	if err != nil {
		return util.Errorf("building report: %v", err)
	}
	r.filter(d.section)

	out := output(d.out)
	switch format {
	case config.DumpFormatText:
		err = r.WriteText(out)
	case config.DumpFormatYAML:
		err = r.WriteYAML(out)
	default:
		return util.Errorf("invalid format %q, must be %q or %q", format, config.DumpFormatText, config.DumpFormatYAML)
	}
	if err != nil {
		return util.Errorf("writing report: %v", err)
	}
	return subcommands.ExitSuccess
}

// Report describes the tables built by kernel initialization.
type Report struct {
	IDT []GateReport       `yaml:"idt,omitempty"`
	GDT []DescriptorReport `yaml:"gdt,omitempty"`
	TSS *TSSReport         `yaml:"tss,omitempty"`
}

// GateReport is one present IDT gate.
type GateReport struct {
	Vector     uint8   `yaml:"vector"`
	Name       string  `yaml:"name"`
	Handler    string  `yaml:"handler"`
	Selector   string  `yaml:"selector"`
	Type       string  `yaml:"type"`
	DPL        uint16  `yaml:"dpl"`
	StackIndex *uint16 `yaml:"ist,omitempty"`
	Options    string  `yaml:"options"`
}

// DescriptorReport is one GDT slot.
type DescriptorReport struct {
	Selector string `yaml:"selector"`
	Raw      string `yaml:"raw"`
	Present  bool   `yaml:"present"`
	Base     string `yaml:"base,omitempty"`
	Limit    string `yaml:"limit,omitempty"`
	DPL      int    `yaml:"dpl"`
	Kind     string `yaml:"kind"`
}

// TSSReport is the task state segment.
type TSSReport struct {
	Base       string   `yaml:"base"`
	Limit      string   `yaml:"limit"`
	IST        []string `yaml:"ist"`
	IOPerm     uint16   `yaml:"io_perm"`
	StackIndex uint16   `yaml:"double_fault_ist"`
	StackRange string   `yaml:"double_fault_stack"`
}

// NewReport initializes a kernel with conf and describes its tables.
func NewReport(conf *config.Config) (*Report, error) {
	m, k, _, err := initKernel(conf)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return &Report{
		IDT: gateReports(k.IDT()),
		GDT: descriptorReports(k.Segments()),
		TSS: tssReport(k),
	}, nil
}

func gateReports(t *ring0.IDT) []GateReport {
	var gates []GateReport
	for _, v := range t.Installed() {
		g := t.Gate(v)
		opts := g.Options()
		r := GateReport{
			Vector:   uint8(v),
			Name:     v.String(),
			Handler:  fmt.Sprintf("%#x", g.Handler()),
			Selector: g.Selector().String(),
			Type:     opts.Type().String(),
			DPL:      opts.PrivilegeLevel(),
			Options:  fmt.Sprintf("%#04x", uint16(*opts)),
		}
		if idx, ok := opts.StackIndex(); ok {
			r.StackIndex = &idx
		}
		gates = append(gates, r)
	}
	return gates
}

func descriptorReports(s *ring0.Segments) []DescriptorReport {
	descs := s.Descriptors()
	var rs []DescriptorReport
	for i := 0; i < len(descs); i++ {
		d := &descs[i]
		r := DescriptorReport{
			Selector: ring0.NewSelector(uint16(i), 0).String(),
			Raw:      fmt.Sprintf("%#016x", d.Raw()),
			Present:  d.Present(),
			DPL:      d.DPL(),
		}
		if !d.Present() {
			// The upper half of a TSS descriptor looks like a missing
			// segment.
			r.Kind = "null"
			if i > 0 {
				if typ, ok := descs[i-1].SystemType(); ok && (typ == ring0.SystemTypeTSSAvailable || typ == ring0.SystemTypeTSSBusy) {
					r.Kind = "tss (high)"
				}
			}
			rs = append(rs, r)
			continue
		}
		r.Base = fmt.Sprintf("%#x", d.Base())
		r.Limit = fmt.Sprintf("%#x", d.Limit())
		r.Kind = descriptorKind(d)
		rs = append(rs, r)
	}
	return rs
}

func descriptorKind(d *ring0.SegmentDescriptor) string {
	if typ, ok := d.SystemType(); ok {
		switch typ {
		case ring0.SystemTypeTSSAvailable:
			return "tss (available)"
		case ring0.SystemTypeTSSBusy:
			return "tss (busy)"
		default:
			return fmt.Sprintf("system(%#x)", typ)
		}
	}
	switch flags := d.Flags(); {
	case flags&ring0.SegmentDescriptorExecute != 0 && flags&ring0.SegmentDescriptorLong != 0:
		return "code64"
	case flags&ring0.SegmentDescriptorExecute != 0:
		return "code"
	default:
		return "data"
	}
}

func tssReport(k *kernel.Kernel) *TSSReport {
	s := k.Segments()
	base, limit, _ := s.TSS()
	tss := s.TaskState()
	r := &TSSReport{
		Base:       fmt.Sprintf("%#x", base),
		Limit:      fmt.Sprintf("%#x", limit),
		IOPerm:     tss.IOPerm(),
		StackIndex: s.StackIndex(),
		StackRange: fmt.Sprintf("%#x-%#x", uint64(s.Stack().Range().Start), uint64(s.Stack().Range().End)),
	}
	for i := 0; i <= ring0.MaxStackIndex; i++ {
		r.IST = append(r.IST, fmt.Sprintf("%#x", tss.IST(i)))
	}
	return r
}

// filter drops every section but section.
func (r *Report) filter(section string) {
	if section != sectionAll && section != sectionIDT {
		r.IDT = nil
	}
	if section != sectionAll && section != sectionGDT {
		r.GDT = nil
	}
	if section != sectionAll && section != sectionTSS {
		r.TSS = nil
	}
}

// WriteYAML writes r as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// WriteText writes r as aligned tables.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if r.IDT != nil {
		fmt.Fprintf(tw, "VECTOR\tNAME\tHANDLER\tSELECTOR\tTYPE\tDPL\tIST\tOPTIONS\n")
		for _, g := range r.IDT {
			ist := "-"
			if g.StackIndex != nil {
				ist = fmt.Sprintf("%d", *g.StackIndex)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n", g.Vector, g.Name, g.Handler, g.Selector, g.Type, g.DPL, ist, g.Options)
		}
		fmt.Fprintf(tw, "\n")
	}
	if r.GDT != nil {
		fmt.Fprintf(tw, "SELECTOR\tKIND\tBASE\tLIMIT\tDPL\tRAW\n")
		for _, d := range r.GDT {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", d.Selector, d.Kind, orDash(d.Base), orDash(d.Limit), d.DPL, d.Raw)
		}
		fmt.Fprintf(tw, "\n")
	}
	if r.TSS != nil {
		fmt.Fprintf(tw, "TSS\t%s\n", r.TSS.Base)
		fmt.Fprintf(tw, "LIMIT\t%s\n", r.TSS.Limit)
		fmt.Fprintf(tw, "IOPERM\t%#x\n", r.TSS.IOPerm)
		for i, top := range r.TSS.IST {
			fmt.Fprintf(tw, "IST%d\t%s\n", i, top)
		}
		fmt.Fprintf(tw, "DOUBLE FAULT STACK\t%s (ist %d)\n", r.TSS.StackRange, r.TSS.StackIndex)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
