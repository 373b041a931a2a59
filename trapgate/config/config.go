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

// Package config provides basic infrastructure to set configuration settings
// for trapgate. Each setting that can be changed from the command line or
// from a TOML configuration file must be added to Config.
package config

import (
	"fmt"

	"github.com/mohae/deepcopy"
	"gvisor.dev/trapgate/pkg/hostarch"
	"gvisor.dev/trapgate/pkg/kernel"
	"gvisor.dev/trapgate/pkg/log"
	"gvisor.dev/trapgate/pkg/ring0"
	"gvisor.dev/trapgate/pkg/ring0/emu"
	"gvisor.dev/trapgate/pkg/scenario"
)

// Config holds configuration that is not part of the command line arguments
// of a single command.
//
// Follow these steps to add a new setting:
//  1. Create a new field in this struct with flag and toml tags.
//  2. Register the flag in RegisterFlags.
//  3. Validate it in validate, if needed.
type Config struct {
	// DoubleFaultISTIndex is the interrupt stack table slot, zero-based,
	// that holds the double fault stack.
	DoubleFaultISTIndex uint `flag:"double-fault-ist" toml:"double_fault_ist"`

	// KernelStackSize is the size of the emulated kernel stack in bytes.
	KernelStackSize uint64 `flag:"kernel-stack-size" toml:"kernel_stack_size"`

	// KernelFrameSize is the stack used by each emulated call.
	KernelFrameSize uint64 `flag:"kernel-frame-size" toml:"kernel_frame_size"`

	// MaxSteps bounds the number of emulated instructions per machine.
	MaxSteps uint64 `flag:"max-steps" toml:"max_steps"`

	// TestMode makes boot exit with the status QEMU would report through
	// the debug exit device.
	TestMode bool `flag:"test-mode" toml:"test_mode"`

	// LogFormat is the log format: text, json or logrus.
	LogFormat string `flag:"log-format" toml:"log_format"`

	// Debug enables debug logging.
	Debug bool `flag:"debug" toml:"debug"`

	// DumpFormat is the default output format of the dump command: text
	// or yaml.
	DumpFormat string `flag:"dump-format" toml:"dump_format"`
}

// Log formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogrus = "logrus"
)

// Dump formats.
const (
	DumpFormatText = "text"
	DumpFormatYAML = "yaml"
)

func (c *Config) validate() error {
	if c.DoubleFaultISTIndex > ring0.MaxStackIndex {
		return fmt.Errorf("double-fault-ist must be in [0, %d], got %d", ring0.MaxStackIndex, c.DoubleFaultISTIndex)
	}
	if c.KernelStackSize == 0 || !hostarch.Addr(c.KernelStackSize).IsAligned(hostarch.PageSize) {
		return fmt.Errorf("kernel-stack-size must be a positive multiple of %d, got %d", hostarch.PageSize, c.KernelStackSize)
	}
	if c.KernelFrameSize < 8 || c.KernelFrameSize%8 != 0 || c.KernelFrameSize > c.KernelStackSize {
		return fmt.Errorf("kernel-frame-size must be a multiple of 8 in [8, %d], got %d", c.KernelStackSize, c.KernelFrameSize)
	}
	if c.MaxSteps == 0 {
		return fmt.Errorf("max-steps must be positive")
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatLogrus:
	default:
		return fmt.Errorf("invalid log-format %q, must be %q, %q or %q", c.LogFormat, LogFormatText, LogFormatJSON, LogFormatLogrus)
	}
	switch c.DumpFormat {
	case DumpFormatText, DumpFormatYAML:
	default:
		return fmt.Errorf("invalid dump-format %q, must be %q or %q", c.DumpFormat, DumpFormatText, DumpFormatYAML)
	}
	return nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	return c.validate()
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	return deepcopy.Copy(c).(*Config)
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	log.Infof("\t\tDoubleFaultISTIndex: %d", c.DoubleFaultISTIndex)
	log.Infof("\t\tKernelStackSize: %#x", c.KernelStackSize)
	log.Infof("\t\tKernelFrameSize: %d", c.KernelFrameSize)
	log.Infof("\t\tMaxSteps: %d", c.MaxSteps)
	log.Infof("\t\tTestMode: %t", c.TestMode)
	log.Infof("\t\tLogFormat: %s", c.LogFormat)
	log.Infof("\t\tDebug: %t", c.Debug)
	log.Infof("\t\tDumpFormat: %s", c.DumpFormat)
}

// MachineOptions returns the emulated machine configuration.
func (c *Config) MachineOptions() emu.Options {
	return emu.Options{
		KernelStackSize: c.KernelStackSize,
		FrameSize:       c.KernelFrameSize,
		MaxSteps:        c.MaxSteps,
	}
}

// KernelOptions returns the kernel configuration.
func (c *Config) KernelOptions() kernel.Options {
	return kernel.Options{
		DoubleFaultStackIndex: uint16(c.DoubleFaultISTIndex),
		TestMode:              c.TestMode,
	}
}

// RunOptions returns the scenario configuration.
func (c *Config) RunOptions() scenario.RunOptions {
	return scenario.RunOptions{
		Machine:               c.MachineOptions(),
		DoubleFaultStackIndex: uint16(c.DoubleFaultISTIndex),
	}
}
