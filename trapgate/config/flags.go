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

package config

import (
	"flag"
	"fmt"
	"reflect"
	"strconv"

	"github.com/BurntSushi/toml"
	"gvisor.dev/trapgate/pkg/ring0/emu"
)

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	// Debugging flags.
	flagSet.String("log-format", LogFormatText, "log format: text (default), json, or logrus.")
	flagSet.Bool("debug", false, "enable debug logging.")

	// Flags that control the emulated machine.
	flagSet.Uint64("kernel-stack-size", emu.DefaultKernelStackSize, "size in bytes of the kernel stack; must be a multiple of the page size.")
	flagSet.Uint64("kernel-frame-size", emu.DefaultFrameSize, "stack bytes used by each emulated call, return address included.")
	flagSet.Uint64("max-steps", emu.DefaultMaxSteps, "maximum number of emulated instructions per machine.")

	// Flags that control the kernel.
	flagSet.Uint("double-fault-ist", 0, "zero-based interrupt stack table slot for the double fault stack, in [0, 6].")
	flagSet.Bool("test-mode", false, "exit with the status QEMU reports through the isa-debug-exit device.")

	// Output flags.
	flagSet.String("dump-format", DumpFormatText, "default output format of the dump command: text (default) or yaml.")
}

// NewFromFlags creates a new Config with values coming from command line flags.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	return New(flagSet, "")
}

// New creates a new Config. Values come from, in increasing order of
// precedence: flag defaults, the TOML file at path if path is not empty, and
// flags set explicitly on the command line.
func New(flagSet *flag.FlagSet, path string) (*Config, error) {
	conf := &Config{}
	forEachFlag(conf, func(field reflect.Value, name string) {
		field.Set(flagValue(flagSet, name))
	})

	if path != "" {
		md, err := toml.DecodeFile(path, conf)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys in config file %q: %v", path, undecoded)
		}
	}

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })
	forEachFlag(conf, func(field reflect.Value, name string) {
		if set[name] {
			field.Set(flagValue(flagSet, name))
		}
	})

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// ToFlags returns a slice of flags that correspond to the given Config.
func (c *Config) ToFlags() []string {
	var rv []string

	// Construct a temporary set for default plumbing.
	flagSet := flag.NewFlagSet("tmp", flag.ContinueOnError)
	RegisterFlags(flagSet)

	forEachFlag(c, func(field reflect.Value, name string) {
		val := getVal(field)
		fl := flagSet.Lookup(name)
		if val == fl.DefValue {
			return
		}
		rv = append(rv, fmt.Sprintf("--%s=%s", fl.Name, val))
	})
	return rv
}

// forEachFlag calls fn for every field of c with a flag tag.
func forEachFlag(c *Config, fn func(field reflect.Value, name string)) {
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		name, ok := st.Field(i).Tag.Lookup("flag")
		if !ok {
			// No flag set for this field.
			continue
		}
		fn(obj.Field(i), name)
	}
}

func flagValue(flagSet *flag.FlagSet, name string) reflect.Value {
	fl := flagSet.Lookup(name)
	if fl == nil {
		panic(fmt.Sprintf("Flag %q not found", name))
	}
	return reflect.ValueOf(fl.Value.(flag.Getter).Get())
}

func getVal(field reflect.Value) string {
	switch field.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(field.Bool())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(field.Uint(), 10)
	case reflect.String:
		return field.String()
	default:
		panic("unknown type " + field.Kind().String())
	}
}
