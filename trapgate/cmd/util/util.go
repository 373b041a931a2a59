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

// Package util groups a bunch of common helper functions used by commands.
package util

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"gvisor.dev/trapgate/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages are
// consumed by the caller of trapgate.
var ErrorLogger io.Writer

// Errorf logs error to the error log (--error-log), to stderr, and debug logs. It
// returns subcommands.ExitFailure for convenience with subcommand.Execute()
// methods:
//
//	return Errorf("Danger! Danger!")
func Errorf(format string, args ...any) subcommands.ExitStatus {
	// Write to debug log.
	log.Warningf(format, args...)

	// Write to error log. This is normally set by the --error-log flag.
	if ErrorLogger != nil {
		writeError(ErrorLogger, format, args...)
	}

	// Write to stderr.
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}

// Fatalf logs the same way as Errorf() does, plus *exits* the process.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	// Return an error that is unlikely to be used by a scenario.
	os.Exit(128)
}

// writeError writes the message as a JSON log line.
func writeError(w io.Writer, format string, args ...any) {
	_ = log.WriteJSON(w, log.Entry{
		Msg:   fmt.Sprintf(format, args...),
		Level: log.Warning,
		Time:  time.Now(),
	})
}
