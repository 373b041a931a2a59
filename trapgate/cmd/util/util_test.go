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

package util

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/subcommands"
	"gvisor.dev/trapgate/pkg/log"
)

func TestErrorf(t *testing.T) {
	var buf bytes.Buffer
	ErrorLogger = &buf
	defer func() { ErrorLogger = nil }()

	if got := Errorf("unknown scenario %q", "bogus"); got != subcommands.ExitFailure {
		t.Errorf("Errorf: got %v, want %v", got, subcommands.ExitFailure)
	}
	var e log.Entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("Unmarshal(%q): %v", buf.String(), err)
	}
	if want := `unknown scenario "bogus"`; e.Msg != want {
		t.Errorf("msg: got %q, want %q", e.Msg, want)
	}
	if e.Level != log.Warning {
		t.Errorf("level: got %v, want %v", e.Level, log.Warning)
	}
	if e.Time.IsZero() {
		t.Errorf("time not set")
	}
}
