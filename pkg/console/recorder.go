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

package console

// Recorder sizes.
const (
	RecorderBytes = 4096
	RecorderLines = 64
)

// Recorder captures lines into fixed storage.
//
// Lines that do not fit are dropped and counted.
type Recorder struct {
	buf     [RecorderBytes]byte
	ends    [RecorderLines]int
	used    int
	lines   int
	dropped int
}

// WriteLine records line.
func (r *Recorder) WriteLine(line []byte) {
	if r.lines == len(r.ends) || r.used+len(line) > len(r.buf) {
		r.dropped++
		return
	}
	r.used += copy(r.buf[r.used:], line)
	r.ends[r.lines] = r.used
	r.lines++
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	lines := make([]string, 0, r.lines)
	start := 0
	for _, end := range r.ends[:r.lines] {
		lines = append(lines, string(r.buf[start:end]))
		start = end
	}
	return lines
}

// Dropped returns the number of lines that did not fit.
func (r *Recorder) Dropped() int {
	return r.dropped
}

// Reset forgets every line.
func (r *Recorder) Reset() {
	r.used = 0
	r.lines = 0
	r.dropped = 0
}
