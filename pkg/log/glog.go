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

package log

import (
	"os"
	"runtime"
	"strings"
	"time"
)

// GoogleEmitter is a wrapper that emits logs in a format compatible with
// package github.com/golang/glog:
//
//	Lmmdd hh:mm:ss.uuuuuu pid file:line] msg
//
// The header is built in a fixed buffer, so formatting a line allocates only
// what the underlying emitter does.
type GoogleEmitter struct {
	// Emitter is the underlying emitter.
	Emitter
}

// buffer is a fixed-capacity header buffer. Writes past the end are dropped.
type buffer struct {
	data [256]byte
	n    int
}

func (b *buffer) write(c byte) {
	if b.n < len(b.data) {
		b.data[b.n] = c
		b.n++
	}
}

func (b *buffer) writeString(s string) {
	for i := 0; i < len(s); i++ {
		b.write(s[i])
	}
}

// writeDigits writes v in decimal, zero padded to width.
func (b *buffer) writeDigits(v, width int) {
	var d [20]byte
	i := len(d)
	for v > 0 || len(d)-i < width || i == len(d) {
		i--
		d[i] = '0' + byte(v%10)
		v /= 10
	}
	for _, c := range d[i:] {
		b.write(c)
	}
}

func (b *buffer) String() string {
	return string(b.data[:b.n])
}

// letter returns the glog severity character for l.
func (l Level) letter() byte {
	switch l {
	case Debug:
		return 'D'
	case Info:
		return 'I'
	default:
		return 'W'
	}
}

// pid is the thread ID column; glog pads it to 7 characters.
var pid = func() string {
	var b buffer
	b.writeDigits(os.Getpid(), 0)
	s := b.String()
	if len(s) < 7 {
		s = strings.Repeat(" ", 7-len(s)) + s
	}
	return s
}()

// caller returns "file:line" for the frame depth+1 above the caller.
func caller(depth int) string {
	_, file, line, ok := runtime.Caller(depth + 2)
	if !ok {
		return "???:0"
	}
	if slash := strings.LastIndexByte(file, '/'); slash >= 0 {
		file = file[slash+1:]
	}
	var b buffer
	b.writeString(file)
	b.write(':')
	b.writeDigits(line, 0)
	return b.String()
}

// Emit emits the message, google-style.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	var b buffer
	b.write(level.letter())

	_, month, day := timestamp.Date()
	hour, minute, second := timestamp.Clock()
	b.writeDigits(int(month), 2)
	b.writeDigits(day, 2)
	b.write(' ')
	b.writeDigits(hour, 2)
	b.write(':')
	b.writeDigits(minute, 2)
	b.write(':')
	b.writeDigits(second, 2)
	b.write('.')
	b.writeDigits(timestamp.Nanosecond()/1000, 6)
	b.write(' ')
	b.writeString(pid)
	b.write(' ')
	b.writeString(caller(depth))
	b.writeString("] ")

	// The header must not be interpreted as a format string.
	g.Emitter.Emit(depth, level, timestamp, "%s"+format+"\n", append([]any{b.String()}, args...)...)
}
