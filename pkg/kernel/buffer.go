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

package kernel

// truncated ends a line that did not fit.
const truncated = "..."

// lineBuffer formats a single line without allocating. Text past the end of
// the buffer is dropped and the line ends with truncated instead.
type lineBuffer struct {
	tmp [256]byte
	n   int
}

func (b *lineBuffer) reset() {
	b.n = 0
}

func (b *lineBuffer) bytes() []byte {
	return b.tmp[:b.n]
}

func (b *lineBuffer) write(c byte) {
	if b.n < len(b.tmp) {
		b.tmp[b.n] = c
		b.n++
		return
	}
	copy(b.tmp[len(b.tmp)-len(truncated):], truncated)
}

func (b *lineBuffer) writeString(s string) {
	for i := 0; i < len(s); i++ {
		b.write(s[i])
	}
}

const hexDigits = "0123456789abcdef"

// writeHex writes v as 0x-prefixed hexadecimal.
func (b *lineBuffer) writeHex(v uint64) {
	b.writeString("0x")
	shift := 60
	for shift > 0 && (v>>uint(shift))&0xf == 0 {
		shift -= 4
	}
	for ; shift >= 0; shift -= 4 {
		b.write(hexDigits[(v>>uint(shift))&0xf])
	}
}
