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

package ring0

import (
	"unsafe"

	"gvisor.dev/trapgate/pkg/hostarch"
)

// InterruptStackSize is the size of a dedicated interrupt stack.
const InterruptStackSize = 5 * hostarch.PageSize

// InterruptStack is a stack reserved for a single interrupt stack table slot.
//
// It must never move or be reclaimed once its top has been stored in a task
// state segment; allocate it statically.
type InterruptStack struct {
	data [InterruptStackSize]byte
}

// Range returns the addresses spanned by the stack.
//
//go:nosplit
func (s *InterruptStack) Range() hostarch.AddrRange {
	start := hostarch.Addr(uintptr(unsafe.Pointer(&s.data[0])))
	return hostarch.AddrRange{Start: start, End: start + InterruptStackSize}
}

// Top returns the initial stack pointer: the end of the region, aligned down
// as the processor aligns it on an interrupt stack switch.
//
//go:nosplit
func (s *InterruptStack) Top() uint64 {
	return uint64(s.Range().End.AlignDown(hostarch.StackAlignment))
}

// Bytes returns the memory backing the stack.
func (s *InterruptStack) Bytes() []byte {
	return s.data[:]
}
