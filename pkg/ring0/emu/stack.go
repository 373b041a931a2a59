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

package emu

import (
	"fmt"
	"unsafe"

	"gvisor.dev/trapgate/pkg/hostarch"
)

// kernelStack is the boot stack, with a guard page immediately below it.
type kernelStack struct {
	// mapping is the guard page followed by the stack.
	mapping []byte
}

func newKernelStack(size uint64) (*kernelStack, error) {
	if size == 0 || !hostarch.Addr(size).IsAligned(hostarch.PageSize) {
		return nil, fmt.Errorf("kernel stack size %#x is not a positive multiple of the page size", size)
	}
	mapping, err := mapStack(int(size + hostarch.PageSize))
	if err != nil {
		return nil, fmt.Errorf("mapping kernel stack: %w", err)
	}
	return &kernelStack{mapping: mapping}, nil
}

func (s *kernelStack) base() hostarch.Addr {
	return hostarch.Addr(uintptr(unsafe.Pointer(&s.mapping[0])))
}

// guard returns the range of the guard page.
func (s *kernelStack) guard() hostarch.AddrRange {
	return hostarch.AddrRange{Start: s.base(), End: s.base() + hostarch.PageSize}
}

// stack returns the usable range.
func (s *kernelStack) stack() hostarch.AddrRange {
	return hostarch.AddrRange{Start: s.base() + hostarch.PageSize, End: s.base() + hostarch.Addr(len(s.mapping))}
}

func (s *kernelStack) data() []byte {
	return s.mapping[hostarch.PageSize:]
}

func (s *kernelStack) release() error {
	if s.mapping == nil {
		return nil
	}
	err := unmapStack(s.mapping)
	s.mapping = nil
	return err
}
