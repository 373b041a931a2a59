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

//go:build unix
// +build unix

package emu

import (
	"golang.org/x/sys/unix"

	"gvisor.dev/trapgate/pkg/hostarch"
)

// mapStack maps size bytes outside the Go heap and makes the first page
// inaccessible, so that a bug in the emulator that touches the guard page
// faults the host instead of corrupting memory.
func mapStack(size int) ([]byte, error) {
	m, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	if err := unix.Mprotect(m[:hostarch.PageSize], unix.PROT_NONE); err != nil {
		unix.Munmap(m)
		return nil, err
	}
	return m, nil
}

func unmapStack(m []byte) error {
	return unix.Munmap(m)
}
