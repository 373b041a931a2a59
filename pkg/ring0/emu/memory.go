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
	"encoding/binary"
	"fmt"

	"gvisor.dev/trapgate/pkg/hostarch"
)

// region is a span of emulated memory. Addresses are the host addresses of
// the backing bytes, so that pointers stored in descriptor tables resolve
// without translation.
type region struct {
	name  string
	r     hostarch.AddrRange
	data  []byte
	guard bool
}

// accessError is a failed memory access.
type accessError struct {
	addr  hostarch.Addr
	write bool
	guard bool
}

// Error implements error.Error.
func (e *accessError) Error() string {
	kind := "read"
	if e.write {
		kind = "write"
	}
	if e.guard {
		return fmt.Sprintf("%s of guard page at %#x", kind, uint64(e.addr))
	}
	return fmt.Sprintf("%s of unmapped address %#x", kind, uint64(e.addr))
}

// pageFaultCode returns the page fault error code for e. Guard pages are not
// mapped, so the present bit is always clear.
func (e *accessError) pageFaultCode() uint64 {
	if e.write {
		return 2
	}
	return 0
}

// memory is the set of regions visible to the emulated processor.
type memory struct {
	regions []region
}

// mapRegion adds data at its own host address. Mapping the same range twice
// is a no-op.
func (m *memory) mapRegion(name string, r hostarch.AddrRange, data []byte, guard bool) {
	if !r.WellFormed() || (!guard && uint64(len(data)) != r.Length()) {
		panic(fmt.Sprintf("bad region %s %v with %d bytes", name, r, len(data)))
	}
	for i := range m.regions {
		if m.regions[i].r == r {
			return
		}
		if m.regions[i].r.Overlaps(r) {
			panic(fmt.Sprintf("region %s %v overlaps %s %v", name, r, m.regions[i].name, m.regions[i].r))
		}
	}
	m.regions = append(m.regions, region{name: name, r: r, data: data, guard: guard})
}

// find returns the bytes for [addr, addr+n).
func (m *memory) find(addr hostarch.Addr, n uint64, write bool) ([]byte, error) {
	ar, ok := addr.ToRange(n)
	if !ok {
		return nil, &accessError{addr: addr, write: write}
	}
	var data []byte
	for i := range m.regions {
		reg := &m.regions[i]
		switch {
		case !reg.r.Overlaps(ar):
		case reg.guard:
			return nil, &accessError{addr: addr, write: write, guard: true}
		case reg.r.IsSupersetOf(ar):
			off := uint64(ar.Start - reg.r.Start)
			data = reg.data[off : off+n]
		}
	}
	if data == nil {
		return nil, &accessError{addr: addr, write: write}
	}
	return data, nil
}

// name returns the name of the region containing addr, or "".
func (m *memory) name(addr hostarch.Addr) string {
	for i := range m.regions {
		if m.regions[i].r.Contains(addr) {
			return m.regions[i].name
		}
	}
	return ""
}

func (m *memory) writeUint64(addr hostarch.Addr, v uint64) error {
	b, err := m.find(addr, 8, true)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (m *memory) readUint64(addr hostarch.Addr) (uint64, error) {
	b, err := m.find(addr, 8, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
