// Package hostmem is a concrete, Linux-only ring.Allocator and MMIO
// mapper. It exists to give the core library something to run against
// on real hardware; the core packages never import it (spec.md §1's
// "MMIO mapping and DMA allocation are external collaborators"
// non-goal applies to the library itself, not to every package in this
// module).
//
// Physical-address translation goes through /proc/self/pagemap, the
// same mechanism a userspace driver needs to hand a controller an
// address its DMA engine can use when the process's virtual pages are
// not already identity-mapped to physical memory.
package hostmem

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/silverarc/xhci/mmio"
)

const pageSize = 4096

// Mapper maps a controller's MMIO BAR into the process's address space.
type Mapper struct {
	f *os.File
}

// OpenResource opens a PCI sysfs resource file (e.g.
// /sys/bus/pci/devices/0000:00:14.0/resource0) for mmap.
func OpenResource(path string) (*Mapper, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("hostmem: open %s: %w", path, err)
	}
	return &Mapper{f}, nil
}

// Map maps length bytes of the resource starting at offset and returns
// the resulting MMIO base. The mapping uses PROT_READ|PROT_WRITE and
// MAP_SHARED so writes reach the device, never MAP_PRIVATE.
func (m *Mapper) Map(offset int64, length int) (mmio.Base, error) {
	data, err := unix.Mmap(int(m.f.Fd()), offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return 0, fmt.Errorf("hostmem: mmap: %w", err)
	}
	return mmio.Base(uintptrOf(data)), nil
}

// Close closes the underlying resource file. It does not unmap any
// region obtained from Map; callers that need to unmap must retain the
// slice Map's caller constructed the address from.
func (m *Mapper) Close() error { return m.f.Close() }

// Allocator satisfies ring.Allocator using anonymous, locked,
// page-aligned mmap regions translated to physical addresses via
// /proc/self/pagemap. It is suitable for a process with CAP_SYS_ADMIN
// or running as root, as reading pagemap frame numbers requires.
type Allocator struct {
	pagemap *os.File
}

// NewAllocator opens /proc/self/pagemap for later virtual-to-physical
// translation.
func NewAllocator() (*Allocator, error) {
	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return nil, fmt.Errorf("hostmem: open pagemap: %w", err)
	}
	return &Allocator{f}, nil
}

// Allocate reserves sizeBytes of page-aligned, locked memory and
// returns its physical address. alignment coarser than the page size
// is rejected; xHCI ring and context alignment requirements never
// exceed 4096 bytes (spec.md §4), so this is not a practical
// restriction.
func (a *Allocator) Allocate(sizeBytes, alignment uintptr) (mmio.Base, error) {
	if alignment > pageSize {
		return 0, fmt.Errorf("hostmem: alignment %d exceeds page size", alignment)
	}
	length := int(roundUp(sizeBytes, pageSize))
	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, fmt.Errorf("hostmem: mmap: %w", err)
	}
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return 0, fmt.Errorf("hostmem: mlock: %w", err)
	}
	phys, err := a.virtToPhys(uintptrOf(data))
	if err != nil {
		unix.Munlock(data)
		unix.Munmap(data)
		return 0, err
	}
	return mmio.Base(phys), nil
}

// Free is a no-op placeholder: reversing Allocate requires retaining
// the original virtual-memory slice, which the ring.Allocator interface
// (spec.md §4.5.2's allocator contract, expressed only in terms of
// addresses) does not hand back. A production caller wanting real
// unmap/unlock support would extend Allocator to track addr -> slice
// itself.
func (a *Allocator) Free(addr mmio.Base, sizeBytes, alignment uintptr) {}

// Close closes the pagemap file descriptor.
func (a *Allocator) Close() error { return a.pagemap.Close() }

func (a *Allocator) virtToPhys(vaddr uintptr) (uintptr, error) {
	pageIndex := vaddr / pageSize
	buf := make([]byte, 8)
	if _, err := a.pagemap.ReadAt(buf, int64(pageIndex)*8); err != nil {
		return 0, fmt.Errorf("hostmem: read pagemap: %w", err)
	}
	entry := binary.LittleEndian.Uint64(buf)
	if entry&(1<<63) == 0 {
		return 0, fmt.Errorf("hostmem: page not present")
	}
	pfn := entry & ((1 << 55) - 1)
	return uintptr(pfn)*pageSize + vaddr%pageSize, nil
}

func roundUp(v, align uintptr) uintptr { return (v + align - 1) &^ (align - 1) }

func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
