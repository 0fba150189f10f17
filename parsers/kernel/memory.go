package kernel

import (
	"fmt"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var memoryPageAccess = newKind(PageFaultTask, `Memory`,
	[]uint8{OpcodeMemoryPageAccess},
	[]string{`PageAccess`},
	[]string{`PageKind`, `PageList`, `PageFrameIndex`, `FileKey`, `VirtualAddress`},
	func(b event.Base) event.Payload { return MemoryPageAccess{b} })

// PageKind is what a physical page is used for.
type PageKind uint32

// Page kinds.
const (
	PageProcessPrivate PageKind = iota
	PageFile
	PagePageFileMapped
	PagePageTable
	PagePagedPool
	PageNonPagedPool
	PageSystemPTE
	PageSessionPrivate
	PageMetaFile
	PageAWEPage
	PageDriverLockedPage
	PageKernelStack
)

var pageKindNames = []string{
	`ProcessPrivate`, `File`, `PageFileMapped`, `PageTable`, `PagedPool`,
	`NonPagedPool`, `SystemPTE`, `SessionPrivate`, `MetaFile`, `AWEPage`,
	`DriverLockedPage`, `KernelStack`,
}

func (k PageKind) String() string {
	if int(k) < len(pageKindNames) {
		return pageKindNames[k]
	}
	return fmt.Sprintf(`PageKind(%d)`, uint32(k))
}

// PageList is the memory manager list a physical page is on.
type PageList uint8

// Page lists.
const (
	PageListZero PageList = iota
	PageListFree
	PageListStandby
	PageListModified
	PageListModifiedNoWrite
	PageListBad
	PageListActive
	PageListTransition
)

var pageListNames = []string{
	`Zero`, `Free`, `Standby`, `Modified`, `ModifiedNoWrite`, `Bad`, `Active`, `Transition`,
}

func (l PageList) String() string {
	if int(l) < len(pageListNames) {
		return pageListNames[l]
	}
	return fmt.Sprintf(`PageList(%d)`, uint8(l))
}

// MemoryPageAccess is a sampled access to a physical page. Its first field
// packs the page kind in the low 28 bits and the page list in the high 4.
type MemoryPageAccess struct {
	event.Base
}

// PageKind is the use of the page.
func (e MemoryPageAccess) PageKind() PageKind {
	return PageKind(e.Uint32At(0) & 0x0fffffff)
}

// PageList is the list the page is on.
func (e MemoryPageAccess) PageList() PageList {
	return PageList(e.Uint32At(0) >> 28)
}

// PageFrameIndex is the physical page number.
func (e MemoryPageAccess) PageFrameIndex() uint64 {
	return uint64(e.PointerAt(8))
}

// FileKey identifies the file backing the page, zero for anonymous memory.
func (e MemoryPageAccess) FileKey() event.Address {
	return e.PointerAt(e.HostOffset(8, 1))
}

// VirtualAddress is the address the page was accessed through.
func (e MemoryPageAccess) VirtualAddress() event.Address {
	return e.PointerAt(e.HostOffset(8, 2))
}

// Size returns the payload size.
func (e MemoryPageAccess) Size() int {
	return e.HostOffset(8, 3)
}

// Value implements event.Payload.
func (e MemoryPageAccess) Value(i int) interface{} {
	switch i {
	case 0:
		return e.PageKind()
	case 1:
		return e.PageList()
	case 2:
		return e.PageFrameIndex()
	case 3:
		return e.FileKey()
	case 4:
		return e.VirtualAddress()
	}
	return nil
}

// Validate implements event.Payload.
func (e MemoryPageAccess) Validate() error {
	return event.CheckLength(e, event.Version0, e.Size())
}
