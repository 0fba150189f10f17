package kernel

import (
	"fmt"
	"strings"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var process = newKind(ProcessTask, `Process`,
	[]uint8{OpcodeStart, OpcodeEnd, OpcodeDCStart, OpcodeDCEnd},
	[]string{`Start`, `Stop`, `DCStart`, `DCStop`},
	[]string{
		`UniqueProcessKey`, `ProcessID`, `ParentID`, `SessionID`, `ExitStatus`,
		`DirectoryTableBase`, `Flags`, `UserSID`, `ImageFileName`, `CommandLine`,
		`PackageFullName`, `ApplicationID`,
	},
	func(b event.Base) event.Payload { return Process{b} })

// ProcessFlags describes how a process was created.
type ProcessFlags uint32

// Process flags.
const (
	ProcessPackaged ProcessFlags = 1 << iota
	ProcessWow64
	ProcessProtected
)

var processFlagNames = []string{`Packaged`, `Wow64`, `Protected`}

func (f ProcessFlags) String() string {
	if f == 0 {
		return `None`
	}
	var names []string
	for i, name := range processFlagNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
			f &^= 1 << i
		}
	}
	if f != 0 {
		names = append(names, fmt.Sprintf(`0x%x`, uint32(f)))
	}
	return strings.Join(names, `|`)
}

// Process describes a process starting, ending or alive at a rundown.
//
// Version 0 begins with the process and parent ids stored pointer sized.
// Version 1 puts the
// process key in front and adds the session id and exit status, version 2
// the page directory base and the command line, version 3 the package
// identity and version 4 inserts the creation flags ahead of the user SID.
// The image file name is a narrow string, everything after it is UTF-16.
type Process struct {
	event.Base
}

func (e Process) pidOffset() int {
	return e.HostOffset(0, 1)
}

func (e Process) sidOffset() int {
	switch {
	case e.Version < event.Version1:
		return e.HostOffset(0, 2)
	case e.Version < event.Version2:
		return e.HostOffset(16, 1)
	case e.Version < event.Version4:
		return e.HostOffset(16, 2)
	}
	return e.HostOffset(20, 2)
}

func (e Process) nameOffset() int {
	return skipSID(e.Raw(), e.sidOffset())
}

func (e Process) commandLineOffset() int {
	return e.SkipUTF8(e.nameOffset())
}

// UniqueProcessKey is the kernel address of the process object.
func (e Process) UniqueProcessKey() event.Address {
	if e.Version < event.Version1 {
		return 0
	}
	return e.PointerAt(0)
}

// ProcessID is the id of the process.
func (e Process) ProcessID() uint32 {
	if e.Version < event.Version1 {
		return uint32(e.PointerAt(0))
	}
	return e.Uint32At(e.pidOffset())
}

// ParentID is the id of the creating process.
func (e Process) ParentID() uint32 {
	if e.Version < event.Version1 {
		return uint32(e.PointerAt(e.HostOffset(0, 1)))
	}
	return e.Uint32At(e.pidOffset() + 4)
}

// SessionID is the terminal session of the process.
func (e Process) SessionID() uint32 {
	if e.Version < event.Version1 {
		return 0
	}
	return e.Uint32At(e.pidOffset() + 8)
}

// ExitStatus is the exit code, meaningful on Process/Stop only.
func (e Process) ExitStatus() int32 {
	if e.Version < event.Version1 {
		return 0
	}
	return e.Int32At(e.pidOffset() + 12)
}

// DirectoryTableBase is the physical address of the page directory.
func (e Process) DirectoryTableBase() event.Address {
	if e.Version < event.Version2 {
		return 0
	}
	return e.PointerAt(e.HostOffset(16, 1))
}

// Flags returns the creation flags.
func (e Process) Flags() ProcessFlags {
	if e.Version < event.Version4 {
		return 0
	}
	return ProcessFlags(e.Uint32At(e.HostOffset(16, 2)))
}

// UserSID is the owner of the process, empty for a null token.
func (e Process) UserSID() string {
	return sidAt(e.Raw(), e.sidOffset())
}

// ImageFileName is the executable name.
func (e Process) ImageFileName() string {
	s, _ := e.ANSIAt(e.nameOffset())
	return s
}

// CommandLine is the command line the process was started with.
func (e Process) CommandLine() string {
	if e.Version < event.Version2 {
		return ``
	}
	s, _ := e.UTF16At(e.commandLineOffset())
	return s
}

// PackageFullName is the package identity of a packaged process.
func (e Process) PackageFullName() string {
	if e.Version < event.Version3 {
		return ``
	}
	s, _ := e.UTF16At(e.EndOf(e.commandLineOffset(), 1))
	return s
}

// ApplicationID is the application id of a packaged process.
func (e Process) ApplicationID() string {
	if e.Version < event.Version3 {
		return ``
	}
	s, _ := e.UTF16At(e.EndOf(e.commandLineOffset(), 2))
	return s
}

// Size returns the payload size implied by the version, SID and strings.
func (e Process) Size() int {
	switch {
	case e.Version < event.Version2:
		return e.commandLineOffset()
	case e.Version < event.Version3:
		return e.EndOf(e.commandLineOffset(), 1)
	}
	return e.EndOf(e.commandLineOffset(), 3)
}

// Value implements event.Payload.
func (e Process) Value(i int) interface{} {
	switch i {
	case 0:
		return e.UniqueProcessKey()
	case 1:
		return e.ProcessID()
	case 2:
		return e.ParentID()
	case 3:
		return e.SessionID()
	case 4:
		return e.ExitStatus()
	case 5:
		return e.DirectoryTableBase()
	case 6:
		return e.Flags()
	case 7:
		return e.UserSID()
	case 8:
		return e.ImageFileName()
	case 9:
		return e.CommandLine()
	case 10:
		return e.PackageFullName()
	case 11:
		return e.ApplicationID()
	}
	return nil
}

// Validate implements event.Payload.
func (e Process) Validate() error {
	return event.CheckLength(e, event.Version4, e.Size())
}
