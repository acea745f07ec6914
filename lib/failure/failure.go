// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package failure

import (
	"strings"

	"github.com/bureau-foundation/trovewatch/lib/trove"
)

// Tag identifies a failure variant on the wire.
type Tag int

const (
	TagFailed              Tag = 0
	TagBuildFailed         Tag = 1
	TagMissingBuildReqs    Tag = 2
	TagMissingDependencies Tag = 3
	TagChrootFailed        Tag = 4
	TagLoadFailed          Tag = 5
	TagInternalError       Tag = 6
	TagStopped             Tag = 7
	TagCommandFailed       Tag = 8
)

const (
	// fieldSeparator joins the fields of a variant's payload.
	fieldSeparator = "\x00"

	// recordSeparator joins the spec and the dependency set inside
	// one MissingDependencies record.
	recordSeparator = "\x01"
)

// Reason is a failure variant. The set of implementations is closed:
// only this package can add one, because each variant must also be
// registered with a decoder.
type Reason interface {
	error

	// Tag returns the variant's wire tag.
	Tag() Tag

	// ShortError returns a one-line summary suitable for status
	// listings. Error returns the detailed form, which may span
	// several lines.
	ShortError() string

	// HasTraceback reports whether a captured traceback is attached.
	HasTraceback() bool

	// Traceback returns the captured traceback, or "".
	Traceback() string

	payload() string
}

// Failed is the generic failure carrying a free-form message.
type Failed struct {
	Message string
}

func (Failed) Tag() Tag { return TagFailed }
func (f Failed) Error() string { return f.Message }
func (f Failed) ShortError() string { return f.Error() }
func (Failed) HasTraceback() bool { return false }
func (Failed) Traceback() string { return "" }
func (f Failed) payload() string { return f.Message }

// Stopped records that a build was halted by an explicit stop request.
type Stopped struct {
	Message string
}

func (Stopped) Tag() Tag { return TagStopped }
func (s Stopped) Error() string { return "Stopped: " + s.Message }
func (s Stopped) ShortError() string { return s.Error() }
func (Stopped) HasTraceback() bool { return false }
func (Stopped) Traceback() string { return "" }
func (s Stopped) payload() string { return s.Message }

// Exception is the (message, traceback) pair carried by the variants
// that wrap an error raised on the build side.
type Exception struct {
	Message string
	Trace   string
}

// HasTraceback reports whether Trace is non-empty.
func (e Exception) HasTraceback() bool { return e.Trace != "" }

// Traceback returns Trace.
func (e Exception) Traceback() string { return e.Trace }

// ShortError returns the bare message.
func (e Exception) ShortError() string { return e.Message }

func (e Exception) payload() string {
	return e.Message + fieldSeparator + e.Trace
}

// BuildFailed reports an error raised while the build itself ran.
type BuildFailed struct{ Exception }

// NewBuildFailed returns a BuildFailed reason.
func NewBuildFailed(message, traceback string) BuildFailed {
	return BuildFailed{Exception{Message: message, Trace: traceback}}
}

func (BuildFailed) Tag() Tag { return TagBuildFailed }
func (b BuildFailed) Error() string { return "Failed while building: " + b.Message }

// ChrootFailed reports an error while creating the build chroot.
type ChrootFailed struct{ Exception }

// NewChrootFailed returns a ChrootFailed reason.
func NewChrootFailed(message, traceback string) ChrootFailed {
	return ChrootFailed{Exception{Message: message, Trace: traceback}}
}

func (ChrootFailed) Tag() Tag { return TagChrootFailed }
func (c ChrootFailed) Error() string { return "Failed while creating chroot: " + c.Message }
func (c ChrootFailed) ShortError() string { return c.Error() }

// LoadFailed reports an error while loading the recipe.
type LoadFailed struct{ Exception }

// NewLoadFailed returns a LoadFailed reason.
func NewLoadFailed(message, traceback string) LoadFailed {
	return LoadFailed{Exception{Message: message, Trace: traceback}}
}

func (LoadFailed) Tag() Tag { return TagLoadFailed }
func (l LoadFailed) Error() string { return "Failed while loading recipe: " + l.Message }
func (LoadFailed) ShortError() string { return "Failed while loading recipe" }

// InternalError reports a bug in the build service itself. Its
// detailed form includes the full traceback so operators can file it.
type InternalError struct{ Exception }

// NewInternalError returns an InternalError reason.
func NewInternalError(message, traceback string) InternalError {
	return InternalError{Exception{Message: message, Trace: traceback}}
}

func (InternalError) Tag() Tag { return TagInternalError }

func (i InternalError) Error() string {
	return "Internal Error : " + i.Message + "\n" + i.Trace
}

func (InternalError) ShortError() string { return "Internal Error" }

// CommandFailed reports an error while a worker executed a command.
type CommandFailed struct {
	Exception
	CommandID string
}

// NewCommandFailed returns a CommandFailed reason.
func NewCommandFailed(commandID, message, traceback string) CommandFailed {
	return CommandFailed{Exception: Exception{Message: message, Trace: traceback}, CommandID: commandID}
}

func (CommandFailed) Tag() Tag { return TagCommandFailed }

func (c CommandFailed) Error() string {
	return "Failed while executing command " + c.CommandID + ": " + c.Message
}

func (c CommandFailed) payload() string {
	return c.Exception.payload() + fieldSeparator + c.CommandID
}

// MissingBuildReqs lists build requirements that could not be
// satisfied.
type MissingBuildReqs struct {
	Requirements []trove.Tuple
}

func (MissingBuildReqs) Tag() Tag { return TagMissingBuildReqs }
func (MissingBuildReqs) HasTraceback() bool { return false }
func (MissingBuildReqs) Traceback() string { return "" }
func (m MissingBuildReqs) ShortError() string { return m.Error() }

func (m MissingBuildReqs) Error() string {
	specs := make([]string, len(m.Requirements))
	for i, requirement := range m.Requirements {
		specs[i] = requirement.Spec()
	}
	return "Could not satisfy build requirements: " + strings.Join(specs, ", ")
}

func (m MissingBuildReqs) payload() string {
	specs := make([]string, len(m.Requirements))
	for i, requirement := range m.Requirements {
		specs[i] = requirement.Spec()
	}
	return strings.Join(specs, fieldSeparator)
}

// DependencySet is a frozen dependency set from the package model.
// The monitor never interprets it.
type DependencySet string

// DependencyFailure pairs a trove with the dependencies it needed but
// could not get.
type DependencyFailure struct {
	Trove    trove.Tuple
	Requires DependencySet
}

// MissingDependencies lists troves whose runtime dependencies could not
// be resolved.
type MissingDependencies struct {
	Entries []DependencyFailure
}

func (MissingDependencies) Tag() Tag { return TagMissingDependencies }
func (MissingDependencies) HasTraceback() bool { return false }
func (MissingDependencies) Traceback() string { return "" }
func (m MissingDependencies) ShortError() string { return m.Error() }

func (m MissingDependencies) Error() string {
	lines := make([]string, len(m.Entries))
	for i, entry := range m.Entries {
		requires := strings.ReplaceAll(string(entry.Requires), "\n", "\n\t")
		lines[i] = "    " + entry.Trove.Spec() + " requires:\n\t" + requires
	}
	return "Could not satisfy dependencies:\n" + strings.Join(lines, "\n")
}

func (m MissingDependencies) payload() string {
	records := make([]string, len(m.Entries))
	for i, entry := range m.Entries {
		records[i] = entry.Trove.Spec() + recordSeparator + string(entry.Requires)
	}
	return strings.Join(records, fieldSeparator)
}
