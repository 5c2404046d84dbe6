package zwave

import (
	"fmt"
	"maps"
	"slices"
)

// ControllerCommand is the driver's identifier for a controller command.
type ControllerCommand uint8

// Controller commands, in the driver's enumeration order.
const (
	CommandNone ControllerCommand = iota
	CommandAddDevice
	CommandCreateNewPrimary
	CommandReceiveConfiguration
	CommandRemoveDevice
	CommandRemoveFailedNode
	CommandHasNodeFailed
	CommandReplaceFailedNode
	CommandTransferPrimaryRole
	CommandRequestNetworkUpdate
	CommandRequestNodeNeighborUpdate
	CommandAssignReturnRoute
	CommandDeleteAllReturnRoutes
	CommandSendNodeInformation
	CommandReplicationSend
	CommandCreateButton
	CommandDeleteButton
)

// CommandEntry pairs a command name with its identifier.
type CommandEntry struct {
	Name    string
	Command ControllerCommand
}

// DefaultCommands returns the driver's controller command enumeration.
func DefaultCommands() []CommandEntry {
	return []CommandEntry{
		{"None", CommandNone},
		{"AddDevice", CommandAddDevice},
		{"CreateNewPrimary", CommandCreateNewPrimary},
		{"ReceiveConfiguration", CommandReceiveConfiguration},
		{"RemoveDevice", CommandRemoveDevice},
		{"RemoveFailedNode", CommandRemoveFailedNode},
		{"HasNodeFailed", CommandHasNodeFailed},
		{"ReplaceFailedNode", CommandReplaceFailedNode},
		{"TransferPrimaryRole", CommandTransferPrimaryRole},
		{"RequestNetworkUpdate", CommandRequestNetworkUpdate},
		{"RequestNodeNeighborUpdate", CommandRequestNodeNeighborUpdate},
		{"AssignReturnRoute", CommandAssignReturnRoute},
		{"DeleteAllReturnRoutes", CommandDeleteAllReturnRoutes},
		{"SendNodeInformation", CommandSendNodeInformation},
		{"ReplicationSend", CommandReplicationSend},
		{"CreateButton", CommandCreateButton},
		{"DeleteButton", CommandDeleteButton},
	}
}

// CommandTable maps command names to identifiers.
// It is filled once by NewCommandTable and never modified afterwards, so
// concurrent reads need no locking.
type CommandTable struct {
	byName map[string]ControllerCommand
	byID   map[ControllerCommand]string
}

// NewCommandTable builds a table from the driver's enumeration.
// Later entries with a duplicate name replace earlier ones.
func NewCommandTable(entries []CommandEntry) *CommandTable {
	t := &CommandTable{
		byName: make(map[string]ControllerCommand, len(entries)),
		byID:   make(map[ControllerCommand]string, len(entries)),
	}
	for _, e := range entries {
		t.byName[e.Name] = e.Command
		t.byID[e.Command] = e.Name
	}
	return t
}

// Resolve returns the identifier for name.
// Names are matched exactly; an unknown name yields ErrUnknownCommand.
func (t *CommandTable) Resolve(name string) (ControllerCommand, error) {
	cmd, ok := t.byName[name]
	if !ok {
		return CommandNone, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// Name returns the name registered for cmd.
func (t *CommandTable) Name(cmd ControllerCommand) (string, bool) {
	name, ok := t.byID[cmd]
	return name, ok
}

// Names returns all command names, sorted.
func (t *CommandTable) Names() []string {
	return slices.Sorted(maps.Keys(t.byName))
}

// String returns the command's default name.
func (c ControllerCommand) String() string {
	for _, e := range DefaultCommands() {
		if e.Command == c {
			return e.Name
		}
	}
	return fmt.Sprintf("ControllerCommand(%d)", uint8(c))
}
