package editor

import (
	"errors"
	"fmt"

	"github.com/starford/storyloom/internal/graph"
	"github.com/starford/storyloom/internal/models"
)

var (
	// ErrUnknownCommand is returned by Apply for an unrecognised op.
	ErrUnknownCommand = errors.New("editor: unknown command")
	// ErrMissingFields is returned when an update carries no node fields.
	ErrMissingFields = errors.New("editor: fields are required")
)

// Command ops accepted by Apply.
const (
	OpAddNode    = "add_node"
	OpUpdateNode = "update_node"
	OpMoveNode   = "move_node"
	OpDeleteNode = "delete_node"
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpSetStart   = "set_start"
	OpCopy       = "copy"
	OpPaste      = "paste"
)

// Command is a graph operation addressed by id.
type Command struct {
	Op       string            `json:"op"`
	NodeID   string            `json:"node_id,omitempty"`
	Target   string            `json:"target,omitempty"`
	Slot     string            `json:"slot,omitempty"`
	EdgeIDs  []string          `json:"edge_ids,omitempty"`
	Fields   *graph.NodeFields `json:"fields,omitempty"`
	Position *models.Position  `json:"position,omitempty"`
}

// Outcome reports what a command produced.
type Outcome struct {
	Op      string      `json:"op"`
	NodeID  string      `json:"node_id,omitempty"`
	Edge    *graph.Edge `json:"edge,omitempty"`
	Removed int         `json:"removed,omitempty"`
}

// Apply runs one command against the session.
func (s *Session) Apply(cmd Command) (Outcome, error) {
	out := Outcome{Op: cmd.Op, NodeID: cmd.NodeID}
	pos := models.Position{}
	if cmd.Position != nil {
		pos = *cmd.Position
	}

	var err error
	switch cmd.Op {
	case OpAddNode:
		out.NodeID = s.AddNode(cmd.Fields, pos)
	case OpUpdateNode:
		if cmd.Fields == nil {
			return out, fmt.Errorf("%w: %s", ErrMissingFields, cmd.Op)
		}
		err = s.UpdateNode(cmd.NodeID, *cmd.Fields)
	case OpMoveNode:
		err = s.MoveNode(cmd.NodeID, pos)
	case OpDeleteNode:
		err = s.DeleteNode(cmd.NodeID)
	case OpConnect:
		var e graph.Edge
		if e, err = s.Connect(cmd.NodeID, cmd.Target, cmd.Slot); err == nil {
			out.Edge = &e
		}
	case OpDisconnect:
		out.Removed = s.Disconnect(cmd.EdgeIDs...)
	case OpSetStart:
		err = s.SetStartNode(cmd.NodeID)
	case OpCopy:
		err = s.Copy(cmd.NodeID)
	case OpPaste:
		out.NodeID, err = s.Paste(pos)
	default:
		return out, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Op)
	}
	return out, err
}

// ApplyAll runs cmds in order and stops at the first failure, returning the
// outcomes of the commands that succeeded.
func (s *Session) ApplyAll(cmds []Command) ([]Outcome, error) {
	outs := make([]Outcome, 0, len(cmds))
	for i, cmd := range cmds {
		out, err := s.Apply(cmd)
		if err != nil {
			return outs, fmt.Errorf("command %d (%s): %w", i, cmd.Op, err)
		}
		outs = append(outs, out)
	}
	return outs, nil
}
