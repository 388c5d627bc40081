package stream

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/cortexrig/internal/animator"
	"github.com/normanking/cortexrig/internal/expression"
	"github.com/normanking/cortexrig/internal/gesture"
	"github.com/normanking/cortexrig/internal/pose"
)

// Message types.
const (
	TypeHello  = "hello"
	TypeFrames = "frames"
	TypeError  = "error"
)

// ErrUnknownCommand is returned for a command type the server does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Outbound is a server to viewer message.
type Outbound struct {
	Type   string           `json:"type"`
	Seq    uint64           `json:"seq,omitempty"`
	Frames []animator.Frame `json:"frames,omitempty"`
	IDs    []string         `json:"ids,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Command is a viewer to server control message addressed to one character.
type Command struct {
	Type    string                          `json:"type"` // pose, gesture, stop, lookat, context, quality
	ID      string                          `json:"id"`
	Name    string                          `json:"name,omitempty"`
	Target  *[3]float64                     `json:"target,omitempty"`
	Context *expression.RelationshipContext `json:"context,omitempty"`
}

// Apply routes the command to a controller.
func (cmd Command) Apply(c *animator.Controller) error {
	switch cmd.Type {
	case "pose":
		c.SetPose(pose.Name(cmd.Name))
	case "gesture":
		c.PlayGesture(gesture.Name(cmd.Name), nil)
	case "stop":
		c.StopGesture()
	case "lookat":
		if cmd.Target == nil {
			c.SetLookAt(nil)
			return nil
		}
		v := mgl64.Vec3(*cmd.Target)
		c.SetLookAt(&v)
	case "context":
		if cmd.Context == nil {
			return fmt.Errorf("context command without context")
		}
		c.SetContext(*cmd.Context)
	case "quality":
		q, err := animator.QualityPreset(cmd.Name)
		if err != nil {
			return err
		}
		c.SetQuality(q)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return nil
}
