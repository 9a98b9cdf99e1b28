package tr

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPacket indicates a send without payload.
	ErrEmptyPacket = errors.New("empty packet")
	// ErrQueueFull indicates no free slot is left in the packet queue.
	ErrQueueFull = errors.New("packet queue full")
	// ErrControlBusy indicates a lifecycle request while a previous one
	// is still in progress.
	ErrControlBusy = errors.New("module control busy")
	// ErrNotIdentified indicates the module didn't report its identity.
	ErrNotIdentified = errors.New("module not identified")
)

// FrameError describes a frame dropped after exhausting its attempts.
type FrameError struct {
	Command  byte
	PacketID PacketID
	Attempts int
}

// Error implements error.
func (e *FrameError) Error() string {
	if e.PacketID == 0 {
		return fmt.Sprintf("read frame 0x%02x failed after %d attempts", e.Command, e.Attempts)
	}
	return fmt.Sprintf("packet %d (cmd 0x%02x) failed after %d attempts", e.PacketID, e.Command, e.Attempts)
}
