package gpu

import "fmt"

// FrameTracker enforces the Submit, CopyFrame, Present handle protocol for a
// backend. At most one frame is in flight; a new submit abandons the old one.
// The zero value is ready to use.
type FrameTracker struct {
	seq      uint64
	inFlight bool
	released bool
}

// Begin starts a submit. Any unpresented frame is abandoned.
func (t *FrameTracker) Begin() error {
	if t.released {
		return ErrReleased
	}
	t.inFlight = false
	return nil
}

// Next is the sequence number the next issued handle will carry.
func (t *FrameTracker) Next() uint64 {
	return t.seq + 1
}

// Issue records a successful submit.
func (t *FrameTracker) Issue() FrameHandle {
	t.seq++
	t.inFlight = true
	return FrameHandle{Seq: t.seq}
}

// Check reports whether h names the frame currently in flight.
func (t *FrameTracker) Check(h FrameHandle) error {
	if t.released {
		return ErrReleased
	}
	if !t.inFlight || h.Seq != t.seq {
		return fmt.Errorf("%w: %d (current %d)", ErrStaleFrame, h.Seq, t.seq)
	}
	return nil
}

// Retire checks h and ends its frame.
func (t *FrameTracker) Retire(h FrameHandle) error {
	if err := t.Check(h); err != nil {
		return err
	}
	t.inFlight = false
	return nil
}

// Release marks the backend released. It returns false when it already was.
func (t *FrameTracker) Release() bool {
	if t.released {
		return false
	}
	t.released = true
	t.inFlight = false
	return true
}

func (t *FrameTracker) Released() bool {
	return t.released
}

func (t *FrameTracker) InFlight() bool {
	return t.inFlight
}
