package pool

import "errors"

var (
	// ErrPoolSaturated means every slot and backlog position is taken;
	// the submission was dropped.
	ErrPoolSaturated = errors.New("worker pool saturated: all slots busy and backlog full")
	// ErrPoolClosed means the pool no longer accepts submissions.
	ErrPoolClosed = errors.New("worker pool closed")
)
