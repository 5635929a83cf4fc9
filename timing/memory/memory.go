// Package memory models the main-memory controller: fixed-latency data
// reads and write-backs, optionally fronted by a draining write buffer
// that coalesces eviction latency with subsequent reads.
package memory

import "github.com/sarchlab/snoopsim/stats"

// MissPenalty is the main-memory access latency in cycles.
const MissPenalty = 100

const noPending = -1

// Controller models main memory. Its polling operations start or
// continue a countdown and report true on the cycle the operation
// finishes; RunOnce advances all countdowns by one cycle.
type Controller struct {
	pendingWriteBack int
	pendingDataRead  int

	writeBuffer *WriteBuffer
	delay       int

	statsAccum *stats.Accumulator
}

// Option configures a Controller.
type Option func(*Controller)

// WithWriteBuffer fronts the controller with a write buffer of the
// given capacity. A capacity of -1 is unbounded.
func WithWriteBuffer(capacity int) Option {
	return func(m *Controller) {
		m.writeBuffer = NewWriteBuffer(capacity)
	}
}

// NewController creates a memory controller reporting write-backs to
// the accumulator.
func NewController(statsAccum *stats.Accumulator, opts ...Option) *Controller {
	m := &Controller{
		pendingWriteBack: noPending,
		pendingDataRead:  noPending,
		delay:            MissPenalty,
		statsAccum:       statsAccum,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetDelay configures the coalesced-read delay used when a read hits an
// address still queued in the write buffer. The drivers set it to twice
// the number of words per cache line.
func (m *Controller) SetDelay(delay int) {
	m.delay = delay
}

// HasWriteBuffer reports whether the controller runs in write-buffer mode.
func (m *Controller) HasWriteBuffer() bool {
	return m.writeBuffer != nil
}

// RunOnce advances all in-flight timers by one cycle. When the write
// buffer's head entry drains, one write-back is recorded.
func (m *Controller) RunOnce() {
	if m.writeBuffer != nil {
		if m.writeBuffer.RunOnce() {
			m.statsAccum.OnWriteBack()
		}
	} else if m.pendingWriteBack > 0 {
		m.pendingWriteBack--
	}

	if m.pendingDataRead > 0 {
		m.pendingDataRead--
	}
}

// WriteBack starts or continues writing a block back to memory and
// returns true on the cycle the write-back completes. In write-buffer
// mode the block is queued and the call completes immediately unless
// the buffer is full.
func (m *Controller) WriteBack(address uint32) bool {
	if m.writeBuffer != nil {
		return m.writeBuffer.Enqueue(address)
	}

	switch m.pendingWriteBack {
	case noPending:
		m.pendingWriteBack = MissPenalty - 1
		return false
	case 0:
		m.pendingWriteBack = noPending
		m.statsAccum.OnWriteBack()
		return true
	default:
		return false
	}
}

// ReadData starts or continues reading a block from memory and returns
// true on the cycle the read completes. In write-buffer mode a read
// whose block is still queued for write-back absorbs the queued entry
// and completes in the configured coalescing delay instead of the full
// miss penalty.
func (m *Controller) ReadData(address uint32) bool {
	switch m.pendingDataRead {
	case noPending:
		penalty := MissPenalty
		if m.writeBuffer != nil && m.writeBuffer.RemoveIfPresent(address) {
			penalty = m.delay
		}
		m.pendingDataRead = penalty - 1
		return false
	case 0:
		m.pendingDataRead = noPending
		return true
	default:
		return false
	}
}

// Idle reports whether no write-back work remains.
func (m *Controller) Idle() bool {
	if m.writeBuffer != nil {
		return m.writeBuffer.Empty()
	}
	return m.pendingWriteBack == noPending || m.pendingWriteBack == 0
}
