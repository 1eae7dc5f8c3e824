package utils

import (
	"squeeze-trader/src/models"
)

// -----------------------------------------------------------------------------
// CandleRingBuffer is a fixed-size circular buffer of candles.
// The oldest candle is overwritten once the buffer is full.
// -----------------------------------------------------------------------------

type CandleRingBuffer struct {
	data     []models.MCandle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewCandleRingBuffer creates a new buffer with fixed capacity
func NewCandleRingBuffer(capacity int) *CandleRingBuffer {
	if capacity <= 0 {
		capacity = 200
	}

	return &CandleRingBuffer{
		data:     make([]models.MCandle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append stores a closed candle. A candle with the same timestamp as the
// newest one replaces it, so a feed may resend the bar it just closed.
func (rb *CandleRingBuffer) Append(c models.MCandle) {
	if rb.size > 0 {
		last := (rb.index - 1 + rb.capacity) % rb.capacity
		if rb.data[last].Timestamp == c.Timestamp {
			rb.data[last] = c
			return
		}
	}

	rb.data[rb.index] = c
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest candles, oldest first
func (rb *CandleRingBuffer) GetLatest(n int) []models.MCandle {
	if rb.size == 0 || n <= 0 {
		return []models.MCandle{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MCandle, count)

	// latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all candles in insertion order (oldest to newest)
func (rb *CandleRingBuffer) GetAll() []models.MCandle {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Last returns the newest candle.
func (rb *CandleRingBuffer) Last() (models.MCandle, bool) {
	if rb.size == 0 {
		return models.MCandle{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *CandleRingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *CandleRingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *CandleRingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *CandleRingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
