package terminal

// ringBuffer keeps the most recent bytes written to it, up to capacity.
// It is not safe for concurrent use; the Multiplexer guards it.
type ringBuffer struct {
	data          []byte
	capacity      int
	writePosition int
	stored        int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
}

// Write appends data, overwriting the oldest bytes once full.
func (ring *ringBuffer) Write(data []byte) {
	if len(data) > ring.capacity {
		data = data[len(data)-ring.capacity:]
	}
	for offset := 0; offset < len(data); {
		available := ring.capacity - ring.writePosition
		copyLength := len(data) - offset
		if copyLength > available {
			copyLength = available
		}
		copy(ring.data[ring.writePosition:ring.writePosition+copyLength], data[offset:offset+copyLength])
		ring.writePosition = (ring.writePosition + copyLength) % ring.capacity
		offset += copyLength
	}
	ring.stored += len(data)
	if ring.stored > ring.capacity {
		ring.stored = ring.capacity
	}
}

// Bytes returns a copy of the retained bytes, oldest first.
func (ring *ringBuffer) Bytes() []byte {
	if ring.stored == 0 {
		return nil
	}
	result := make([]byte, ring.stored)
	readPosition := (ring.writePosition - ring.stored + ring.capacity) % ring.capacity
	for copied := 0; copied < ring.stored; {
		available := ring.capacity - readPosition
		copyLength := ring.stored - copied
		if copyLength > available {
			copyLength = available
		}
		copy(result[copied:copied+copyLength], ring.data[readPosition:readPosition+copyLength])
		readPosition = (readPosition + copyLength) % ring.capacity
		copied += copyLength
	}
	return result
}

// Len returns the number of retained bytes.
func (ring *ringBuffer) Len() int {
	return ring.stored
}

// Reset discards all retained bytes.
func (ring *ringBuffer) Reset() {
	ring.writePosition = 0
	ring.stored = 0
}
