package tr

// PacketID identifies a queued packet. Zero is never assigned.
type PacketID byte

// Next calculates the next packet id, skipping zero on wrap.
func (id PacketID) Next() PacketID {
	n := byte(id) + 1
	if n == 0 {
		n = 1
	}
	return PacketID(n)
}

// IsValid checks if it's an assigned packet id.
func (id PacketID) IsValid() bool {
	return id != 0
}

// Packet is a queued outbound packet.
type Packet struct {
	ID      PacketID
	Command byte
	// Data is the caller's buffer, released as a whole when AutoRelease is set.
	Data []byte
	// Len is the number of bytes of Data sent, at most MaxDataLength.
	Len         int
	AutoRelease bool
}

// Payload returns the bytes to be put on the wire.
func (p *Packet) Payload() []byte {
	return p.Data[:p.Len]
}

// Queue is a fixed capacity FIFO of outbound packets.
// One slot always stays free to tell full from empty.
type Queue struct {
	slots  []Packet
	head   int
	tail   int
	lastID PacketID
}

// NewQueue creates a Queue with size slots, at least 2.
func NewQueue(size int) *Queue {
	if size < 2 {
		size = 2
	}
	return &Queue{slots: make([]Packet, size)}
}

// Push enqueues a packet and assigns its id.
// Payloads longer than MaxDataLength are truncated.
func (q *Queue) Push(cmd byte, data []byte, autoRelease bool) (PacketID, error) {
	n := len(data)
	if n == 0 {
		return 0, ErrEmptyPacket
	}
	if q.IsFull() {
		return 0, ErrQueueFull
	}
	if n > MaxDataLength {
		n = MaxDataLength
	}
	q.lastID = q.lastID.Next()
	q.slots[q.head] = Packet{
		ID:          q.lastID,
		Command:     cmd,
		Data:        data,
		Len:         n,
		AutoRelease: autoRelease,
	}
	q.head = q.advance(q.head)
	return q.lastID, nil
}

// Peek returns the oldest packet without removing it.
func (q *Queue) Peek() (Packet, bool) {
	if q.IsEmpty() {
		return Packet{}, false
	}
	return q.slots[q.tail], true
}

// Pop removes the oldest packet.
func (q *Queue) Pop() {
	if q.IsEmpty() {
		return
	}
	q.slots[q.tail] = Packet{}
	q.tail = q.advance(q.tail)
}

// IsEmpty reports whether no packet is queued.
func (q *Queue) IsEmpty() bool {
	return q.head == q.tail
}

// IsFull reports whether Push would fail.
func (q *Queue) IsFull() bool {
	return q.advance(q.head) == q.tail
}

// Len returns the number of queued packets.
func (q *Queue) Len() int {
	if q.head >= q.tail {
		return q.head - q.tail
	}
	return len(q.slots) - q.tail + q.head
}

// Cap returns the maximum number of packets the queue holds.
func (q *Queue) Cap() int {
	return len(q.slots) - 1
}

func (q *Queue) advance(i int) int {
	if i++; i >= len(q.slots) {
		i = 0
	}
	return i
}
