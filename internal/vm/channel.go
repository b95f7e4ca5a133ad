package vm

// Packet is a self-contained value: a heap holding exactly the value's
// graph. Packets cross fiber boundaries; the receiving side clones the
// value into its own heap and discards the packet heap.
type Packet struct {
	Heap  *Heap
	Value Value
}

// NewPacket clones a value out of src into a fresh heap.
func NewPacket(src *Heap, value Value) Packet {
	heap := NewHeap()
	cloned := src.CloneTo(heap, value, make(map[Handle]Handle))
	return Packet{Heap: heap, Value: cloned}
}

// CloneInto copies the packet's value into a heap.
func (p Packet) CloneInto(dst *Heap) Value {
	return p.Heap.CloneTo(dst, p.Value, make(map[Handle]Handle))
}

// Channel is a capacity-bounded packet queue. Blocked operations are
// managed by the scheduler; the channel itself only buffers.
type Channel struct {
	capacity int
	packets  []Packet
}

// NewChannel returns an empty channel with the given capacity.
func NewChannel(capacity int) *Channel {
	return &Channel{capacity: capacity}
}

// Capacity returns the declared capacity.
func (c *Channel) Capacity() int { return c.capacity }

// HasRoom reports whether the buffer can take another packet.
func (c *Channel) HasRoom() bool { return len(c.packets) < c.capacity }

// Push buffers a packet. The caller must check HasRoom first; pushing
// past capacity is a scheduler bug.
func (c *Channel) Push(p Packet) {
	if !c.HasRoom() {
		panic("channel buffered past its capacity")
	}
	c.packets = append(c.packets, p)
}

// Pop removes the oldest buffered packet.
func (c *Channel) Pop() (Packet, bool) {
	if len(c.packets) == 0 {
		return Packet{}, false
	}
	p := c.packets[0]
	c.packets = c.packets[1:]
	return p, true
}
