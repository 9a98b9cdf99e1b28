package tr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketID(t *testing.T) {
	for id := 1; id < 255; id++ {
		require.True(t, PacketID(id).IsValid())
		require.Equal(t, PacketID(id+1), PacketID(id).Next())
	}
	require.Equal(t, PacketID(1), PacketID(255).Next())
	require.Equal(t, PacketID(1), PacketID(0).Next())
	require.False(t, PacketID(0).IsValid())
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	require.True(t, q.IsEmpty())
	require.Equal(t, 3, q.Cap())

	for i := 0; i < 3; i++ {
		id, err := q.Push(byte(i), []byte{byte(i)}, false)
		require.NoError(t, err)
		require.Equal(t, PacketID(i+1), id)
	}
	require.True(t, q.IsFull())
	require.Equal(t, 3, q.Len())

	_, err := q.Push(9, []byte{9}, false)
	require.Equal(t, ErrQueueFull, err)

	for i := 0; i < 3; i++ {
		pkt, ok := q.Peek()
		require.True(t, ok)
		require.Equal(t, byte(i), pkt.Command)
		require.Equal(t, []byte{byte(i)}, pkt.Payload())
		q.Pop()
	}
	require.True(t, q.IsEmpty())
	_, ok := q.Peek()
	require.False(t, ok)
	q.Pop()
	require.True(t, q.IsEmpty())
}

func TestQueueRejectsEmpty(t *testing.T) {
	q := NewQueue(4)
	id, err := q.Push(CmdWriteRead, nil, true)
	require.Equal(t, ErrEmptyPacket, err)
	require.Zero(t, id)
	id, err = q.Push(CmdWriteRead, []byte{}, false)
	require.Equal(t, ErrEmptyPacket, err)
	require.Zero(t, id)
	require.True(t, q.IsEmpty())

	// rejected calls don't consume ids.
	id, err = q.Push(CmdWriteRead, []byte{1}, false)
	require.NoError(t, err)
	require.Equal(t, PacketID(1), id)
}

func TestQueueTruncates(t *testing.T) {
	q := NewQueue(2)
	data := make([]byte, 100)
	_, err := q.Push(CmdWriteRead, data, true)
	require.NoError(t, err)
	pkt, _ := q.Peek()
	require.Equal(t, MaxDataLength, pkt.Len)
	require.Len(t, pkt.Payload(), MaxDataLength)
	require.Len(t, pkt.Data, 100)
	require.True(t, pkt.AutoRelease)
}

func TestQueueIDsCycle(t *testing.T) {
	q := NewQueue(3)
	expect := PacketID(1)
	for i := 0; i < 1000; i++ {
		id, err := q.Push(CmdWriteRead, []byte{1, 2}, false)
		require.NoError(t, err)
		require.Equal(t, expect, id)
		require.True(t, id.IsValid())
		if i%2 == 1 {
			q.Pop()
			q.Pop()
		}
		expect = expect.Next()
	}
}
