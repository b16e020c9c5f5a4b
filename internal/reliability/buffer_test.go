package reliability

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/fisadev/grillo/internal/chunk"
)

func TestBufferMissingIndices(t *testing.T) {
	buf := newReceiveBuffer(4)
	for _, i := range []uint8{0, 2, 3} {
		buf.insert(chunk.Packet{Total: 4, Index: i, Data: []byte{i}})
	}
	missing := buf.missing()
	if len(missing) != 1 || missing[0] != 1 {
		t.Fatalf("expected missing [1], got %v", missing)
	}
	if buf.complete() {
		t.Fatalf("buffer must not be complete")
	}
}

func TestBufferDuplicateInsertIsIdempotent(t *testing.T) {
	buf := newReceiveBuffer(3)
	p := chunk.Packet{Total: 3, Index: 1, Data: []byte("abc")}
	buf.insert(p)
	before := buf.missing()
	buf.insert(p)
	after := buf.missing()
	if !bytes.Equal(before, after) {
		t.Fatalf("missing set changed on duplicate: %v -> %v", before, after)
	}
	if buf.complete() {
		t.Fatalf("duplicate must not complete the buffer")
	}
}

func TestBufferAssemblyIsArrivalOrderIndependent(t *testing.T) {
	msg := make([]byte, 137)
	for i := range msg {
		msg[i] = byte(i)
	}
	packets, err := chunk.Split(msg)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		order := rng.Perm(len(packets))
		buf := newReceiveBuffer(len(packets))
		for _, i := range order {
			buf.insert(packets[i])
		}
		if !buf.complete() {
			t.Fatalf("trial %d: buffer incomplete", trial)
		}
		if !bytes.Equal(buf.assemble(), msg) {
			t.Fatalf("trial %d: assembly depends on arrival order %v", trial, order)
		}
	}
}

func TestBufferCompleteSingleChunk(t *testing.T) {
	buf := newReceiveBuffer(1)
	buf.insert(chunk.Packet{Total: 1, Index: 0, Data: []byte("t|hi")})
	if !buf.complete() {
		t.Fatalf("single chunk must complete")
	}
	if got := buf.assemble(); !bytes.Equal(got, []byte("t|hi")) {
		t.Fatalf("assemble mismatch: %q", got)
	}
	if len(buf.missing()) != 0 {
		t.Fatalf("complete buffer reports missing %v", buf.missing())
	}
}
