package transport

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

type recordingReceiver struct {
	frames   chan []byte
	failures chan struct{}
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{
		frames:   make(chan []byte, 64),
		failures: make(chan struct{}, 64),
	}
}

func (r *recordingReceiver) OnPacket(frame []byte) { r.frames <- frame }
func (r *recordingReceiver) OnDecodeFailure()      { r.failures <- struct{}{} }

func TestPairDeliversInOrder(t *testing.T) {
	a, b := Pair()
	defer a.Close()
	defer b.Close()

	recv := newRecordingReceiver()
	if err := b.Attach(recv); err != nil {
		t.Fatalf("attach: %v", err)
	}

	ctx := context.Background()
	for _, frame := range [][]byte{{1}, {2}, {3}} {
		if err := a.Send(ctx, frame); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for want := byte(1); want <= 3; want++ {
		select {
		case frame := <-recv.frames:
			if !bytes.Equal(frame, []byte{want}) {
				t.Fatalf("out of order: got %v want [%d]", frame, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("frame %d not delivered", want)
		}
	}
}

func TestPairFrameBound(t *testing.T) {
	a, b := Pair()
	defer a.Close()
	defer b.Close()

	err := a.Send(context.Background(), make([]byte, MaxFrameLen+1))
	if !errors.Is(err, ErrFrameTooLong) {
		t.Fatalf("expected ErrFrameTooLong, got %v", err)
	}
}

func TestPairReceiverSlotIsExclusive(t *testing.T) {
	a, b := Pair()
	defer a.Close()
	defer b.Close()

	if err := b.Attach(newRecordingReceiver()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := b.Attach(newRecordingReceiver()); !errors.Is(err, ErrReceiverAttached) {
		t.Fatalf("expected ErrReceiverAttached, got %v", err)
	}
	b.Detach()
	if err := b.Attach(newRecordingReceiver()); err != nil {
		t.Fatalf("attach after detach: %v", err)
	}
}

func TestPairDropHook(t *testing.T) {
	a, b := Pair()
	defer a.Close()
	defer b.Close()

	recv := newRecordingReceiver()
	if err := b.Attach(recv); err != nil {
		t.Fatalf("attach: %v", err)
	}
	a.SetDrop(func(seq int, frame []byte) bool { return seq == 2 })

	ctx := context.Background()
	for _, frame := range [][]byte{{1}, {2}, {3}} {
		if err := a.Send(ctx, frame); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	var got []byte
	for i := 0; i < 2; i++ {
		select {
		case frame := <-recv.frames:
			got = append(got, frame...)
		case <-time.After(time.Second):
			t.Fatalf("delivery stalled")
		}
	}
	if !bytes.Equal(got, []byte{1, 3}) {
		t.Fatalf("expected frame 2 dropped, got %v", got)
	}
}

func TestPairDecodeFailureHook(t *testing.T) {
	a, b := Pair()
	defer a.Close()
	defer b.Close()

	recv := newRecordingReceiver()
	if err := b.Attach(recv); err != nil {
		t.Fatalf("attach: %v", err)
	}
	a.SetDecodeFailure(func(seq int, frame []byte) bool { return true })

	if err := a.Send(context.Background(), []byte{9}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case <-recv.failures:
	case <-time.After(time.Second):
		t.Fatalf("decode failure not delivered")
	}
}

func TestPairSendAfterClose(t *testing.T) {
	a, b := Pair()
	b.Close()
	a.Close()
	if err := a.Send(context.Background(), []byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
