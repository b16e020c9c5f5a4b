package grillo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fisadev/grillo/internal/config"
	"github.com/fisadev/grillo/internal/reliability"
	"github.com/fisadev/grillo/internal/testutil/testlog"
	"github.com/fisadev/grillo/internal/transport"
)

func testApp(t *testing.T) config.App {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.Reliability = reliability.Config{
		PacketSendTime: 20 * time.Millisecond,
		AckWaitFactor:  2.0,
		EvalInterval:   5 * time.Millisecond,
		AttemptTimeout: 30 * time.Millisecond,
		ReceiveTimeout: 2 * time.Second,
		Confirmed:      true,
	}
	return cfg
}

type nopReceiver struct{}

func (nopReceiver) OnPacket([]byte)  {}
func (nopReceiver) OnDecodeFailure() {}

func waitAttached(t *testing.T, e *transport.Endpoint) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := e.Attach(nopReceiver{}); err != nil {
			return
		}
		e.Detach()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("listener never attached")
}

type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *frameRecorder) hook() func(seq int, frame []byte) bool {
	return func(seq int, frame []byte) bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.frames = append(r.frames, append([]byte(nil), frame...))
		return false
	}
}

func (r *frameRecorder) all() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func TestSendTextEndToEnd(t *testing.T) {
	testlog.Start(t)
	a, b := transport.Pair()
	defer a.Close()
	defer b.Close()

	rec := &frameRecorder{}
	a.SetDrop(rec.hook())

	cfg := testApp(t)
	senderOut := &bytes.Buffer{}
	receiverOut := &bytes.Buffer{}
	senderSvc := NewService(cfg, a, senderOut)
	receiverSvc := NewService(cfg, b, receiverOut)

	done := make(chan error, 1)
	go func() { done <- receiverSvc.Listen(context.Background(), false) }()
	waitAttached(t, b)

	result, err := senderSvc.SendText(context.Background(), "hi")
	if err != nil {
		t.Fatalf("send text: %v", err)
	}
	if result != reliability.ResultConfirmed {
		t.Fatalf("expected confirmed, got %s", result)
	}
	if err := <-done; err != nil {
		t.Fatalf("listen: %v", err)
	}

	if !strings.Contains(receiverOut.String(), "hi") {
		t.Fatalf("text not delivered: %q", receiverOut.String())
	}

	frames := rec.all()
	if len(frames) != 1 {
		t.Fatalf("expected exactly one packet, got %d", len(frames))
	}
	want := append([]byte{1, 0}, []byte("t|hi")...)
	if !bytes.Equal(frames[0], want) {
		t.Fatalf("wire mismatch: got %v want %v", frames[0], want)
	}
}

func TestSendFileEndToEnd(t *testing.T) {
	testlog.Start(t)
	a, b := transport.Pair()
	defer a.Close()
	defer b.Close()

	rec := &frameRecorder{}
	a.SetDrop(rec.hook())

	cfg := testApp(t)
	senderSvc := NewService(cfg, a, &bytes.Buffer{})
	receiverSvc := NewService(cfg, b, &bytes.Buffer{})

	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(255 - i)
	}
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "a.txt")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- receiverSvc.Listen(context.Background(), false) }()
	waitAttached(t, b)

	if _, err := senderSvc.SendFile(context.Background(), srcPath); err != nil {
		t.Fatalf("send file: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("listen: %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(cfg.OutputDir, "a.txt"))
	if err != nil {
		t.Fatalf("read delivered file: %v", err)
	}
	if !bytes.Equal(saved, content) {
		t.Fatalf("delivered content mismatch")
	}

	// framed: 2 (envelope) + 5 (name) + 6 (<NAME>) + 100 = 113 bytes -> 4 chunks
	frames := rec.all()
	if len(frames) != 4 {
		t.Fatalf("expected 4 packets, got %d", len(frames))
	}
	for i, frame := range frames {
		if frame[0] != 4 || int(frame[1]) != i {
			t.Fatalf("packet %d has header [%d,%d]", i, frame[0], frame[1])
		}
	}
}

type fakeClipboard struct {
	text string
}

func (c *fakeClipboard) Write(text string) error {
	c.text = text
	return nil
}

func TestSendClipboardEndToEnd(t *testing.T) {
	testlog.Start(t)
	a, b := transport.Pair()
	defer a.Close()
	defer b.Close()

	cfg := testApp(t)
	senderSvc := NewService(cfg, a, &bytes.Buffer{})
	senderSvc.readClip = func() (string, error) { return "copied contents", nil }

	receiverSvc := NewService(cfg, b, &bytes.Buffer{})
	clip := &fakeClipboard{}
	receiverSvc.routes.SetClipboard(clip)

	done := make(chan error, 1)
	go func() { done <- receiverSvc.Listen(context.Background(), false) }()
	waitAttached(t, b)

	if _, err := senderSvc.SendClipboard(context.Background()); err != nil {
		t.Fatalf("send clipboard: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("listen: %v", err)
	}
	if clip.text != "copied contents" {
		t.Fatalf("clipboard got %q", clip.text)
	}
}

// syncBuffer lets the test read listener output while it is being written.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestListenForeverHandlesConsecutiveMessages(t *testing.T) {
	testlog.Start(t)
	a, b := transport.Pair()
	defer a.Close()
	defer b.Close()

	cfg := testApp(t)
	senderSvc := NewService(cfg, a, &bytes.Buffer{})
	receiverOut := &syncBuffer{}
	receiverSvc := NewService(cfg, b, receiverOut)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- receiverSvc.Listen(ctx, true) }()
	waitAttached(t, b)

	for _, text := range []string{"first", "second"} {
		waitAttached(t, b)
		result, err := senderSvc.SendText(context.Background(), text)
		if err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
		if result != reliability.ResultConfirmed {
			t.Fatalf("send %q unconfirmed", text)
		}
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && !strings.Contains(receiverOut.String(), text) {
			time.Sleep(10 * time.Millisecond)
		}
	}
	cancel()
	<-done

	got := receiverOut.String()
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Fatalf("forever listen missed a message: %q", got)
	}
}
