// Package grillo wires the framing, reliability, and routing layers into
// the send/listen operations the CLI exposes.
package grillo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/fisadev/grillo/internal/config"
	"github.com/fisadev/grillo/internal/logging"
	"github.com/fisadev/grillo/internal/message"
	"github.com/fisadev/grillo/internal/reliability"
	"github.com/fisadev/grillo/internal/router"
	"github.com/fisadev/grillo/internal/transport"
)

// Service runs one send or one listen session over a single transport.
// One message is in flight at a time; the transport is not re-entered
// until the current operation reaches a terminal state.
type Service struct {
	cfg      config.App
	t        transport.Transport
	routes   *router.Router
	sender   *reliability.Sender
	receiver *reliability.Receiver
	out      io.Writer
	readClip func() (string, error)
	log      zerolog.Logger
}

func NewService(cfg config.App, t transport.Transport, out io.Writer) *Service {
	return &Service{
		cfg:      cfg,
		t:        t,
		routes:   router.New(out, cfg.OutputDir),
		sender:   reliability.NewSender(cfg.Reliability),
		receiver: reliability.NewReceiver(cfg.Reliability),
		out:      out,
		readClip: clipboard.ReadAll,
		log:      logging.Component("grillo"),
	}
}

// SendText transmits a text message.
func (s *Service) SendText(ctx context.Context, text string) (reliability.Result, error) {
	return s.send(ctx, message.KindText, []byte(text))
}

// SendClipboard transmits the local clipboard contents.
func (s *Service) SendClipboard(ctx context.Context) (reliability.Result, error) {
	contents, err := s.readClip()
	if err != nil {
		return reliability.ResultUnconfirmed, fmt.Errorf("grillo: read clipboard: %w", err)
	}
	return s.send(ctx, message.KindClipboard, []byte(contents))
}

// SendFile transmits a file's name and contents.
func (s *Service) SendFile(ctx context.Context, path string) (reliability.Result, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return reliability.ResultUnconfirmed, fmt.Errorf("grillo: read file: %w", err)
	}
	payload, err := message.EncodeFile(filepath.Base(path), contents)
	if err != nil {
		return reliability.ResultUnconfirmed, err
	}
	return s.send(ctx, message.KindFile, payload)
}

func (s *Service) send(ctx context.Context, kind message.Kind, payload []byte) (reliability.Result, error) {
	framed, err := message.Encode(kind, payload)
	if err != nil {
		return reliability.ResultUnconfirmed, err
	}
	result, err := s.sender.Send(ctx, s.t, framed)
	if err != nil {
		return result, err
	}
	s.log.Info().
		Stringer("kind", kind).
		Stringer("result", result).
		Msg("message sent")
	return result, nil
}

// Listen receives and dispatches messages. With forever it keeps going
// across messages and receive timeouts; otherwise it returns after the
// first terminal outcome.
func (s *Service) Listen(ctx context.Context, forever bool) error {
	for {
		raw, err := s.receiver.Receive(ctx, s.t)
		switch {
		case errors.Is(err, reliability.ErrReceiveTimeout):
			if forever {
				continue
			}
			return err
		case errors.Is(err, transport.ErrReceiverAttached):
			// Someone else briefly holds the slot; back off and retry.
			if !forever {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
			continue
		case err != nil:
			return err
		}

		msg, err := message.Decode(raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("discarding undecodable message")
			if forever {
				continue
			}
			return err
		}
		if err := s.routes.Handle(msg); err != nil {
			s.log.Error().Err(err).Msg("message handler failed")
			if !forever {
				return err
			}
			continue
		}
		if !forever {
			return nil
		}
	}
}
