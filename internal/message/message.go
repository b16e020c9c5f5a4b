// Package message implements the logical message envelope: a one-byte kind
// tag, a one-byte separator, and the payload verbatim. File payloads nest a
// second envelope joining the file name and its content.
package message

import (
	"bytes"
	"errors"
	"fmt"
)

// Separator sits between the kind tag and the payload. The payload is never
// escaped; decoding only ever looks at byte 1.
const Separator = '|'

// NameSeparator joins a file name and its content inside a File payload.
// It must not occur in the name. Content is not checked: content may
// legitimately contain the sequence, decoding splits on the first
// occurrence only.
var NameSeparator = []byte("<NAME>")

var (
	ErrUnknownKind   = errors.New("message: unknown message kind")
	ErrShortMessage  = errors.New("message: too short for envelope")
	ErrBadSeparator  = errors.New("message: missing separator")
	ErrEmptyFileName = errors.New("message: empty file name")
	ErrNameSeparator = errors.New("message: file name contains the name separator")
)

// Kind tags a message as text, clipboard contents, or a file.
type Kind byte

const (
	KindText      Kind = 't'
	KindClipboard Kind = 'c'
	KindFile      Kind = 'f'
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindClipboard, KindFile:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindClipboard:
		return "clipboard"
	case KindFile:
		return "file"
	}
	return fmt.Sprintf("kind(0x%02x)", byte(k))
}

// Message is one decoded envelope.
type Message struct {
	Kind    Kind
	Payload []byte
}

// Encode builds the framed byte sequence for one message.
func Encode(kind Kind, payload []byte) ([]byte, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, byte(kind))
	}
	out := make([]byte, 0, 2+len(payload))
	out = append(out, byte(kind), Separator)
	return append(out, payload...), nil
}

// Decode parses a framed byte sequence back into a Message.
func Decode(b []byte) (Message, error) {
	if len(b) < 2 {
		return Message{}, ErrShortMessage
	}
	kind := Kind(b[0])
	if !kind.valid() {
		return Message{}, fmt.Errorf("%w: 0x%02x", ErrUnknownKind, b[0])
	}
	if b[1] != Separator {
		return Message{}, ErrBadSeparator
	}
	payload := make([]byte, len(b)-2)
	copy(payload, b[2:])
	return Message{Kind: kind, Payload: payload}, nil
}

// EncodeFile builds a File payload from a name and raw content.
func EncodeFile(name string, content []byte) ([]byte, error) {
	if name == "" {
		return nil, ErrEmptyFileName
	}
	if bytes.Contains([]byte(name), NameSeparator) {
		return nil, fmt.Errorf("%w: %q", ErrNameSeparator, name)
	}
	out := make([]byte, 0, len(name)+len(NameSeparator)+len(content))
	out = append(out, name...)
	out = append(out, NameSeparator...)
	return append(out, content...), nil
}

// DecodeFile splits a File payload on the first name separator.
func DecodeFile(payload []byte) (string, []byte, error) {
	idx := bytes.Index(payload, NameSeparator)
	if idx < 0 {
		return "", nil, ErrBadSeparator
	}
	if idx == 0 {
		return "", nil, ErrEmptyFileName
	}
	name := string(payload[:idx])
	content := make([]byte, len(payload)-idx-len(NameSeparator))
	copy(content, payload[idx+len(NameSeparator):])
	return name, content, nil
}
