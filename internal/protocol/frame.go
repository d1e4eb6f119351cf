package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned when bytes cannot be decoded into a frame.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameType is the value of a frame's "type" field.
type FrameType string

const (
	TypePing       FrameType = "ping"
	TypePong       FrameType = "pong"
	TypeTyping     FrameType = "typing"
	TypeNewMessage FrameType = "newMessage"
	TypeBatch      FrameType = "batchMessages"
	TypeConnected  FrameType = "connected"
)

// Frame is one discrete message on the realtime channel.
type Frame interface {
	FrameType() FrameType
}

// PingFrame is the client liveness probe.
type PingFrame struct{}

// PongFrame is the server reply to PingFrame.
type PongFrame struct{}

// TypingFrame is sent with ReceiverID set and delivered with the sender fields set.
type TypingFrame struct {
	ReceiverID     string `json:"receiverId,omitempty"`
	SenderID       string `json:"senderId,omitempty"`
	SenderUsername string `json:"senderUsername,omitempty"`
}

// NewMessageFrame announces a chat message. The message body is owned by the
// CRUD layer and passed through untouched.
type NewMessageFrame struct {
	Message json.RawMessage `json:"message,omitempty"`
}

// BatchFrame carries frames that were queued server side.
type BatchFrame struct {
	Messages []json.RawMessage `json:"messages"`
}

// ConnectedFrame is the greeting sent once a socket is authenticated.
type ConnectedFrame struct {
	UserID string `json:"userId"`
}

// UnknownFrame holds any frame whose type is not listed above.
type UnknownFrame struct {
	Type FrameType
	Raw  json.RawMessage
}

func (PingFrame) FrameType() FrameType       { return TypePing }
func (PongFrame) FrameType() FrameType       { return TypePong }
func (TypingFrame) FrameType() FrameType     { return TypeTyping }
func (NewMessageFrame) FrameType() FrameType { return TypeNewMessage }
func (BatchFrame) FrameType() FrameType      { return TypeBatch }
func (ConnectedFrame) FrameType() FrameType  { return TypeConnected }
func (f UnknownFrame) FrameType() FrameType  { return f.Type }

// header is used to sniff the discriminator before decoding the body.
type header struct {
	Type *FrameType `json:"type"`
}

// Decode parses a single frame.
func Decode(data []byte) (Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not a json object", ErrMalformedFrame)
	}

	var h header
	if err := json.Unmarshal(trimmed, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if h.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	var (
		frame Frame
		err   error
	)
	switch *h.Type {
	case TypePing:
		frame = PingFrame{}
	case TypePong:
		frame = PongFrame{}
	case TypeTyping:
		var f TypingFrame
		err = json.Unmarshal(trimmed, &f)
		frame = f
	case TypeNewMessage:
		var f NewMessageFrame
		err = json.Unmarshal(trimmed, &f)
		frame = f
	case TypeBatch:
		var f BatchFrame
		err = json.Unmarshal(trimmed, &f)
		frame = f
	case TypeConnected:
		var f ConnectedFrame
		err = json.Unmarshal(trimmed, &f)
		frame = f
	default:
		raw := make(json.RawMessage, len(trimmed))
		copy(raw, trimmed)
		frame = UnknownFrame{Type: *h.Type, Raw: raw}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformedFrame, *h.Type, err)
	}
	return frame, nil
}

// Encode serializes a frame with its type discriminator first.
func Encode(f Frame) ([]byte, error) {
	if f == nil {
		return nil, errors.New("encode nil frame")
	}
	if u, ok := f.(UnknownFrame); ok {
		if len(u.Raw) == 0 {
			return json.Marshal(map[string]FrameType{"type": u.Type})
		}
		return u.Raw, nil
	}

	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", f.FrameType(), err)
	}
	typ, err := json.Marshal(f.FrameType())
	if err != nil {
		return nil, fmt.Errorf("marshal type: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(typ) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	// body is always an object here; splice its fields after the type.
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Unpack expands a batch envelope into its frames in order. Nested batches
// are flattened. Entries that fail to decode are skipped and reported in errs.
// Any other frame is returned as a single-element slice.
func Unpack(f Frame) (frames []Frame, errs []error) {
	batch, ok := f.(BatchFrame)
	if !ok {
		return []Frame{f}, nil
	}

	frames = make([]Frame, 0, len(batch.Messages))
	for i, raw := range batch.Messages {
		inner, err := Decode(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("batch entry %d: %w", i, err))
			continue
		}
		nested, nestedErrs := Unpack(inner)
		frames = append(frames, nested...)
		errs = append(errs, nestedErrs...)
	}
	return frames, errs
}
