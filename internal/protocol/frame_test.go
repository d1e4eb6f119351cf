package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want FrameType
	}{
		{"ping", `{"type":"ping"}`, TypePing},
		{"pong", `{"type":"pong"}`, TypePong},
		{"typing", `{"type":"typing","senderId":"u1","senderUsername":"mc"}`, TypeTyping},
		{"new message", `{"type":"newMessage","message":{"id":7}}`, TypeNewMessage},
		{"batch", `{"type":"batchMessages","messages":[]}`, TypeBatch},
		{"connected", `{"type":"connected","userId":"u1"}`, TypeConnected},
		{"unknown", `{"type":"friendRequest","from":"u2"}`, FrameType("friendRequest")},
		{"leading whitespace", "  \n{\"type\":\"pong\"}", TypePong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if f.FrameType() != tt.want {
				t.Errorf("FrameType() = %q, want %q", f.FrameType(), tt.want)
			}
		})
	}
}

func TestDecode_Fields(t *testing.T) {
	f, err := Decode([]byte(`{"type":"typing","senderId":"u1","senderUsername":"mc"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	typing, ok := f.(TypingFrame)
	if !ok {
		t.Fatalf("got %T, want TypingFrame", f)
	}
	if typing.SenderID != "u1" || typing.SenderUsername != "mc" {
		t.Errorf("typing = %+v", typing)
	}

	f, err = Decode([]byte(`{"type":"newMessage","message":{"id":7}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	msg := f.(NewMessageFrame)
	if string(msg.Message) != `{"id":7}` {
		t.Errorf("Message = %s, want {\"id\":7}", msg.Message)
	}
}

func TestDecode_UnknownKeepsRaw(t *testing.T) {
	data := `{"type":"friendRequest","from":"u2"}`
	f, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	u, ok := f.(UnknownFrame)
	if !ok {
		t.Fatalf("got %T, want UnknownFrame", f)
	}
	if string(u.Raw) != data {
		t.Errorf("Raw = %s, want %s", u.Raw, data)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "hello"},
		{"array", `[1,2]`},
		{"truncated", `{"type":"pi`},
		{"missing type", `{"foo":1}`},
		{"null type", `{"type":null}`},
		{"bad batch body", `{"type":"batchMessages","messages":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedFrame", tt.data, err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"ping", PingFrame{}, `{"type":"ping"}`},
		{"pong", PongFrame{}, `{"type":"pong"}`},
		{"typing out", TypingFrame{ReceiverID: "u9"}, `{"type":"typing","receiverId":"u9"}`},
		{"connected", ConnectedFrame{UserID: "u1"}, `{"type":"connected","userId":"u1"}`},
		{"new message", NewMessageFrame{Message: json.RawMessage(`{"id":1}`)}, `{"type":"newMessage","message":{"id":1}}`},
		{"unknown verbatim", UnknownFrame{Type: "x", Raw: json.RawMessage(`{"type":"x","a":1}`)}, `{"type":"x","a":1}`},
		{"unknown no raw", UnknownFrame{Type: "x"}, `{"type":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.frame)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Error("expected error encoding nil frame")
	}
}

func TestUnpack_Order(t *testing.T) {
	f, err := Decode([]byte(`{"type":"batchMessages","messages":[
		{"type":"newMessage","message":{"id":1}},
		{"type":"typing","senderId":"u2"},
		{"type":"newMessage","message":{"id":3}}
	]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	frames, errs := Unpack(f)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []FrameType{TypeNewMessage, TypeTyping, TypeNewMessage}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i, typ := range want {
		if frames[i].FrameType() != typ {
			t.Errorf("frame %d = %q, want %q", i, frames[i].FrameType(), typ)
		}
	}
	if string(frames[2].(NewMessageFrame).Message) != `{"id":3}` {
		t.Errorf("last frame = %+v", frames[2])
	}
}

func TestUnpack_SkipsMalformedEntries(t *testing.T) {
	batch := BatchFrame{Messages: []json.RawMessage{
		json.RawMessage(`{"type":"newMessage"}`),
		json.RawMessage(`"garbage"`),
		json.RawMessage(`{"type":"batchMessages","messages":[{"type":"typing"}]}`),
	}}

	frames, errs := Unpack(batch)
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1", len(errs))
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].FrameType() != TypeNewMessage || frames[1].FrameType() != TypeTyping {
		t.Errorf("frames = %v", frames)
	}
}

func TestUnpack_NonBatch(t *testing.T) {
	frames, errs := Unpack(PongFrame{})
	if len(errs) != 0 || len(frames) != 1 || frames[0].FrameType() != TypePong {
		t.Errorf("Unpack(pong) = %v, %v", frames, errs)
	}
}
