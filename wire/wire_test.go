package wire_test

import (
	"bytes"
	"testing"

	"github.com/dlazar-im/toxcore/wire"
)

func TestSendRequestRoundTrip(t *testing.T) {
	req := wire.SendRequest{
		Slot:     3,
		FileType: 1,
		Size:     1 << 30,
		Filename: "movie.mp4",
	}
	for i := range req.FileID {
		req.FileID[i] = byte(i)
	}

	enc, err := wire.EncodeSendRequest(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec, err := wire.DecodeSendRequest(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec != req {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", dec, req)
	}
}

func TestSendRequestTooLong(t *testing.T) {
	req := wire.SendRequest{Filename: string(make([]byte, wire.MaxFileNameLength+1))}
	if _, err := wire.EncodeSendRequest(req); err != wire.ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestFileControlSeekRoundTrip(t *testing.T) {
	c := wire.FileControl{Slot: 1, Control: wire.FileControlSeek, Position: 123456}
	enc := wire.EncodeFileControl(c)
	dec, err := wire.DecodeFileControl(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec != c {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", dec, c)
	}
}

func TestFileControlNonSeekHasNoPosition(t *testing.T) {
	c := wire.FileControl{Slot: 2, Control: wire.FileControlPause}
	enc := wire.EncodeFileControl(c)
	if len(enc) != 2 {
		t.Fatalf("expected 2-byte encoding for non-seek control, got %d bytes", len(enc))
	}
}

func TestFileDataZeroLength(t *testing.T) {
	enc := wire.EncodeFileData(wire.FileData{Slot: 5})
	dec, err := wire.DecodeFileData(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Slot != 5 || len(dec.Data) != 0 {
		t.Fatalf("expected zero-length data chunk, got %+v", dec)
	}
}

func TestFileDataRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 100)
	enc := wire.EncodeFileData(wire.FileData{Slot: 7, Data: payload})
	dec, err := wire.DecodeFileData(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Slot != 7 || !bytes.Equal(dec.Data, payload) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestDispatcherRoutesByID(t *testing.T) {
	d := wire.NewDispatcher()
	var got []byte
	d.On(wire.IDMessage, func(payload []byte) error {
		got = payload
		return nil
	})

	if err := d.Dispatch(append([]byte{byte(wire.IDMessage)}, []byte("hi")...)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("expected payload 'hi', got %q", got)
	}
}

func TestDispatcherUnknownID(t *testing.T) {
	d := wire.NewDispatcher()
	if err := d.Dispatch([]byte{0x01}); err != wire.ErrBadID {
		t.Fatalf("expected ErrBadID, got %v", err)
	}
}

func TestDispatcherEmptyPacket(t *testing.T) {
	d := wire.NewDispatcher()
	if err := d.Dispatch(nil); err != wire.ErrTooShort {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestDispatcherRTPSlot(t *testing.T) {
	d := wire.NewDispatcher()
	var fired bool
	if err := d.OnRTP(2, func(payload []byte) error {
		fired = true
		return nil
	}); err != nil {
		t.Fatalf("OnRTP: %v", err)
	}

	id := byte(wire.PacketLossyAVReserved + 2)
	if err := d.Dispatch([]byte{id, 0xFF}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !fired {
		t.Fatalf("expected RTP handler to fire")
	}
}

func TestDecodeTextReturnsPayloadWithoutNUL(t *testing.T) {
	s, err := wire.DecodeText([]byte("hello"), 128)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s != "hello" {
		t.Fatalf("expected 'hello', got %q", s)
	}
}

func TestDecodeTextTooLong(t *testing.T) {
	_, err := wire.DecodeText(make([]byte, 10), 5)
	if err != wire.ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}
