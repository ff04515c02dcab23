// Package wire implements the in-band packet framing carried over a
// friend's crypto connection: one packet-ID byte followed by a
// type-specific payload. Decoding enforces length bounds before handing
// payloads back to the caller; the caller (the root package's Core)
// owns actually dispatching to per-friend state.
package wire

import (
	"encoding/binary"

	"github.com/dlazar-im/toxcore/errors"
)

// ID is a one-byte in-band packet identifier.
type ID byte

const (
	IDOnline  ID = 0x18
	IDOffline ID = 0x19

	IDNickname      ID = 0x30
	IDStatusMessage ID = 0x31
	IDUserStatus    ID = 0x32
	IDTyping        ID = 0x33

	IDMessage ID = 0x40
	IDAction  ID = 0x41

	IDInviteGroupchat ID = 0x60

	IDFileSendRequest ID = 0x50
	IDFileControl     ID = 0x51
	IDFileData        ID = 0x52

	IDMSI ID = 0x45

	// RLRStart/RLRSize bound the range of application-defined lossy
	// (unreliable) packet IDs; LLRStart/LLRSize bound lossless IDs.
	RLRStart = 200
	RLRSize  = 55
	LLRStart = 160
	LLRSize  = 32

	// PacketLossyAVReserved marks the sub-range of the lossy range
	// dispatched to per-byte-code RTP handler slots rather than the
	// generic custom-lossy-packet callback.
	PacketLossyAVReserved = 200
	PacketLossyAVSize     = 8
)

// MessageType distinguishes a plain chat message from a /me-style action;
// it is folded into the packet ID on the wire (IDMessage + type).
type MessageType byte

const (
	MessageNormal MessageType = 0
	MessageAction MessageType = 1
)

// FileControlKind is the control verb carried in an IDFileControl packet.
type FileControlKind byte

const (
	FileControlAccept FileControlKind = 0
	FileControlPause  FileControlKind = 1
	FileControlKill   FileControlKind = 2
	FileControlSeek   FileControlKind = 3
)

var (
	ErrTooShort = errors.New("wire: packet too short")
	ErrTooLong  = errors.New("wire: packet too long")
	ErrBadID    = errors.New("wire: unknown packet id")
)

// MaxFileNameLength and FileIDLength bound the FILE_SENDREQUEST payload.
const (
	FileIDLength       = 32
	MaxFileNameLength  = 255
)

// SendRequest is the decoded payload of an IDFileSendRequest packet.
type SendRequest struct {
	Slot     byte
	FileType uint32
	Size     uint64
	FileID   [FileIDLength]byte
	Filename string
}

// EncodeSendRequest serializes a file-send-request payload (without the
// leading packet-ID byte, which the caller prefixes).
func EncodeSendRequest(r SendRequest) ([]byte, error) {
	if len(r.Filename) > MaxFileNameLength {
		return nil, ErrTooLong
	}
	buf := make([]byte, 1+4+8+FileIDLength+len(r.Filename))
	buf[0] = r.Slot
	binary.BigEndian.PutUint32(buf[1:5], r.FileType)
	binary.BigEndian.PutUint64(buf[5:13], r.Size)
	copy(buf[13:13+FileIDLength], r.FileID[:])
	copy(buf[13+FileIDLength:], r.Filename)
	return buf, nil
}

// DecodeSendRequest parses a file-send-request payload.
func DecodeSendRequest(payload []byte) (SendRequest, error) {
	const minLen = 1 + 4 + 8 + FileIDLength
	if len(payload) < minLen {
		return SendRequest{}, ErrTooShort
	}
	if len(payload)-minLen > MaxFileNameLength {
		return SendRequest{}, ErrTooLong
	}
	var r SendRequest
	r.Slot = payload[0]
	r.FileType = binary.BigEndian.Uint32(payload[1:5])
	r.Size = binary.BigEndian.Uint64(payload[5:13])
	copy(r.FileID[:], payload[13:13+FileIDLength])
	r.Filename = string(payload[minLen:])
	return r, nil
}

// FileControl is the decoded payload of an IDFileControl packet.
type FileControl struct {
	Slot     byte
	Control  FileControlKind
	Position uint64 // only meaningful when Control == FileControlSeek
}

// EncodeFileControl serializes a file-control payload.
func EncodeFileControl(c FileControl) []byte {
	if c.Control == FileControlSeek {
		buf := make([]byte, 1+1+8)
		buf[0] = c.Slot
		buf[1] = byte(c.Control)
		binary.BigEndian.PutUint64(buf[2:], c.Position)
		return buf
	}
	return []byte{c.Slot, byte(c.Control)}
}

// DecodeFileControl parses a file-control payload.
func DecodeFileControl(payload []byte) (FileControl, error) {
	if len(payload) < 2 {
		return FileControl{}, ErrTooShort
	}
	c := FileControl{Slot: payload[0], Control: FileControlKind(payload[1])}
	if c.Control == FileControlSeek {
		if len(payload) != 10 {
			return FileControl{}, ErrTooShort
		}
		c.Position = binary.BigEndian.Uint64(payload[2:10])
	}
	return c, nil
}

// FileData is the decoded payload of an IDFileData packet.
type FileData struct {
	Slot byte
	Data []byte
}

// EncodeFileData serializes a file-data payload.
func EncodeFileData(d FileData) []byte {
	buf := make([]byte, 1+len(d.Data))
	buf[0] = d.Slot
	copy(buf[1:], d.Data)
	return buf
}

// DecodeFileData parses a file-data payload. A single-byte payload (slot,
// no data) is the valid "zero-length" end-of-stream/empty-file chunk.
func DecodeFileData(payload []byte) (FileData, error) {
	if len(payload) < 1 {
		return FileData{}, ErrTooShort
	}
	return FileData{Slot: payload[0], Data: payload[1:]}, nil
}

// EncodeText serializes a length-prefix-free text payload (NICKNAME,
// STATUSMESSAGE, MESSAGE/ACTION). Text fields are not NUL-terminated on
// the wire, and DecodeText returns them without a NUL.
func EncodeText(s string) []byte {
	return []byte(s)
}

// DecodeText rejects payloads longer than maxLen and returns the text as
// a string. It copies payload into a scratch buffer with one extra
// trailing NUL byte; the returned string holds only the payload bytes,
// without the NUL.
func DecodeText(payload []byte, maxLen int) (string, error) {
	if len(payload) > maxLen {
		return "", ErrTooLong
	}
	scratch := make([]byte, len(payload)+1)
	copy(scratch, payload)
	return string(scratch[:len(payload)]), nil
}

// DecodeTyping parses the single-byte TYPING payload.
func DecodeTyping(payload []byte) (bool, error) {
	if len(payload) != 1 {
		return false, ErrTooShort
	}
	return payload[0] != 0, nil
}

// EncodeTyping serializes the TYPING payload.
func EncodeTyping(typing bool) []byte {
	if typing {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeUserStatus parses the single-byte USERSTATUS payload.
func DecodeUserStatus(payload []byte) (byte, error) {
	if len(payload) != 1 {
		return 0, ErrTooShort
	}
	return payload[0], nil
}
