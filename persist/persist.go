// Package persist implements the on-disk save format: a sequence of
// typed, length-prefixed sections (FRIENDS, legacy OLDFRIENDS, NAME,
// STATUSMESSAGE, STATUS, TCP_RELAY), plus an optional passphrase-sealed
// container wrapping the whole blob.
package persist

import (
	"encoding/binary"
	"io"

	"github.com/dlazar-im/toxcore/errors"
)

// Section is a save-file section type tag.
type Section uint16

const (
	SectionNull        Section = 0
	SectionOldFriends   Section = 1
	SectionFriends      Section = 2
	SectionName         Section = 3
	SectionStatusMessage Section = 4
	SectionStatus       Section = 5
	SectionTCPRelay     Section = 6
)

const (
	infoSize          = 1024
	nameSize          = 128
	statusMessageSize = 1007
	friendsVersion    = 1
)

var (
	ErrTruncated    = errors.New("persist: truncated section")
	ErrBadMagic     = errors.New("persist: bad save-file magic")
	ErrBadVersion   = errors.New("persist: unsupported FRIENDS section version")
	ErrCorruptFriend = errors.New("persist: corrupt saved friend (dev_count == 0)")
)

// saveMagic prefixes every section stream, mirroring the teacher's
// practice of versioning its own JSON persist format with a leading tag
// rather than relying on file extension alone.
var saveMagic = [4]byte{'T', 'S', 'A', 'V'}

// SavedDevice is one device record nested inside a SavedFriend.
type SavedDevice struct {
	Status    byte
	PublicKey [32]byte
}

// SavedFriend is one FRIENDS-section friend record (current, version 1,
// multi-device layout).
type SavedFriend struct {
	Status              byte
	Info                []byte // raw info bytes, length InfoSize, stored in a 1024-byte field
	InfoSize            uint16
	Name                string
	StatusMessage       string
	UserStatus          byte
	RequestNospam       uint32
	LastSeenTime        uint64
	Devices             []SavedDevice
}

// Snapshot is everything Save writes and Load restores.
type Snapshot struct {
	Friends     []SavedFriend
	Name        string
	StatusMessage string
	Status      byte
	TCPRelays   [][]byte // packed Node_format records, opaque to this package
}

func putFixed(dst []byte, src string, size int) (uint16, error) {
	if len(src) > size {
		return 0, errors.New("persist: field exceeds %d-byte fixed size", size)
	}
	copy(dst, src)
	return uint16(len(src)), nil
}

func writeSavedFriend(w io.Writer, f SavedFriend) error {
	if len(f.Devices) == 0 {
		return ErrCorruptFriend
	}
	buf := make([]byte, 1+infoSize+2+nameSize+2+statusMessageSize+2+1+4+8+1)
	off := 0
	buf[off] = f.Status
	off++

	infoLen, err := putFixed(buf[off:off+infoSize], string(f.Info), infoSize)
	if err != nil {
		return err
	}
	off += infoSize
	binary.BigEndian.PutUint16(buf[off:], infoLen)
	off += 2

	nameLen, err := putFixed(buf[off:off+nameSize], f.Name, nameSize)
	if err != nil {
		return err
	}
	off += nameSize
	binary.BigEndian.PutUint16(buf[off:], nameLen)
	off += 2

	smLen, err := putFixed(buf[off:off+statusMessageSize], f.StatusMessage, statusMessageSize)
	if err != nil {
		return err
	}
	off += statusMessageSize
	binary.BigEndian.PutUint16(buf[off:], smLen)
	off += 2

	buf[off] = f.UserStatus
	off++
	binary.BigEndian.PutUint32(buf[off:], f.RequestNospam)
	off += 4
	binary.BigEndian.PutUint64(buf[off:], f.LastSeenTime)
	off += 8
	buf[off] = byte(len(f.Devices))

	if _, err := w.Write(buf); err != nil {
		return err
	}
	for _, d := range f.Devices {
		if _, err := w.Write([]byte{d.Status}); err != nil {
			return err
		}
		if _, err := w.Write(d.PublicKey[:]); err != nil {
			return err
		}
	}
	return nil
}

func readSavedFriend(r io.Reader) (SavedFriend, error) {
	head := make([]byte, 1+infoSize+2+nameSize+2+statusMessageSize+2+1+4+8+1)
	if _, err := io.ReadFull(r, head); err != nil {
		return SavedFriend{}, err
	}
	off := 0
	var f SavedFriend
	f.Status = head[off]
	off++

	infoEnd := off + infoSize
	off = infoEnd
	infoLen := binary.BigEndian.Uint16(head[off:])
	off += 2
	if int(infoLen) > infoSize {
		return SavedFriend{}, ErrTruncated
	}
	f.Info = append([]byte(nil), head[1:1+int(infoLen)]...)
	f.InfoSize = infoLen

	nameStart := off
	off += nameSize
	nameLen := binary.BigEndian.Uint16(head[off:])
	off += 2
	if int(nameLen) > nameSize {
		return SavedFriend{}, ErrTruncated
	}
	f.Name = string(head[nameStart : nameStart+int(nameLen)])

	smStart := off
	off += statusMessageSize
	smLen := binary.BigEndian.Uint16(head[off:])
	off += 2
	if int(smLen) > statusMessageSize {
		return SavedFriend{}, ErrTruncated
	}
	f.StatusMessage = string(head[smStart : smStart+int(smLen)])

	f.UserStatus = head[off]
	off++
	f.RequestNospam = binary.BigEndian.Uint32(head[off:])
	off += 4
	f.LastSeenTime = binary.BigEndian.Uint64(head[off:])
	off += 8
	devCount := int(head[off])

	if devCount == 0 {
		return SavedFriend{}, ErrCorruptFriend
	}

	devBuf := make([]byte, 33)
	for i := 0; i < devCount; i++ {
		if _, err := io.ReadFull(r, devBuf); err != nil {
			return SavedFriend{}, err
		}
		var d SavedDevice
		d.Status = devBuf[0]
		copy(d.PublicKey[:], devBuf[1:])
		f.Devices = append(f.Devices, d)
	}
	return f, nil
}

func writeSection(w io.Writer, section Section, body []byte) error {
	head := make([]byte, 6)
	binary.BigEndian.PutUint16(head[0:2], uint16(section))
	binary.BigEndian.PutUint32(head[2:6], uint32(len(body)))
	if _, err := w.Write(head); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// Save serializes a Snapshot as the current (version 1) on-disk format:
// magic, then the FRIENDS, NAME, STATUSMESSAGE, STATUS and TCP_RELAY
// sections, each written even when its field is empty. Legacy OLDFRIENDS is
// never written by Save — it is a load-only compatibility path.
func Save(w io.Writer, snap Snapshot) error {
	if _, err := w.Write(saveMagic[:]); err != nil {
		return err
	}

	var friendsBody []byte
	{
		buf := new(byteBuffer)
		buf.WriteByte(friendsVersion)
		for _, f := range snap.Friends {
			if err := writeSavedFriend(buf, f); err != nil {
				return err
			}
		}
		friendsBody = buf.Bytes()
	}
	if err := writeSection(w, SectionFriends, friendsBody); err != nil {
		return err
	}
	if err := writeSection(w, SectionName, []byte(snap.Name)); err != nil {
		return err
	}
	if err := writeSection(w, SectionStatusMessage, []byte(snap.StatusMessage)); err != nil {
		return err
	}
	if err := writeSection(w, SectionStatus, []byte{snap.Status}); err != nil {
		return err
	}
	relayBody := new(byteBuffer)
	for _, n := range snap.TCPRelays {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(n)))
		relayBody.Write(lenBuf[:])
		relayBody.Write(n)
	}
	return writeSection(w, SectionTCPRelay, relayBody.Bytes())
}

// Load parses a save blob written by Save, or a legacy OLDFRIENDS-era
// blob (single-device friend records, no section framing beyond the
// magic and the OLDFRIENDS tag itself).
func Load(data []byte) (Snapshot, error) {
	if len(data) < 4 || [4]byte{data[0], data[1], data[2], data[3]} != saveMagic {
		return Snapshot{}, ErrBadMagic
	}
	data = data[4:]

	var snap Snapshot
	for len(data) > 0 {
		if len(data) < 6 {
			return Snapshot{}, ErrTruncated
		}
		section := Section(binary.BigEndian.Uint16(data[0:2]))
		length := binary.BigEndian.Uint32(data[2:6])
		data = data[6:]
		if uint32(len(data)) < length {
			return Snapshot{}, ErrTruncated
		}
		body := data[:length]
		data = data[length:]

		switch section {
		case SectionFriends:
			if err := loadFriendsSection(body, &snap); err != nil {
				return Snapshot{}, err
			}
		case SectionOldFriends:
			if err := loadOldFriendsSection(body, &snap); err != nil {
				return Snapshot{}, err
			}
		case SectionName:
			snap.Name = string(body)
		case SectionStatusMessage:
			snap.StatusMessage = string(body)
		case SectionStatus:
			if len(body) == 1 {
				snap.Status = body[0]
			}
		case SectionTCPRelay:
			for len(body) >= 4 {
				n := binary.BigEndian.Uint32(body[0:4])
				body = body[4:]
				if uint32(len(body)) < n {
					return Snapshot{}, ErrTruncated
				}
				snap.TCPRelays = append(snap.TCPRelays, append([]byte(nil), body[:n]...))
				body = body[n:]
			}
		}
	}
	return snap, nil
}

func loadFriendsSection(body []byte, snap *Snapshot) error {
	if len(body) < 1 {
		return ErrTruncated
	}
	if body[0] != friendsVersion {
		return ErrBadVersion
	}
	r := &byteBuffer{buf: body[1:]}
	for r.Len() > 0 {
		f, err := readSavedFriend(r)
		if err == io.EOF {
			break
		}
		if err == ErrCorruptFriend {
			continue // skip corrupt record, per spec
		}
		if err != nil {
			return err
		}
		snap.Friends = append(snap.Friends, f)
	}
	return nil
}

// legacyFriend is the single-device pre-multi-device on-disk layout.
type legacyFriend struct {
	Status        byte
	PublicKey     [32]byte
	Info          []byte
	InfoSize      uint16
	Name          string
	StatusMessage string
	UserStatus    byte
	Nospam        uint32
	LastSeenTime  uint64
}

const legacyRecordSize = 1 + 32 + infoSize + 2 + nameSize + 2 + statusMessageSize + 2 + 1 + 4 + 8

func loadOldFriendsSection(body []byte, snap *Snapshot) error {
	for len(body) >= legacyRecordSize {
		rec := body[:legacyRecordSize]
		body = body[legacyRecordSize:]

		off := 0
		var lf legacyFriend
		lf.Status = rec[off]
		off++
		copy(lf.PublicKey[:], rec[off:off+32])
		off += 32

		infoLen := binary.BigEndian.Uint16(rec[off+infoSize:])
		lf.Info = append([]byte(nil), rec[off:off+int(infoLen)]...)
		lf.InfoSize = infoLen
		off += infoSize + 2

		nameLen := binary.BigEndian.Uint16(rec[off+nameSize:])
		lf.Name = string(rec[off : off+int(nameLen)])
		off += nameSize + 2

		smLen := binary.BigEndian.Uint16(rec[off+statusMessageSize:])
		lf.StatusMessage = string(rec[off : off+int(smLen)])
		off += statusMessageSize + 2

		lf.UserStatus = rec[off]
		off++
		lf.Nospam = binary.BigEndian.Uint32(rec[off:])
		off += 4
		lf.LastSeenTime = binary.BigEndian.Uint64(rec[off:])

		// Synthesized per spec.md: Confirmed-or-later friends are
		// reconstructed as already-accepted (no outstanding request);
		// earlier statuses are reconstructed as a fresh outgoing request
		// against the recovered public key and nospam.
		status, devStatus := lf.Status, lf.Status
		switch {
		case lf.Status >= 3: // FriendConfirmed or FriendOnline
			status, devStatus = 3, 2 // FriendConfirmed, DeviceConfirmed
		case lf.Status > 0: // FriendAdded or FriendRequested
			status, devStatus = 1, 1 // FriendAdded, DevicePending
		}
		sf := SavedFriend{
			Status:        status,
			Info:          lf.Info,
			InfoSize:      lf.InfoSize,
			Name:          lf.Name,
			StatusMessage: lf.StatusMessage,
			UserStatus:    lf.UserStatus,
			RequestNospam: lf.Nospam,
			LastSeenTime:  lf.LastSeenTime,
			Devices:       []SavedDevice{{Status: devStatus, PublicKey: lf.PublicKey}},
		}
		snap.Friends = append(snap.Friends, sf)
	}
	return nil
}

// byteBuffer is a minimal growable/consumable byte buffer, used instead
// of bytes.Buffer only where io.Reader semantics (io.EOF at end) matter
// for the section-record loop above.
type byteBuffer struct {
	buf []byte
}

func (b *byteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *byteBuffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

func (b *byteBuffer) Bytes() []byte { return b.buf }
func (b *byteBuffer) Len() int      { return len(b.buf) }

func (b *byteBuffer) Read(p []byte) (int, error) {
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}
