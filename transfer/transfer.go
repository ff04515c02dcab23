// Package transfer implements the per-friend file-transfer engine: fixed
// arrays of outgoing and incoming transfers, the flow-controlled
// chunk-request loop, and pause/resume/kill/seek control.
package transfer

import "github.com/dlazar-im/toxcore/errors"

// MaxPipes is the number of concurrent transfer slots per direction,
// per friend (spec.md MAX_CONCURRENT_FILE_PIPES).
const MaxPipes = 32

// MaxFileDataSize bounds a single FILE_DATA chunk's payload
// (MAX_CRYPTO_DATA_SIZE - 2, per spec.md section 6's constants table).
const MaxFileDataSize = 1371

// MinSlotsFree is subtracted from the transport's free-send-queue-slot
// count before the chunk-request loop spends any of it, leaving headroom
// for non-file traffic (CRYPTO_MIN_QUEUE_LENGTH / 4 in the reference
// transport's terms).
const MinSlotsFree = 16

// UnknownSize marks a transfer whose size is not known in advance
// (streaming); spec.md's UINT64_MAX sentinel.
const UnknownSize = ^uint64(0)

// Status is a file transfer's lifecycle state.
type Status int

const (
	StatusNone Status = iota
	StatusNotAccepted
	StatusTransferring
	StatusFinished
)

// Pause is an orthogonal bitflag: a transfer can be paused by us, by the
// peer, or both, independently of its Status.
type Pause int

const (
	PauseNone  Pause = 0
	PauseUs    Pause = 1 << 0
	PauseOther Pause = 1 << 1
)

// Direction distinguishes an outgoing transfer (this friend's
// file_sending array) from an incoming one (file_receiving).
type Direction int

const (
	Sending Direction = iota
	Receiving
)

const fileIDLength = 32

// Transfer is one file-transfer slot.
type Transfer struct {
	Status Status
	Paused Pause

	FileType uint32
	Size     uint64
	FileID   [fileIDLength]byte
	Filename string

	Transferred uint64
	Requested   uint64

	SlotsAllocated int

	LastPacketNumber uint32
	awaitingFinalAck bool

	zeroChunkSent bool
}

// Engine holds one friend's outgoing and incoming transfer slots.
type Engine struct {
	Sending         [MaxPipes]Transfer
	Receiving       [MaxPipes]Transfer
	NumSendingFiles int
}

var (
	ErrInvalidFile     = errors.New("transfer: invalid file slot")
	ErrBadControl      = errors.New("transfer: control not valid in current state")
	ErrAlreadyPaused   = errors.New("transfer: already paused by us")
	ErrNotPausedByUs   = errors.New("transfer: not paused by us")
	ErrNotPaused       = errors.New("transfer: not paused")
	ErrNotSending      = errors.New("transfer: seek only valid on a not-yet-accepted receive")
	ErrWrongState      = errors.New("transfer: wrong state for this operation")
	ErrBadPosition     = errors.New("transfer: seek position must be less than size")
	ErrNotTransferring = errors.New("transfer: not transferring")
	ErrBadSize         = errors.New("transfer: bad chunk size")
	ErrWrongPosition   = errors.New("transfer: chunk position does not match transferred bytes")
	ErrTooLong         = errors.New("transfer: filename too long")
)

// EncodeFileNumber folds a direction and slot index into the API-level
// 32-bit file number (a one-byte slot index travels on the wire).
func EncodeFileNumber(dir Direction, slot int) uint32 {
	if dir == Receiving {
		return (uint32(slot) + 1) << 16
	}
	return uint32(slot)
}

// DecodeFileNumber splits an API-level file number back into a direction
// and slot index, per spec.md section 4.4's convention: file numbers
// >= 2^16 are receiving transfers.
func DecodeFileNumber(fileNumber uint32) (Direction, int) {
	if fileNumber >= 1<<16 {
		return Receiving, int(fileNumber>>16) - 1
	}
	return Sending, int(fileNumber)
}

func (e *Engine) firstFreeSending() int {
	for i := range e.Sending {
		if e.Sending[i].Status == StatusNone {
			return i
		}
	}
	return -1
}

func (e *Engine) firstFreeReceiving() int {
	for i := range e.Receiving {
		if e.Receiving[i].Status == StatusNone {
			return i
		}
	}
	return -1
}

// NewSend reserves a sending slot, filling in file metadata and moving it
// to StatusNotAccepted. It returns the API-level file number for the new
// transfer, or ErrInvalidFile if every slot is occupied.
func (e *Engine) NewSend(fileType uint32, size uint64, fileID [fileIDLength]byte, filename string) (uint32, error) {
	if len(filename) > 255 {
		return 0, ErrTooLong
	}
	slot := e.firstFreeSending()
	if slot == -1 {
		return 0, ErrInvalidFile
	}
	e.Sending[slot] = Transfer{
		Status:   StatusNotAccepted,
		FileType: fileType,
		Size:     size,
		FileID:   fileID,
		Filename: filename,
	}
	e.NumSendingFiles++
	return EncodeFileNumber(Sending, slot), nil
}

// NewReceive records an incoming FILE_SENDREQUEST as a receiving-side
// transfer in StatusNotAccepted.
func (e *Engine) NewReceive(fileType uint32, size uint64, fileID [fileIDLength]byte, filename string) (uint32, error) {
	slot := e.firstFreeReceiving()
	if slot == -1 {
		return 0, ErrInvalidFile
	}
	e.Receiving[slot] = Transfer{
		Status:   StatusNotAccepted,
		FileType: fileType,
		Size:     size,
		FileID:   fileID,
		Filename: filename,
	}
	return EncodeFileNumber(Receiving, slot), nil
}

func (e *Engine) slot(fileNumber uint32) (*Transfer, Direction, error) {
	dir, idx := DecodeFileNumber(fileNumber)
	var arr *[MaxPipes]Transfer
	if dir == Sending {
		arr = &e.Sending
	} else {
		arr = &e.Receiving
	}
	if idx < 0 || idx >= MaxPipes || arr[idx].Status == StatusNone {
		return nil, dir, ErrInvalidFile
	}
	return &arr[idx], dir, nil
}

// Control applies a control verb (accept/pause/kill/seek) to a transfer,
// per spec.md section 4.4.
func (e *Engine) Control(fileNumber uint32, kind int, position uint64) error {
	t, dir, err := e.slot(fileNumber)
	if err != nil {
		return err
	}

	switch kind {
	case 0: // Accept
		switch {
		case t.Status == StatusNotAccepted:
			t.Status = StatusTransferring
		case t.Status == StatusTransferring && t.Paused&PauseUs != 0:
			t.Paused &^= PauseUs
		case t.Status == StatusTransferring && t.Paused&PauseOther != 0 && t.Paused&PauseUs == 0:
			return ErrNotPausedByUs
		case t.Status == StatusTransferring && t.Paused == PauseNone:
			return ErrNotPaused
		default:
			return ErrBadControl
		}
		return nil

	case 1: // Pause
		if t.Status != StatusTransferring {
			return ErrBadControl
		}
		if t.Paused&PauseUs != 0 {
			return ErrAlreadyPaused
		}
		t.Paused |= PauseUs
		return nil

	case 2: // Kill
		if dir == Sending && t.Status != StatusNone {
			e.NumSendingFiles--
		}
		*t = Transfer{}
		return nil

	case 3: // Seek
		if dir != Receiving {
			return ErrNotSending
		}
		if t.Status != StatusNotAccepted {
			return ErrWrongState
		}
		if position >= t.Size {
			return ErrBadPosition
		}
		t.Transferred = position
		t.Requested = position
		return nil
	}

	return ErrBadControl
}

// ApplyPeerControl applies an inbound FILE_CONTROL packet — one the peer
// sent us — to one of our own transfer slots. This is deliberately not
// Control reused in reverse: Control's Pause/Accept toggle PauseUs (we
// are the one pausing/unpausing our own transfer), while a control verb
// arriving from the peer toggles PauseOther, the mirror flag recording
// that the *peer* paused or unpaused it. Reusing Control for inbound
// packets would record a peer's Pause as our own, letting a later local
// Accept silently resume a transfer the peer asked us to hold.
func (e *Engine) ApplyPeerControl(fileNumber uint32, kind int, position uint64) error {
	t, dir, err := e.slot(fileNumber)
	if err != nil {
		return err
	}

	switch kind {
	case 0: // Accept
		switch {
		case t.Status == StatusNotAccepted:
			t.Status = StatusTransferring
		case t.Status == StatusTransferring && t.Paused&PauseOther != 0:
			t.Paused &^= PauseOther
		case t.Status == StatusTransferring && t.Paused&PauseUs != 0 && t.Paused&PauseOther == 0:
			return ErrNotPausedByUs
		default:
			return ErrBadControl
		}
		return nil

	case 1: // Pause
		if t.Status != StatusTransferring {
			return ErrBadControl
		}
		if t.Paused&PauseOther != 0 {
			return ErrAlreadyPaused
		}
		t.Paused |= PauseOther
		return nil

	case 2: // Kill
		if dir == Sending && t.Status != StatusNone {
			e.NumSendingFiles--
		}
		*t = Transfer{}
		return nil

	case 3: // Seek
		// An inbound SEEK names a transfer we are sending: the receiver
		// seeks their own (Receiving-side, not-yet-accepted) copy via
		// Control, then sends us SEEK so our Sending-side bookkeeping
		// starts at the same offset.
		if dir != Sending {
			return ErrNotSending
		}
		if t.Status != StatusNotAccepted {
			return ErrWrongState
		}
		if position >= t.Size {
			return ErrBadPosition
		}
		t.Transferred = position
		t.Requested = position
		return nil
	}

	return ErrBadControl
}

// ReqChunk is invoked once per chunk the engine wants the caller to read
// from disk and send via FILE_DATA.
type ReqChunk func(fileNumber uint32, position uint64, length int)

// DoReqChunks drives the chunk-request loop for every transferring,
// unpaused outbound transfer, bounded by the transport's free-slot
// budget. maxSpeedReached mirrors NetCrypto's per-connection flag; once
// true, no further chunks are requested this tick.
func (e *Engine) DoReqChunks(freeSlots int, maxSpeedReached bool, req ReqChunk) {
	free := freeSlots - MinSlotsFree
	if free < 0 {
		free = 0
	}
	for i := range e.Sending {
		free -= e.Sending[i].SlotsAllocated
	}
	if free < 0 {
		free = 0
	}

	for i := range e.Sending {
		t := &e.Sending[i]
		if t.Status != StatusTransferring || t.Paused != PauseNone {
			continue
		}

		if t.Size == 0 {
			if !t.zeroChunkSent {
				req(EncodeFileNumber(Sending, i), 0, 0)
				t.zeroChunkSent = true
			}
			continue
		}

		for free > 0 && !maxSpeedReached {
			if t.Requested >= t.Size {
				break
			}
			length := t.Size - t.Requested
			if length > MaxFileDataSize {
				length = MaxFileDataSize
			}
			req(EncodeFileNumber(Sending, i), t.Requested, int(length))
			t.Requested += length
			t.SlotsAllocated++
			free--
		}
	}
}

// SendData validates and applies an outbound FILE_DATA chunk the caller
// has written to the wire at packetNum. It reports whether the chunk
// terminates the stream.
func (e *Engine) SendData(fileNumber uint32, position uint64, length int, packetNum uint32) (terminal bool, err error) {
	t, dir, err := e.slot(fileNumber)
	if err != nil {
		return false, err
	}
	if dir != Sending {
		return false, ErrInvalidFile
	}
	if t.Status != StatusTransferring {
		return false, ErrNotTransferring
	}
	if position != t.Transferred {
		return false, ErrWrongPosition
	}
	if length < 0 || uint64(length) > MaxFileDataSize {
		return false, ErrBadSize
	}

	// For an unknown (streaming) size, any short chunk — not just a
	// zero-length one — ends the stream: the sender has no size to
	// compare against, so "short" is the only terminal signal available.
	var isFinal bool
	if t.Size == UnknownSize {
		isFinal = uint64(length) < MaxFileDataSize
	} else {
		isFinal = t.Transferred+uint64(length) == t.Size
	}
	if uint64(length) != MaxFileDataSize && !isFinal {
		return false, ErrBadSize
	}

	t.Transferred += uint64(length)
	if t.SlotsAllocated > 0 {
		t.SlotsAllocated--
	}

	if isFinal {
		t.Status = StatusFinished
		t.LastPacketNumber = packetNum
		t.awaitingFinalAck = true
		return true, nil
	}
	return false, nil
}

// ReapFinished polls finished sending transfers' last packet for
// acknowledgement; once acked, it invokes onFinal with the file number
// (the caller fires the zero-length end-of-stream callback) and frees
// the slot.
func (e *Engine) ReapFinished(acked func(packetNum uint32) bool, onFinal func(fileNumber uint32)) {
	for i := range e.Sending {
		t := &e.Sending[i]
		if t.Status != StatusFinished || !t.awaitingFinalAck {
			continue
		}
		if !acked(t.LastPacketNumber) {
			continue
		}
		onFinal(EncodeFileNumber(Sending, i))
		e.NumSendingFiles--
		*t = Transfer{}
	}
}

// RecvData applies an inbound FILE_DATA chunk (position is implicit: the
// transfer's current Transferred count). It returns the (possibly
// truncated) bytes to deliver and whether this chunk ends the stream.
func (e *Engine) RecvData(fileNumber uint32, data []byte) (deliver []byte, final bool, err error) {
	t, dir, err := e.slot(fileNumber)
	if err != nil {
		return nil, false, err
	}
	if dir != Receiving {
		return nil, false, ErrInvalidFile
	}

	n := len(data)
	if t.Size != UnknownSize && t.Transferred+uint64(n) > t.Size {
		n = int(t.Size - t.Transferred)
	}
	deliver = data[:n]
	t.Transferred += uint64(n)

	final = (t.Size != UnknownSize && t.Transferred >= t.Size) || len(data) < MaxFileDataSize
	if final {
		*t = Transfer{}
	}
	return deliver, final, nil
}

// BreakAll resets every non-None slot in both directions to None without
// invoking any callback, for use when the owning friend disconnects.
func (e *Engine) BreakAll() {
	for i := range e.Sending {
		e.Sending[i] = Transfer{}
	}
	for i := range e.Receiving {
		e.Receiving[i] = Transfer{}
	}
	e.NumSendingFiles = 0
}
