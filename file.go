package toxcore

import (
	"github.com/dlazar-im/toxcore/transfer"
	"github.com/dlazar-im/toxcore/wire"
)

func mapFileControlErr(err error) FileControlError {
	switch err {
	case transfer.ErrInvalidFile:
		return FileControlInvalidFile
	case transfer.ErrAlreadyPaused:
		return FileControlAlreadyPaused
	case transfer.ErrNotPausedByUs:
		return FileControlNotPausedByUs
	case transfer.ErrNotPaused:
		return FileControlNotPaused
	default:
		return FileControlBadControl
	}
}

func mapFileSeekErr(err error) FileSeekError {
	switch err {
	case transfer.ErrInvalidFile:
		return FileSeekInvalidFile
	case transfer.ErrNotSending:
		return FileSeekNotSending
	case transfer.ErrWrongState:
		return FileSeekWrongState
	case transfer.ErrBadPosition:
		return FileSeekBadPosition
	default:
		return FileSeekWrongState
	}
}

// NewFileSend reserves a sending slot for friendIdx and emits a
// FILE_SENDREQUEST. The returned file number is the API-level handle
// used by FileControl/FileData.
func (c *Core) NewFileSend(friendIdx int, fileType uint32, size uint64, fileID [32]byte, filename string) (uint32, error) {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return 0, FileControlInvalidFriend
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return 0, FileControlFriendNotConnected
	}

	rt := c.runtimeFor(friendIdx)
	fn, err := rt.transfers.NewSend(fileType, size, fileID, filename)
	if err != nil {
		return 0, mapFileControlErr(err)
	}
	_, slot := transfer.DecodeFileNumber(fn)

	payload, encErr := wire.EncodeSendRequest(wire.SendRequest{
		Slot: byte(slot), FileType: fileType, Size: size, FileID: fileID, Filename: filename,
	})
	if encErr != nil {
		rt.transfers.Control(fn, 2, 0) // kill, roll back the reservation
		return 0, FileControlBadControl
	}
	packet := append([]byte{byte(wire.IDFileSendRequest)}, payload...)
	if _, err := c.sendInBand(friendIdx, dev, packet); err != nil {
		rt.transfers.Control(fn, 2, 0)
		return 0, FileControlSendFailed
	}
	return fn, nil
}

// FileControl applies accept/pause/kill to an existing transfer and
// notifies the peer.
func (c *Core) FileControl(friendIdx int, fileNumber uint32, control wire.FileControlKind) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return FileControlInvalidFriend
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return FileControlFriendNotConnected
	}
	rt := c.runtimeFor(friendIdx)
	if err := rt.transfers.Control(fileNumber, int(control), 0); err != nil {
		return mapFileControlErr(err)
	}

	_, slot := transfer.DecodeFileNumber(fileNumber)
	packet := append([]byte{byte(wire.IDFileControl)}, wire.EncodeFileControl(wire.FileControl{
		Slot: byte(slot), Control: control,
	})...)
	if _, err := c.sendInBand(friendIdx, dev, packet); err != nil {
		return FileControlSendFailed
	}
	return nil
}

// FileSeek repositions a not-yet-accepted receiving transfer and informs
// the sender where to resume.
func (c *Core) FileSeek(friendIdx int, fileNumber uint32, position uint64) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return FileSeekInvalidFriend
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return FileSeekFriendNotConnected
	}
	rt := c.runtimeFor(friendIdx)
	if err := rt.transfers.Control(fileNumber, 3, position); err != nil {
		return mapFileSeekErr(err)
	}

	_, slot := transfer.DecodeFileNumber(fileNumber)
	packet := append([]byte{byte(wire.IDFileControl)}, wire.EncodeFileControl(wire.FileControl{
		Slot: byte(slot), Control: wire.FileControlSeek, Position: position,
	})...)
	if _, err := c.sendInBand(friendIdx, dev, packet); err != nil {
		return FileSeekSendFailed
	}
	return nil
}

// FileData sends one outbound chunk for an in-progress transfer, in
// response to a Callbacks.FileReqChunk call.
func (c *Core) FileData(friendIdx int, fileNumber uint32, position uint64, data []byte) error {
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return FileDataInvalidFriend
	}
	dev, ok := primaryOnlineDevice(f)
	if !ok {
		return FileDataFriendNotConnected
	}

	rt := c.runtimeFor(friendIdx)
	dir, idx := transfer.DecodeFileNumber(fileNumber)
	if dir != transfer.Sending || idx < 0 || idx >= transfer.MaxPipes {
		return FileDataInvalidFile
	}
	t := rt.transfers.Sending[idx]
	if t.Status != transfer.StatusTransferring {
		return FileDataNotTransferring
	}
	if position != t.Transferred {
		return FileDataWrongPosition
	}
	if uint64(len(data)) > transfer.MaxFileDataSize {
		return FileDataBadSize
	}

	packet := append([]byte{byte(wire.IDFileData)}, wire.EncodeFileData(wire.FileData{Slot: byte(idx), Data: data})...)
	packetNum, err := c.sendInBand(friendIdx, dev, packet)
	if err != nil {
		return FileDataQueueFull
	}

	if _, err := rt.transfers.SendData(fileNumber, position, len(data), packetNum); err != nil {
		return mapFileDataErr(err)
	}
	return nil
}

func mapFileDataErr(err error) FileDataError {
	switch err {
	case transfer.ErrInvalidFile:
		return FileDataInvalidFile
	case transfer.ErrNotTransferring:
		return FileDataNotTransferring
	case transfer.ErrWrongPosition:
		return FileDataWrongPosition
	case transfer.ErrBadSize:
		return FileDataBadSize
	default:
		return FileDataBadSize
	}
}
