package transfer_test

import (
	"testing"

	"github.com/dlazar-im/toxcore/transfer"
)

func TestFileNumberRoundTrip(t *testing.T) {
	dir, idx := transfer.DecodeFileNumber(transfer.EncodeFileNumber(transfer.Sending, 5))
	if dir != transfer.Sending || idx != 5 {
		t.Fatalf("sending roundtrip: got dir=%v idx=%d", dir, idx)
	}
	dir, idx = transfer.DecodeFileNumber(transfer.EncodeFileNumber(transfer.Receiving, 5))
	if dir != transfer.Receiving || idx != 5 {
		t.Fatalf("receiving roundtrip: got dir=%v idx=%d", dir, idx)
	}
}

func TestNewSendFillsSlot(t *testing.T) {
	var e transfer.Engine
	fn, err := e.NewSend(0, 1024, [32]byte{1}, "a.bin")
	if err != nil {
		t.Fatalf("NewSend: %v", err)
	}
	dir, idx := transfer.DecodeFileNumber(fn)
	if dir != transfer.Sending || idx != 0 {
		t.Fatalf("expected slot 0 sending, got %v %d", dir, idx)
	}
	if e.Sending[0].Status != transfer.StatusNotAccepted {
		t.Fatalf("expected NotAccepted, got %v", e.Sending[0].Status)
	}
	if e.NumSendingFiles != 1 {
		t.Fatalf("expected NumSendingFiles=1, got %d", e.NumSendingFiles)
	}
}

func TestNewSendExhaustsSlots(t *testing.T) {
	var e transfer.Engine
	for i := 0; i < transfer.MaxPipes; i++ {
		if _, err := e.NewSend(0, 1, [32]byte{}, "f"); err != nil {
			t.Fatalf("unexpected error filling slot %d: %v", i, err)
		}
	}
	if _, err := e.NewSend(0, 1, [32]byte{}, "overflow"); err != transfer.ErrInvalidFile {
		t.Fatalf("expected ErrInvalidFile once full, got %v", err)
	}
}

func TestControlAcceptStartsTransfer(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	if err := e.Control(fn, 0, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if e.Sending[0].Status != transfer.StatusTransferring {
		t.Fatalf("expected Transferring, got %v", e.Sending[0].Status)
	}
}

func TestControlPauseThenDoubleFails(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	if err := e.Control(fn, 1, 0); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := e.Control(fn, 1, 0); err != transfer.ErrAlreadyPaused {
		t.Fatalf("expected ErrAlreadyPaused, got %v", err)
	}
}

func TestControlKillFreesSlot(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	if err := e.Control(fn, 2, 0); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if e.Sending[0].Status != transfer.StatusNone {
		t.Fatalf("expected slot freed, got %v", e.Sending[0].Status)
	}
	if e.NumSendingFiles != 0 {
		t.Fatalf("expected NumSendingFiles=0, got %d", e.NumSendingFiles)
	}
}

func TestSeekOnlyValidOnNotAcceptedReceive(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewReceive(0, 1000, [32]byte{}, "a")
	if err := e.Control(fn, 3, 500); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if e.Receiving[0].Transferred != 500 {
		t.Fatalf("expected Transferred=500, got %d", e.Receiving[0].Transferred)
	}

	sendFn, _ := e.NewSend(0, 1000, [32]byte{}, "b")
	if err := e.Control(sendFn, 3, 10); err != transfer.ErrNotSending {
		t.Fatalf("expected ErrNotSending for a send-side seek, got %v", err)
	}
}

func TestDoReqChunksRequestsUpToFreeBudget(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10000, [32]byte{}, "a")
	e.Control(fn, 0, 0)

	var reqs []uint64
	e.DoReqChunks(transfer.MinSlotsFree+2, false, func(_ uint32, position uint64, length int) {
		reqs = append(reqs, position)
	})
	if len(reqs) != 2 {
		t.Fatalf("expected 2 chunk requests under a 2-slot budget, got %d", len(reqs))
	}
	if reqs[0] != 0 || reqs[1] != transfer.MaxFileDataSize {
		t.Fatalf("unexpected chunk positions: %v", reqs)
	}
}

func TestDoReqChunksSkipsPaused(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10000, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	e.Control(fn, 1, 0)

	var calls int
	e.DoReqChunks(transfer.MinSlotsFree+5, false, func(uint32, uint64, int) { calls++ })
	if calls != 0 {
		t.Fatalf("expected no requests for a paused transfer, got %d", calls)
	}
}

func TestDoReqChunksZeroSizeEmitsOnce(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 0, [32]byte{}, "empty")
	e.Control(fn, 0, 0)

	var calls int
	for i := 0; i < 3; i++ {
		e.DoReqChunks(transfer.MinSlotsFree+5, false, func(_ uint32, position uint64, length int) {
			calls++
			if position != 0 || length != 0 {
				t.Fatalf("expected a single zero-length chunk, got pos=%d len=%d", position, length)
			}
		})
	}
	if calls != 1 {
		t.Fatalf("expected exactly one zero-length chunk across repeated ticks, got %d", calls)
	}
}

func TestSendDataFinalChunkTerminates(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 5, [32]byte{}, "a")
	e.Control(fn, 0, 0)

	final, err := e.SendData(fn, 0, 5, 42)
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if !final {
		t.Fatalf("expected final chunk to terminate the stream")
	}
	if e.Sending[0].Status != transfer.StatusFinished {
		t.Fatalf("expected Finished, got %v", e.Sending[0].Status)
	}
}

func TestSendDataWrongPositionRejected(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 100, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	if _, err := e.SendData(fn, 10, 50, 1); err != transfer.ErrWrongPosition {
		t.Fatalf("expected ErrWrongPosition, got %v", err)
	}
}

func TestReapFinishedWaitsForAck(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 1, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	e.SendData(fn, 0, 1, 99)

	acked := false
	var finalized uint32
	called := 0
	reap := func() {
		e.ReapFinished(func(pn uint32) bool { return acked && pn == 99 }, func(fn uint32) {
			finalized = fn
			called++
		})
	}

	reap()
	if called != 0 {
		t.Fatalf("expected no reap before ack")
	}
	acked = true
	reap()
	if called != 1 || finalized != fn {
		t.Fatalf("expected reap to fire once acked, called=%d finalized=%d", called, finalized)
	}
	if e.Sending[0].Status != transfer.StatusNone {
		t.Fatalf("expected slot freed after reap, got %v", e.Sending[0].Status)
	}
}

func TestRecvDataTruncatesToSize(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewReceive(0, 3, [32]byte{}, "a")
	deliver, final, err := e.RecvData(fn, []byte{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("RecvData: %v", err)
	}
	if len(deliver) != 3 {
		t.Fatalf("expected truncation to 3 bytes, got %d", len(deliver))
	}
	if !final {
		t.Fatalf("expected final once size is reached")
	}
}

func TestRecvDataShortChunkEndsStream(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewReceive(0, transfer.UnknownSize, [32]byte{}, "a")
	_, final, err := e.RecvData(fn, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("RecvData: %v", err)
	}
	if !final {
		t.Fatalf("expected a short chunk to end an unknown-size stream")
	}
}

func TestBreakAllClearsEverything(t *testing.T) {
	var e transfer.Engine
	e.NewSend(0, 10, [32]byte{}, "a")
	e.NewReceive(0, 10, [32]byte{}, "b")
	e.BreakAll()
	if e.Sending[0].Status != transfer.StatusNone || e.Receiving[0].Status != transfer.StatusNone {
		t.Fatalf("expected all slots cleared")
	}
	if e.NumSendingFiles != 0 {
		t.Fatalf("expected NumSendingFiles reset, got %d", e.NumSendingFiles)
	}
}

func TestApplyPeerControlPauseSetsPauseOtherNotPauseUs(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	e.Control(fn, 0, 0)

	if err := e.ApplyPeerControl(fn, 1, 0); err != nil {
		t.Fatalf("peer pause: %v", err)
	}
	if e.Sending[0].Paused&transfer.PauseOther == 0 {
		t.Fatalf("expected PauseOther set by a peer pause")
	}
	if e.Sending[0].Paused&transfer.PauseUs != 0 {
		t.Fatalf("peer pause must not set PauseUs")
	}
}

func TestLocalAcceptCannotResumeAPeerPause(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	if err := e.ApplyPeerControl(fn, 1, 0); err != nil {
		t.Fatalf("peer pause: %v", err)
	}

	// A local Accept only clears PauseUs; it must not silently resume a
	// transfer the peer is holding with PauseOther.
	if err := e.Control(fn, 0, 0); err != transfer.ErrNotPausedByUs {
		t.Fatalf("expected ErrNotPausedByUs, got %v", err)
	}
	if e.Sending[0].Paused&transfer.PauseOther == 0 {
		t.Fatalf("expected PauseOther to remain set")
	}
}

func TestPeerAcceptCannotResumeOurOwnPause(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	e.Control(fn, 1, 0)

	// A peer Accept only clears PauseOther; it must not silently resume a
	// transfer we ourselves are holding with PauseUs.
	if err := e.ApplyPeerControl(fn, 0, 0); err != transfer.ErrNotPausedByUs {
		t.Fatalf("expected ErrNotPausedByUs, got %v", err)
	}
	if e.Sending[0].Paused&transfer.PauseUs == 0 {
		t.Fatalf("expected PauseUs to remain set")
	}
}

func TestApplyPeerControlAcceptClearsPauseOther(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 10, [32]byte{}, "a")
	e.Control(fn, 0, 0)
	e.ApplyPeerControl(fn, 1, 0)

	if err := e.ApplyPeerControl(fn, 0, 0); err != nil {
		t.Fatalf("peer accept: %v", err)
	}
	if e.Sending[0].Paused&transfer.PauseOther != 0 {
		t.Fatalf("expected PauseOther cleared by a peer accept")
	}
}

func TestApplyPeerControlSeekAppliesToSendingSlot(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, 1000, [32]byte{}, "a")

	if err := e.ApplyPeerControl(fn, 3, 500); err != nil {
		t.Fatalf("peer seek: %v", err)
	}
	if e.Sending[0].Transferred != 500 {
		t.Fatalf("expected Transferred=500, got %d", e.Sending[0].Transferred)
	}

	recvFn, _ := e.NewReceive(0, 1000, [32]byte{}, "b")
	if err := e.ApplyPeerControl(recvFn, 3, 10); err != transfer.ErrNotSending {
		t.Fatalf("expected ErrNotSending for a receive-side peer seek, got %v", err)
	}
}

func TestSendDataUnknownSizeShortChunkIsFinal(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, transfer.UnknownSize, [32]byte{}, "a")
	e.Control(fn, 0, 0)

	final, err := e.SendData(fn, 0, 100, 1)
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if !final {
		t.Fatalf("expected a short chunk to terminate an unknown-size stream")
	}
	if e.Sending[0].Status != transfer.StatusFinished {
		t.Fatalf("expected Finished, got %v", e.Sending[0].Status)
	}
}

func TestSendDataUnknownSizeFullChunkIsNotFinal(t *testing.T) {
	var e transfer.Engine
	fn, _ := e.NewSend(0, transfer.UnknownSize, [32]byte{}, "a")
	e.Control(fn, 0, 0)

	final, err := e.SendData(fn, 0, transfer.MaxFileDataSize, 1)
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if final {
		t.Fatalf("expected a full-size chunk to keep an unknown-size stream open")
	}
	if e.Sending[0].Status != transfer.StatusTransferring {
		t.Fatalf("expected Transferring, got %v", e.Sending[0].Status)
	}
}
