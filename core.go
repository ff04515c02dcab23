// Package toxcore implements the friend-session and per-friend messaging
// core of a peer-to-peer instant messenger built atop an end-to-end
// encrypted transport: identity, roster, ordered message delivery with
// read receipts, concurrent file transfer, and save/load of the friend
// list.
//
// The cryptographic transport, DHT/relay connectivity, and friend-request
// filtering are out of scope; they are modeled here purely as the
// FriendConn and NetCrypto interfaces so Core compiles and is testable
// without them.
package toxcore

import (
	"sync"
	"time"

	"github.com/dlazar-im/toxcore/errors"
	"github.com/dlazar-im/toxcore/identity"
	"github.com/dlazar-im/toxcore/log"
	"github.com/dlazar-im/toxcore/receipt"
	"github.com/dlazar-im/toxcore/roster"
	"github.com/dlazar-im/toxcore/transfer"
	"github.com/dlazar-im/toxcore/wire"
)

// FriendConn is the out-of-scope connectivity subsystem (DHT/onion
// rendezvous, TCP-relay fallback) that produces and destroys per-device
// crypto connections.
//
// spec.md section 6 gives this collaborator's set_callbacks a status_cb,
// packet_cb and lossy_cb alongside the (handle, friend_idx, device_idx)
// tag; those three are calls *into* Core rather than function pointers
// Core hands out, matching the rest of this package's push-style
// boundary (OnPacket is packet_cb/lossy_cb, NotifyDeviceConnected is
// status_cb) — SetCallbacks itself only needs to register the tag.
type FriendConn interface {
	NewConn(publicKey [32]byte) (handle uint32, err error)
	KillConn(handle uint32)
	IsConnected(handle uint32) bool
	CryptConnID(handle uint32) uint32
	SetCallbacks(handle uint32, friendIdx, deviceIdx int)
	SendRequest(handle uint32, nospam uint32, greeting []byte) error
}

// NetCrypto is the out-of-scope authenticated-transport subsystem: a
// bounded per-connection send queue with a free-slot counter and a
// max-speed flag.
type NetCrypto interface {
	WriteCryptPacket(connID uint32, buf []byte, reliable bool) (packetNum uint32, err error)
	CryptPacketReceived(connID uint32, packetNum uint32) bool
	NumFreeSendQueueSlots(connID uint32) int
	MaxSpeedReached(connID uint32) bool
	SendLossyCryptPacket(connID uint32, buf []byte) error
	Status(connID uint32) (direct bool, numRelays int)
}

// Callbacks is a flat record of optional function pointers plus a single
// opaque user context shared across every slot, fired synchronously from
// Tick or OnPacket. Unlike the teacher's single EventHandler interface
// (one method per event, always implemented as a whole), spec.md's
// callback surface is a set of independently optional hooks — a caller
// that only cares about messages need not implement the rest — so this
// is expressed as a struct of nilable fields rather than an interface.
type Callbacks struct {
	UserContext interface{}

	FriendRequest        func(ctx interface{}, publicKey [32]byte, message []byte)
	FriendMessage        func(ctx interface{}, friend int, kind wire.MessageType, message []byte)
	NameChange           func(ctx interface{}, friend int, name string)
	StatusMessageChange  func(ctx interface{}, friend int, statusMessage string)
	UserStatusChange     func(ctx interface{}, friend int, status roster.UserStatus)
	TypingChange         func(ctx interface{}, friend int, typing bool)
	ReadReceipt          func(ctx interface{}, friend int, messageID uint32)
	ConnectionStatus     func(ctx interface{}, friend int, kind roster.ConnectionKind)
	FileSendRequest      func(ctx interface{}, friend int, fileNumber uint32, fileType uint32, size uint64, filename string)
	FileControl          func(ctx interface{}, friend int, fileNumber uint32, control wire.FileControlKind)
	FileRecvData         func(ctx interface{}, friend int, fileNumber uint32, position uint64, data []byte)
	FileReqChunk         func(ctx interface{}, friend int, fileNumber uint32, position uint64, length int)
	GroupInvite          func(ctx interface{}, friend int, data []byte)
	MSIPacket            func(ctx interface{}, friend int, data []byte)
	CoreConnectionChange func(ctx interface{}, kind roster.ConnectionKind)
	CustomLossy          func(ctx interface{}, friend int, data []byte)
	CustomLossless       func(ctx interface{}, friend int, data []byte)

	// RTP holds one handler per reserved lossy-AV byte code
	// (wire.PacketLossyAVSize slots).
	RTP [wire.PacketLossyAVSize]func(ctx interface{}, friend int, data []byte)
}

// friendRuntime is the per-friend state that lives alongside a
// roster.Friend but isn't part of the roster's own data model: the
// receipt queue and file-transfer engine are independently-testable
// components, not roster fields.
type friendRuntime struct {
	receipts  receipt.Queue
	transfers transfer.Engine
}

// Core is the orchestrating friend-session state machine: a roster, a
// per-friend runtime (receipts, transfers), the self profile, and the
// registered callbacks, driven entirely by Tick/Send*/OnPacket calls from
// a single logical thread.
type Core struct {
	// mu guards the read-only accessor surface (GetFriends/GetFriend) for
	// hosts that read a roster snapshot from a goroutine other than the
	// one driving Tick, mirroring the teacher's Client.mu usage around
	// GetFriends/GetFriend. Every mutating method below is documented as
	// single-writer per spec.md's concurrency model and does not itself
	// take mu; callers that share a Core across goroutines must still
	// serialize writes themselves.
	mu sync.Mutex

	Roster *roster.Table

	PublicKey  [32]byte
	PrivateKey [32]byte
	Nospam     uint32

	Name          string
	StatusMessage string
	UserStatus    roster.UserStatus

	Conn    FriendConn
	Crypto  NetCrypto
	Logger  *log.Logger
	Callbacks Callbacks

	runtime map[int]*friendRuntime

	lastCoreConnectionKind roster.ConnectionKind
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithLogger overrides the default (package-global) logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Core) { c.Logger = l }
}

// New constructs a Core for the given identity keypair and downward
// collaborators.
func New(publicKey, privateKey [32]byte, conn FriendConn, crypto NetCrypto, opts ...Option) (*Core, error) {
	if err := identity.ValidateKey(publicKey); err != nil {
		return nil, errors.Wrap(err, "toxcore: invalid local public key")
	}
	c := &Core{
		Roster:  roster.New(),
		Conn:    conn,
		Crypto:  crypto,
		Logger:  log.StdLogger,
		runtime: make(map[int]*friendRuntime),
	}
	c.PublicKey = publicKey
	c.PrivateKey = privateKey
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Core) runtimeFor(friendIdx int) *friendRuntime {
	rt, ok := c.runtime[friendIdx]
	if !ok {
		rt = &friendRuntime{}
		c.runtime[friendIdx] = rt
	}
	return rt
}

// GetFriends returns a snapshot of all live friend indices. Safe to call
// from a goroutine other than the one driving Tick.
func (c *Core) GetFriends() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Roster.All()
}

// GetFriend returns a copy of one friend's roster record. Safe to call
// from a goroutine other than the one driving Tick.
func (c *Core) GetFriend(friendIdx int) (roster.Friend, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.Roster.Get(friendIdx)
	if f == nil {
		return roster.Friend{}, false
	}
	return *f, true
}

func (c *Core) withLock(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func now() time.Time { return time.Now() }
