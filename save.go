package toxcore

import (
	"bytes"
	"time"

	"github.com/dlazar-im/toxcore/persist"
	"github.com/dlazar-im/toxcore/roster"
)

// Save serializes the current roster and profile into a save blob. If
// passphrase is non-empty the blob is sealed with EncryptSave before being
// returned, per spec.md's optional encrypted-container extension.
func (c *Core) Save(passphrase string) ([]byte, error) {
	snap := persist.Snapshot{
		Name:          c.Name,
		StatusMessage: c.StatusMessage,
		Status:        byte(c.UserStatus),
	}
	for _, idx := range c.Roster.All() {
		f := c.Roster.Get(idx)
		sf := persist.SavedFriend{
			Status:        byte(f.Status),
			Info:          f.Info,
			InfoSize:      uint16(f.InfoSize),
			Name:          f.Name,
			StatusMessage: f.StatusMessage,
			UserStatus:    byte(f.UserStatus),
			RequestNospam: f.RequestNospam,
			LastSeenTime:  uint64(f.LastSeenTime.Unix()),
		}
		for _, d := range f.Devices {
			sf.Devices = append(sf.Devices, persist.SavedDevice{Status: byte(d.Status), PublicKey: d.PublicKey})
		}
		snap.Friends = append(snap.Friends, sf)
	}

	var buf bytes.Buffer
	if err := persist.Save(&buf, snap); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if passphrase == "" {
		return data, nil
	}
	return persist.EncryptSave(data, passphrase)
}

// Load replaces the roster and profile with the contents of a save blob
// previously produced by Save. An encrypted blob is transparently
// decrypted first; a wrong or missing passphrase against an encrypted
// blob fails closed (persist.ErrWrongPassphrase).
func (c *Core) Load(data []byte, passphrase string) error {
	if persist.IsEncrypted(data) {
		plain, err := persist.DecryptSave(data, passphrase)
		if err != nil {
			return err
		}
		data = plain
	}

	snap, err := persist.Load(data)
	if err != nil {
		return err
	}

	c.Roster = roster.New()
	c.runtime = make(map[int]*friendRuntime)
	c.Name = snap.Name
	c.StatusMessage = snap.StatusMessage
	c.UserStatus = roster.UserStatus(snap.Status)

	for _, sf := range snap.Friends {
		f := &roster.Friend{
			Status:         roster.FriendStatus(sf.Status),
			Info:           sf.Info,
			InfoSize:       int(sf.InfoSize),
			Name:           sf.Name,
			StatusMessage:  sf.StatusMessage,
			UserStatus:     roster.UserStatus(sf.UserStatus),
			RequestNospam:  sf.RequestNospam,
			RequestTimeout: defaultFriendRequestTimeout,
			LastSeenTime:   time.Unix(int64(sf.LastSeenTime), 0),
		}
		for _, sd := range sf.Devices {
			f.Devices = append(f.Devices, roster.Device{Status: roster.DeviceStatus(sd.Status), PublicKey: sd.PublicKey})
		}
		// A restored friend's devices start Confirmed (not Online), and a
		// friend saved as Online is restored as Confirmed: connectivity
		// must be re-established by the host's transport layer before Tick
		// will treat the friend as reachable again.
		for i := range f.Devices {
			if f.Devices[i].Status == roster.DeviceOnline {
				f.Devices[i].Status = roster.DeviceConfirmed
			}
		}
		if f.Status == roster.FriendOnline {
			f.Status = roster.FriendConfirmed
		}
		c.Roster.Insert(f)
	}
	return nil
}
