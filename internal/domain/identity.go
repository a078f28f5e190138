package domain

// SystemUserID attributes server-originated frames.
const SystemUserID = "system"

// SystemUsername is the display name on server-originated frames.
const SystemUsername = "Sistema"

// defaultUsernamePrefix plus the first defaultUsernameIDChars characters of
// the connection id form the name of users who join without one.
const (
	defaultUsernamePrefix  = "Usuario_"
	defaultUsernameIDChars = 5
)

// Connection is the writable end of one client channel.
type Connection interface {
	ID() string
	// Send queues data for delivery. It fails when the channel is no longer
	// writable; callers treat that as a skip, not a fatal error.
	Send(data []byte) error
}

// Identity is the profile of a joined participant.
type Identity struct {
	ID       string
	Username string
	IsAdmin  bool
}

// Entry returns the directory projection of the identity.
func (i Identity) Entry() DirectoryEntry {
	return DirectoryEntry{ID: i.ID, Username: i.Username, IsAdmin: i.IsAdmin}
}

// DirectoryEntry is what non-chat parts of the site may see about a
// connected participant.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// DefaultUsername builds the fallback display name for a connection id.
func DefaultUsername(connID string) string {
	r := []rune(connID)
	if len(r) > defaultUsernameIDChars {
		r = r[:defaultUsernameIDChars]
	}
	return defaultUsernamePrefix + string(r)
}
