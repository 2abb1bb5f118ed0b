package identity

import (
	"context"
	"sync"

	"ticketd/cmd/security/password"
)

// Account is one login account.
type Account struct {
	UserID       uint64
	Username     string
	PasswordHash string
}

// Directory is an in-memory, concurrency-safe account directory.
type Directory struct {
	hasher *password.Hasher

	mu     sync.RWMutex
	byName map[string]Account
	byID   map[uint64]string

	// dummyHash is verified when the username is unknown so that both paths cost the same.
	dummyHash string
}

// NewDirectory constructs an empty Directory that hashes with h.
func NewDirectory(h *password.Hasher) (*Directory, error) {
	if h == nil {
		return nil, OpError{Op: "identity.NewDirectory", Kind: ErrInvalidInput, Msg: "nil hasher"}
	}

	dummy, err := h.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, err
	}

	return &Directory{
		hasher:    h,
		byName:    make(map[string]Account),
		byID:      make(map[uint64]string),
		dummyHash: dummy,
	}, nil
}

// Register adds an account. Usernames are unique after normalization; so are user ids.
func (d *Directory) Register(username, plain string, userID uint64) (Account, error) {
	const op = "identity.Register"

	name := NormalizeUsername(username)
	if name == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty username"}
	}

	hash, err := d.hasher.Hash(plain)
	if err != nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[name]; ok {
		return Account{}, ConflictError{Op: op, Field: "username"}
	}
	if _, ok := d.byID[userID]; ok {
		return Account{}, ConflictError{Op: op, Field: "user_id"}
	}

	acc := Account{UserID: userID, Username: name, PasswordHash: hash}
	d.byName[name] = acc
	d.byID[userID] = name
	return acc, nil
}

// Authenticate returns the account matching username and plain.
// Every failure (unknown user, wrong password, unusable hash) is ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, username, plain string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	d.mu.RLock()
	acc, found := d.byName[NormalizeUsername(username)]
	d.mu.RUnlock()

	if !found {
		_, _ = d.hasher.Verify(d.dummyHash, plain)
		return Account{}, invalidCredentials()
	}

	ok, err := d.hasher.Verify(acc.PasswordHash, plain)
	if err != nil || !ok {
		return Account{}, invalidCredentials()
	}
	return acc, nil
}

// Len returns the number of registered accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byName)
}
