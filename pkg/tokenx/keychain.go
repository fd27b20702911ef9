package tokenx

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Secret is symmetric signing material. Multiple secrets coexist during
// rotation: exactly one is current for new signatures, all others remain
// available by kid for verifying already-issued tokens until they age out.
type Secret struct {
	ID        uuid.UUID
	KID       string // key id embedded in token headers
	Value     []byte
	CreatedAt time.Time
}

// ErrNoSecret is returned when the keychain holds no signing secret.
var ErrNoSecret = errors.New("tokenx: no signing secret available")

// Keychain is the in-memory view of the secret store. Reads vastly
// outnumber writes (rotation), hence the RWMutex.
type Keychain struct {
	mu      sync.RWMutex
	byKID   map[string]Secret
	current string // kid of the signing secret
}

func NewKeychain() *Keychain {
	return &Keychain{byKID: map[string]Secret{}}
}

// Add installs a secret for verification. It does not change the current
// signing secret; use SetCurrent or AddCurrent for that.
func (k *Keychain) Add(s Secret) error {
	if s.KID == "" || len(s.Value) == 0 {
		return errors.New("tokenx: secret requires kid and value")
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.byKID[s.KID] = s
	return nil
}

// AddCurrent installs a secret and makes it the signing secret.
func (k *Keychain) AddCurrent(s Secret) error {
	if err := k.Add(s); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.current = s.KID
	return nil
}

// SetCurrent switches the signing secret to an already-installed kid.
func (k *Keychain) SetCurrent(kid string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.byKID[kid]; !ok {
		return ErrNoSecret
	}
	k.current = kid
	return nil
}

// Current returns the signing secret.
func (k *Keychain) Current() (Secret, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	s, ok := k.byKID[k.current]
	if !ok {
		return Secret{}, ErrNoSecret
	}
	return s, nil
}

// ByKID returns a secret by key id, current or historical.
func (k *Keychain) ByKID(kid string) (Secret, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	s, ok := k.byKID[kid]
	return s, ok
}

// Remove drops a secret. Tokens signed with it can no longer be verified,
// so callers must only remove secrets older than the longest token TTL.
func (k *Keychain) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.current == kid {
		return // never drop the signing secret
	}
	delete(k.byKID, kid)
}

// Len reports how many secrets are installed.
func (k *Keychain) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.byKID)
}
