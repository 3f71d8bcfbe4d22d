package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/example/tubeview/internal/platform/secrets"
)

// ErrNoCredential is returned when no refresh token has been stored yet.
var ErrNoCredential = errors.New("auth: no stored credential")

// Credential is the long-lived grant persisted across restarts.
type Credential struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token"`
}

// Vault persists the Google refresh token sealed at rest. Losing the seal
// key invalidates the stored grant but nothing else; the user just signs in
// again.
type Vault struct {
	mu   sync.Mutex
	path string
	box  *secrets.Box
}

func NewVault(dir string, box *secrets.Box) (*Vault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("auth: create data dir: %w", err)
	}
	return &Vault{path: filepath.Join(dir, "credential.bin"), box: box}, nil
}

func (v *Vault) Store(cred Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	plain, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("auth: encode credential: %w", err)
	}
	sealed, err := v.box.Seal(plain)
	if err != nil {
		return fmt.Errorf("auth: seal credential: %w", err)
	}
	if err := renameio.WriteFile(v.path, sealed, 0o600); err != nil {
		return fmt.Errorf("auth: write credential: %w", err)
	}
	return nil
}

func (v *Vault) Load() (Credential, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sealed, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, fmt.Errorf("auth: read credential: %w", err)
	}
	plain, err := v.box.Open(sealed)
	if err != nil {
		// A failed unseal usually means the seal key changed. Treat the
		// grant as gone rather than erroring forever.
		return Credential{}, ErrNoCredential
	}
	var cred Credential
	if err := json.Unmarshal(plain, &cred); err != nil {
		return Credential{}, ErrNoCredential
	}
	return cred, nil
}

func (v *Vault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	err := os.Remove(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
