package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "robolab"

// ErrNotLoggedIn is returned when no token is stored for a profile.
var ErrNotLoggedIn = errors.New("not logged in")

// Open returns a Vault backed by the system keyring. configDir holds the
// encrypted-file fallback.
func Open(configDir string) (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("robolab-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// Vault stores access tokens and the selected account per profile.
type Vault struct {
	ring keyring.Keyring
}

// NewVault wraps an opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

func tokenKey(profile string) string   { return "token:" + profile }
func accountKey(profile string) string { return "account:" + profile }

// Token returns the access token stored for profile.
func (v *Vault) Token(profile string) (string, error) {
	return v.get(tokenKey(profile))
}

// SetToken stores the access token for profile.
func (v *Vault) SetToken(profile, token string) error {
	return v.set(tokenKey(profile), token)
}

// Account returns the account ID chosen for profile at login.
func (v *Vault) Account(profile string) (string, error) {
	return v.get(accountKey(profile))
}

// SetAccount stores the account ID chosen for profile.
func (v *Vault) SetAccount(profile, accountID string) error {
	return v.set(accountKey(profile), accountID)
}

// Forget removes everything stored for profile. Missing entries are not an
// error.
func (v *Vault) Forget(profile string) error {
	for _, key := range []string{tokenKey(profile), accountKey(profile)} {
		if err := v.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("deleting credential %q: %w", key, err)
		}
	}
	return nil
}

// Session loads the token and account for profile. When no account was
// chosen explicitly it is read from the token.
func (v *Vault) Session(profile string) (Session, error) {
	token, err := v.Token(profile)
	if err != nil {
		return Session{}, err
	}

	accountID, err := v.Account(profile)
	if err != nil && !errors.Is(err, ErrNotLoggedIn) {
		return Session{}, err
	}
	if accountID == "" {
		claims, err := ParseToken(token)
		if err != nil {
			return Session{}, err
		}
		accountID = claims.AccountID
	}

	return Session{Profile: profile, Token: token, AccountID: accountID}, nil
}

func (v *Vault) get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (v *Vault) set(key, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}
