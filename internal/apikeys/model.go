package apikeys

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// KeyPrefix marks every secret key issued by the service.
	KeyPrefix     = "usely_sk_"
	secretBytes   = 16
	displayLength = 8
	maxNameLength = 64
)

// Key is a stored API key. The plaintext secret is never persisted.
type Key struct {
	ID         string
	AccountID  string
	Name       string
	Prefix     string
	Hash       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

func (k Key) Revoked() bool {
	return k.RevokedAt != nil
}

// View is the listing shape; it never carries the secret.
type View struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
}

func (k Key) View() View {
	return View{
		ID:         k.ID,
		Name:       k.Name,
		Prefix:     KeyPrefix + k.Prefix + "...",
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
	}
}

// Created is returned once, right after creation.
type Created struct {
	View
	Key string `json:"key"`
}

func hashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func wellFormed(raw string) bool {
	if len(raw) != len(KeyPrefix)+2*secretBytes || raw[:len(KeyPrefix)] != KeyPrefix {
		return false
	}
	_, err := hex.DecodeString(raw[len(KeyPrefix):])
	return err == nil
}
