package benchmark

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultTicketLifetime is the lifetime advertised for issued tickets.
const DefaultTicketLifetime = 6 * time.Hour

var (
	// ErrTicketsDisabled is returned by a Ticketer that does not issue tickets.
	ErrTicketsDisabled = errors.New("session tickets are disabled")
	// ErrInvalidTicket is returned when a ticket cannot be decrypted.
	ErrInvalidTicket = errors.New("invalid session ticket")
)

// Ticketer produces and consumes session tickets on the server side.
type Ticketer interface {
	Enabled() bool
	Lifetime() time.Duration
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(ticket []byte) ([]byte, error)
}

// TicketerFactory makes a fresh Ticketer for a server. Name identifies the
// ticketer to the engine without calling New.
type TicketerFactory struct {
	Name string
	New  func() Ticketer
}

var (
	// AEADTickets issues tickets sealed with XChaCha20-Poly1305.
	AEADTickets = TicketerFactory{Name: "aead", New: NewAEADTicketer}
	// DisabledTickets never issues tickets.
	DisabledTickets = TicketerFactory{Name: "none", New: NoTickets}
)

type noTickets struct{}

// NoTickets returns a Ticketer that never issues tickets.
func NoTickets() Ticketer {
	return noTickets{}
}

func (noTickets) Enabled() bool           { return false }
func (noTickets) Lifetime() time.Duration { return 0 }

func (noTickets) Encrypt([]byte) ([]byte, error) {
	return nil, ErrTicketsDisabled
}

func (noTickets) Decrypt([]byte) ([]byte, error) {
	return nil, ErrTicketsDisabled
}

type aeadTicketer struct {
	aead     cipher.AEAD
	lifetime time.Duration
}

// NewAEADTicketer returns a Ticketer sealing tickets with XChaCha20-Poly1305
// under a random key.
func NewAEADTicketer() Ticketer {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		panic(err)
	}

	return &aeadTicketer{aead: aead, lifetime: DefaultTicketLifetime}
}

func (t *aeadTicketer) Enabled() bool           { return true }
func (t *aeadTicketer) Lifetime() time.Duration { return t.lifetime }

func (t *aeadTicketer) Encrypt(plain []byte) ([]byte, error) {
	nonce := make([]byte, t.aead.NonceSize(), t.aead.NonceSize()+len(plain)+t.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return t.aead.Seal(nonce, nonce, plain, nil), nil
}

func (t *aeadTicketer) Decrypt(ticket []byte) ([]byte, error) {
	if len(ticket) < t.aead.NonceSize()+t.aead.Overhead() {
		return nil, ErrInvalidTicket
	}

	nonce, sealed := ticket[:t.aead.NonceSize()], ticket[t.aead.NonceSize():]

	plain, err := t.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidTicket
	}

	return plain, nil
}
