package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAEADTicketer(t *testing.T) {
	tk := NewAEADTicketer()
	require.True(t, tk.Enabled())
	assert.Equal(t, DefaultTicketLifetime, tk.Lifetime())

	plain := []byte("resumption secret")
	ticket, err := tk.Encrypt(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(ticket), string(plain))

	got, err := tk.Decrypt(ticket)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	ticket[len(ticket)-1] ^= 0xff
	_, err = tk.Decrypt(ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	_, err = tk.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestAEADTicketerKeysDiffer(t *testing.T) {
	ticket, err := NewAEADTicketer().Encrypt([]byte("x"))
	require.NoError(t, err)

	_, err = NewAEADTicketer().Decrypt(ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestNoTickets(t *testing.T) {
	tk := NoTickets()
	assert.False(t, tk.Enabled())

	_, err := tk.Encrypt([]byte("x"))
	assert.ErrorIs(t, err, ErrTicketsDisabled)
	_, err = tk.Decrypt([]byte("x"))
	assert.ErrorIs(t, err, ErrTicketsDisabled)
}

func TestTicketerFactories(t *testing.T) {
	assert.Equal(t, "aead", AEADTickets.Name)
	assert.True(t, AEADTickets.New().Enabled())

	assert.Equal(t, "none", DisabledTickets.Name)
	assert.False(t, DisabledTickets.New().Enabled())
}
