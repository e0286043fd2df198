package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/weiihann/tlsbench/benchmark"
)

const (
	defaultProvider = "gostd"

	// TicketsAEAD issues tickets sealed with XChaCha20-Poly1305.
	TicketsAEAD = "aead"
	// TicketsNone disables session tickets.
	TicketsNone = "none"

	checkTicketPayload = "tlsbench ticketer check"
)

// ErrNoParams is returned when a config cannot produce any parameter set.
var ErrNoParams = errors.New("suite: no cipher suites, versions or auth keys configured")

var providers = map[string]func() benchmark.Provider{
	defaultProvider: benchmark.StdlibProvider,
}

var ticketers = map[string]benchmark.TicketerFactory{
	TicketsAEAD: benchmark.AEADTickets,
	TicketsNone: benchmark.DisabledTickets,
}

// Config describes the benchmark suite to generate.
type Config struct {
	// Provider names the crypto provider under test.
	Provider string
	// CipherSuites are IANA cipher suite names as used by crypto/tls.
	CipherSuites []string
	// Versions are protocol versions, "1.2" or "1.3".
	Versions []string
	// AuthKeys are key type labels, or "fuzzing".
	AuthKeys []string
	// Tickets selects the server ticketer, "aead" or "none".
	Tickets string
	// SkipTransfer omits the bulk transfer benchmarks.
	SkipTransfer bool
}

// DefaultConfig returns the suite run when no suite file is given.
func DefaultConfig() *Config {
	return &Config{
		Provider: defaultProvider,
		CipherSuites: []string{
			"TLS_AES_128_GCM_SHA256",
			"TLS_AES_256_GCM_SHA384",
			"TLS_CHACHA20_POLY1305_SHA256",
			"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
			"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384",
		},
		Versions: []string{"1.2", "1.3"},
		AuthKeys: []string{"rsa2048", "ecdsa_p256", "ed25519", "fuzzing"},
		Tickets:  TicketsAEAD,
	}
}

// FixupAndValidate applies defaults and checks every entry can be resolved.
func (c *Config) FixupAndValidate() error {
	if c.Provider == "" {
		c.Provider = defaultProvider
	}
	if c.Tickets == "" {
		c.Tickets = TicketsAEAD
	}

	newProvider, ok := providers[c.Provider]
	if !ok {
		return fmt.Errorf("suite: unknown provider %q", c.Provider)
	}
	if _, ok := ticketers[c.Tickets]; !ok {
		return fmt.Errorf("suite: unknown ticketer %q", c.Tickets)
	}

	if len(c.CipherSuites) == 0 || len(c.Versions) == 0 || len(c.AuthKeys) == 0 {
		return ErrNoParams
	}

	provider := newProvider()
	for _, name := range c.CipherSuites {
		if _, ok := provider.CipherSuite(name); !ok {
			return fmt.Errorf("suite: provider %s does not offer %s", c.Provider, name)
		}
	}
	for _, v := range c.Versions {
		if _, err := benchmark.ParseProtocolVersion(v); err != nil {
			return fmt.Errorf("suite: %w", err)
		}
	}
	for _, k := range c.AuthKeys {
		if _, err := benchmark.ParseAuthKeySource(k); err != nil {
			return fmt.Errorf("suite: %w", err)
		}
	}

	return nil
}

// CheckTicketer makes a Ticketer from f and checks that it behaves as
// advertised: an enabled ticketer must open its own tickets and reject
// tampered ones, a disabled one must refuse to issue any.
func CheckTicketer(f benchmark.TicketerFactory) error {
	if f.New == nil {
		return fmt.Errorf("suite: ticketer %q has no constructor", f.Name)
	}

	tk := f.New()
	payload := []byte(checkTicketPayload)

	if !tk.Enabled() {
		if _, err := tk.Encrypt(payload); !errors.Is(err, benchmark.ErrTicketsDisabled) {
			return fmt.Errorf("suite: disabled ticketer %q issued a ticket", f.Name)
		}

		return nil
	}

	if tk.Lifetime() <= 0 {
		return fmt.Errorf("suite: ticketer %q has no ticket lifetime", f.Name)
	}

	ticket, err := tk.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("suite: ticketer %q: encrypt: %w", f.Name, err)
	}

	plain, err := tk.Decrypt(ticket)
	if err != nil {
		return fmt.Errorf("suite: ticketer %q: decrypt: %w", f.Name, err)
	}
	if !bytes.Equal(plain, payload) {
		return fmt.Errorf("suite: ticketer %q does not round-trip tickets", f.Name)
	}

	ticket[len(ticket)-1] ^= 0xff
	if _, err := tk.Decrypt(ticket); err == nil {
		return fmt.Errorf("suite: ticketer %q accepts tampered tickets", f.Name)
	}

	return nil
}

// Load parses and validates the provided buffer b as a suite file body.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)

	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("suite: decode: %w", err)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads, parses, and validates the suite file f.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}

	return Load(b)
}
