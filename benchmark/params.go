package benchmark

import (
	"crypto/tls"
	"fmt"
	"slices"
	"strings"
)

// KeyType is a concrete server authentication key type.
type KeyType int

const (
	KeyTypeRSA2048 KeyType = iota
	KeyTypeRSA3072
	KeyTypeRSA4096
	KeyTypeECDSAP256
	KeyTypeECDSAP384
	KeyTypeECDSAP521
	KeyTypeEd25519
)

var keyTypeLabels = map[KeyType]string{
	KeyTypeRSA2048:   "rsa2048",
	KeyTypeRSA3072:   "rsa3072",
	KeyTypeRSA4096:   "rsa4096",
	KeyTypeECDSAP256: "ecdsa_p256",
	KeyTypeECDSAP384: "ecdsa_p384",
	KeyTypeECDSAP521: "ecdsa_p521",
	KeyTypeEd25519:   "ed25519",
}

// Label returns the user-facing label of the key type.
func (k KeyType) Label() string {
	if l, ok := keyTypeLabels[k]; ok {
		return l
	}

	return "unknown"
}

func (k KeyType) String() string {
	return k.Label()
}

// IsRSA reports whether k is an RSA key.
func (k KeyType) IsRSA() bool {
	return k == KeyTypeRSA2048 || k == KeyTypeRSA3072 || k == KeyTypeRSA4096
}

// ParseKeyType parses a key type label.
func ParseKeyType(s string) (KeyType, error) {
	for k, l := range keyTypeLabels {
		if l == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown key type %q", s)
}

// FuzzingProviderLabel is the label of the fuzzing auth key source.
const FuzzingProviderLabel = "fuzzing"

// AuthKeySource is where the server gets its authentication keys from:
// either a concrete key type or the deterministic fuzzing provider.
type AuthKeySource struct {
	fuzzing bool
	keyType KeyType
}

// KeyTypeSource returns an AuthKeySource backed by a key of type k.
func KeyTypeSource(k KeyType) AuthKeySource {
	return AuthKeySource{keyType: k}
}

// FuzzingProvider returns the AuthKeySource of the fuzzing provider.
func FuzzingProvider() AuthKeySource {
	return AuthKeySource{fuzzing: true}
}

// ParseAuthKeySource parses a key type label or "fuzzing".
func ParseAuthKeySource(s string) (AuthKeySource, error) {
	if s == FuzzingProviderLabel {
		return FuzzingProvider(), nil
	}

	k, err := ParseKeyType(s)
	if err != nil {
		return AuthKeySource{}, err
	}

	return KeyTypeSource(k), nil
}

// IsFuzzingProvider reports whether a is the fuzzing provider.
func (a AuthKeySource) IsFuzzingProvider() bool {
	return a.fuzzing
}

// KeyType returns the key type, if a is backed by one.
func (a AuthKeySource) KeyType() (KeyType, bool) {
	if a.fuzzing {
		return 0, false
	}

	return a.keyType, true
}

func (a AuthKeySource) String() string {
	if a.fuzzing {
		return FuzzingProviderLabel
	}

	return a.keyType.Label()
}

// ProtocolVersion is a TLS protocol version as used by crypto/tls.
type ProtocolVersion uint16

const (
	VersionTLS12 ProtocolVersion = tls.VersionTLS12
	VersionTLS13 ProtocolVersion = tls.VersionTLS13
)

// ParseProtocolVersion parses "1.2" or "1.3".
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch s {
	case "1.2":
		return VersionTLS12, nil
	case "1.3":
		return VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported protocol version %q", s)
	}
}

// Short returns the version number without the protocol name, e.g. "1.3".
func (v ProtocolVersion) Short() string {
	return strings.TrimPrefix(v.String(), "TLS ")
}

func (v ProtocolVersion) String() string {
	return tls.VersionName(uint16(v))
}

// Provider is the set of cryptographic primitives a benchmark runs with.
// The engine resolves it by name.
type Provider struct {
	Name         string
	CipherSuites []uint16
}

// StdlibProvider returns the provider backed by crypto/tls and its secure
// cipher suites.
func StdlibProvider() Provider {
	p := Provider{Name: "gostd"}
	for _, cs := range tls.CipherSuites() {
		p.CipherSuites = append(p.CipherSuites, cs.ID)
	}

	return p
}

// CipherSuite looks up a cipher suite offered by p by its IANA name.
func (p Provider) CipherSuite(name string) (*tls.CipherSuite, bool) {
	for _, cs := range tls.CipherSuites() {
		if cs.Name == name && slices.Contains(p.CipherSuites, cs.ID) {
			return cs, true
		}
	}

	return nil, false
}

// Params are the parameters a benchmark runs with.
//
// Params are never modified after construction; benchmarks sharing a
// configuration each hold a copy.
type Params struct {
	provider    Provider
	ticketer    TicketerFactory
	authKey     AuthKeySource
	cipherSuite *tls.CipherSuite
	version     ProtocolVersion
	label       string
}

// NewParams creates a new set of benchmark params. Cross-field consistency
// (e.g. the cipher suite being usable with version) is the caller's
// responsibility.
func NewParams(
	provider Provider,
	ticketer TicketerFactory,
	authKey AuthKeySource,
	cipherSuite *tls.CipherSuite,
	version ProtocolVersion,
	label string,
) Params {
	return Params{
		provider:    provider,
		ticketer:    ticketer,
		authKey:     authKey,
		cipherSuite: cipherSuite,
		version:     version,
		label:       label,
	}
}

// Provider returns the crypto provider to test.
func (p Params) Provider() Provider { return p.provider }

// Ticketer returns the factory for the server's session ticket issuer. It
// is invoked by the engine, never by this package.
func (p Params) Ticketer() TicketerFactory { return p.ticketer }

// AuthKey returns where the server gets its authentication keys.
func (p Params) AuthKey() AuthKeySource { return p.authKey }

// CipherSuite returns the negotiated cipher suite.
func (p Params) CipherSuite() *tls.CipherSuite { return p.cipherSuite }

// Version returns the negotiated protocol version.
func (p Params) Version() ProtocolVersion { return p.version }

// Label returns a user-facing label that identifies the params.
func (p Params) Label() string { return p.label }
