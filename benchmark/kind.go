package benchmark

// Kind specifies which functionality is being benchmarked.
//
// The zero value is a handshake without resumption.
type Kind struct {
	transfer   bool
	resumption ResumptionKind
}

// Handshake returns a Kind that performs the handshake and exits.
func Handshake(resumption ResumptionKind) Kind {
	return Kind{resumption: resumption}
}

// Transfer returns a Kind that performs a full handshake and then transfers
// TransferSize bytes of application data.
func Transfer() Kind {
	return Kind{transfer: true}
}

// TransferSize is the amount of data moved by transfer benchmarks.
const TransferSize = 1024 * 1024

// IsTransfer reports whether k is a transfer benchmark.
func (k Kind) IsTransfer() bool {
	return k.transfer
}

// ResumptionKind returns the resumption kind used in the handshake part of
// the benchmark. Transfers never resume.
func (k Kind) ResumptionKind() ResumptionKind {
	if k.transfer {
		return ResumptionNo
	}

	return k.resumption
}

func (k Kind) String() string {
	if k.transfer {
		return "transfer"
	}

	return "handshake_" + k.resumption.Label()
}
