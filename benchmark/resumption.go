package benchmark

// ResumptionKind is the kind of session resumption used during a handshake.
type ResumptionKind int

const (
	// ResumptionNo performs a full handshake every time.
	ResumptionNo ResumptionKind = iota
	// ResumptionSessionID resumes using a server-side session cache.
	ResumptionSessionID
	// ResumptionTickets resumes using session tickets.
	ResumptionTickets
)

// AllResumptionKinds returns every resumption kind in its fixed order.
func AllResumptionKinds() []ResumptionKind {
	return []ResumptionKind{
		ResumptionNo, ResumptionSessionID, ResumptionTickets,
	}
}

// Label returns the user-facing label of the resumption kind. Labels are
// stored alongside historical results and must never change.
func (k ResumptionKind) Label() string {
	switch k {
	case ResumptionNo:
		return "no_resume"
	case ResumptionSessionID:
		return "session_id"
	case ResumptionTickets:
		return "tickets"
	default:
		return "unknown"
	}
}

func (k ResumptionKind) String() string {
	return k.Label()
}

// Side is one end of a TLS connection.
type Side int

const (
	SideClient Side = iota
	SideServer
)

// AllSides returns both sides, client first.
func AllSides() []Side {
	return []Side{SideClient, SideServer}
}

func (s Side) String() string {
	if s == SideServer {
		return "server"
	}

	return "client"
}
