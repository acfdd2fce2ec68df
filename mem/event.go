package mem

// RequestKind tells why a request was issued.
type RequestKind int

// The kinds of requests.
const (
	RequestKindDemand RequestKind = iota
	RequestKindPrefetch
	RequestKindWriteBack
)

func (k RequestKind) String() string {
	switch k {
	case RequestKindDemand:
		return "demand"
	case RequestKindPrefetch:
		return "prefetch"
	case RequestKindWriteBack:
		return "write-back"
	default:
		return "unknown"
	}
}

// AccessEvent is the item passed to hooks when a level reports what happened
// to a request.
type AccessEvent struct {
	Level   string
	Address uint64
	Size    int
	IsRead  bool
	Kind    RequestKind
	Time    int
}
