package book

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

type OrderType int

const (
	Limit OrderType = iota
	Market
	IOC
	FOK
	PostOnly
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	case PostOnly:
		return "post_only"
	default:
		return "limit"
	}
}

type Status int

const (
	Active Status = iota
	Filled
	Cancelled
	Replaced
)

func (s Status) String() string {
	switch s {
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Replaced:
		return "replaced"
	default:
		return "active"
	}
}

// Order is a pure domain entity. ID, Owner and Side are fixed at creation;
// Filled only grows. A price change is never done in place: the book replaces
// the order and the replacement re-enters the FIFO at the tail.
type Order struct {
	ID     uint64
	Owner  uint64
	Price  int64
	Qty    int64
	Filled int64
	SeqID  uint64

	Side   Side
	Type   OrderType
	Status Status

	// arrival is the book-local admission counter used for time priority.
	arrival uint64

	level *PriceLevel
	next  *Order
	prev  *Order
}

func (o *Order) Remaining() int64 {
	return o.Qty - o.Filled
}

// Next allows read-only traversal of a price level's queue.
func (o *Order) Next() *Order {
	return o.next
}
