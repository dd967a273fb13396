package book

import "fmt"

// PriceLevel is the FIFO queue of resting orders at a single price. The queue
// is an intrusive doubly linked list: each Order carries its own links plus a
// back-pointer to the level, so cancels unlink in O(1) without scanning.
type PriceLevel struct {
	Price int64

	head *Order
	tail *Order

	// TotalQty is the aggregate remaining quantity across the queue.
	TotalQty   int64
	OrderCount int
}

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
	} else {
		p.tail.next = o
		o.prev = p.tail
	}
	p.tail = o
	o.level = p
	p.TotalQty += o.Remaining()
	p.OrderCount++
}

// unlink removes an order from anywhere in the queue. The order's remaining
// quantity must still be accurate when this is called.
func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next, o.prev, o.level = nil, nil, nil
	p.TotalQty -= o.Remaining()
	p.OrderCount--
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

func (p *PriceLevel) Head() *Order {
	return p.head
}

func (p *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%d, Orders=%d, TotalQty=%d}", p.Price, p.OrderCount, p.TotalQty)
}
