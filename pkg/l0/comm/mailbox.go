package comm

// Mailbox is a single-slot, last-write-wins hand-off between the receive
// path and one consumer.
type Mailbox struct {
	ch chan []byte
}

// NewMailbox creates a Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ch: make(chan []byte, 1)}
}

// Put stores data, replacing any unconsumed item.
func (m *Mailbox) Put(data []byte) {
	for {
		select {
		case m.ch <- data:
			return
		default:
		}
		select {
		case <-m.ch:
		default:
		}
	}
}

// Take retrieves the item if available.
func (m *Mailbox) Take() ([]byte, bool) {
	select {
	case data := <-m.ch:
		return data, true
	default:
		return nil, false
	}
}

// Clear drops the unconsumed item.
func (m *Mailbox) Clear() {
	m.Take()
}

// C returns the chan to wait on.
func (m *Mailbox) C() <-chan []byte {
	return m.ch
}
