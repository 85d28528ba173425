package comm

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

// Hub implements l1.Registrar for connection oriented transports where
// several ground clients may attach at once. Events go to every client.
type Hub struct {
	handler l1.CommandHandler
	clients map[*Registrar]struct{}
	lock    sync.RWMutex
}

// SetHandler sets the handler of commands from all clients.
func (h *Hub) SetHandler(handler l1.CommandHandler) {
	h.lock.Lock()
	h.handler = handler
	h.lock.Unlock()
}

// HandleCommand implements l1.CommandHandler.
func (h *Hub) HandleCommand(ctx context.Context, cmd l1.Command) {
	h.lock.RLock()
	handler := h.handler
	h.lock.RUnlock()
	if handler == nil {
		handler = Unsupported
	}
	handler.HandleCommand(ctx, cmd)
}

// Serve runs a client connection until it is closed or ctx is done.
func (h *Hub) Serve(ctx context.Context, rw PacketReadWriter) error {
	reg := &Registrar{Handler: h}
	reg.Init(rw)
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*Registrar]struct{})
	}
	h.clients[reg] = struct{}{}
	h.lock.Unlock()
	defer func() {
		h.lock.Lock()
		delete(h.clients, reg)
		h.lock.Unlock()
	}()
	return reg.pipe.Run(ctx)
}

// Clients returns the number of attached clients.
func (h *Hub) Clients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// SendEvent implements l1.Registrar.
func (h *Hub) SendEvent(ctx context.Context, msg msgs.Message) error {
	h.lock.RLock()
	regs := make([]*Registrar, 0, len(h.clients))
	for reg := range h.clients {
		regs = append(regs, reg)
	}
	h.lock.RUnlock()
	var errs fx.AggregatedError
	for _, reg := range regs {
		if err := reg.SendEvent(ctx, msg); err != nil {
			glog.Warningf("send %s: %v", msgs.Name(msg), err)
			errs.Add(err)
		}
	}
	return errs.Aggregate()
}
