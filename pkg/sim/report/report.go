// Package report prints the changes of simulated objects as JSON lines.
package report

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/sim"
)

// Message is one line of the report.
type Message struct {
	Action string    `json:"action"`
	ID     string    `json:"id"`
	State  sim.State `json:"state,omitempty"`
}

// Actions
const (
	ActionReset  = "reset"
	ActionObject = "object"
)

// Adapter collects object changes and reports them once per loop iteration.
type Adapter struct {
	Writer io.Writer

	lock    sync.Mutex
	initial bool
	updated map[string]sim.Object
}

// NewAdapter creates the adapter writing to stdout.
func NewAdapter() *Adapter {
	return &Adapter{Writer: os.Stdout, initial: true}
}

// Subscribe is a helper to subscribe object changes.
func (a *Adapter) Subscribe(subs ...sim.ObjectsChangeSubscriber) *Adapter {
	for _, sub := range subs {
		sub.SubscribeObjectsChange(a)
	}
	return a
}

// ObjectsChanged implements ObjectsChangeListener.
func (a *Adapter) ObjectsChanged(objs ...sim.Object) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.updated == nil {
		a.updated = make(map[string]sim.Object)
	}
	for _, obj := range objs {
		a.updated[obj.Name()] = obj
	}
}

// AddToLoop implements LoopAdder.
func (a *Adapter) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvIdle, fx.ControlFunc(a.ReportChanges))
}

// ReportChanges is a controller to report changes.
func (a *Adapter) ReportChanges(cc fx.ControlContext) error {
	a.lock.Lock()
	var msgs []Message
	if a.initial {
		msgs = append(msgs, Message{Action: ActionReset})
		a.initial = false
	}
	names := make([]string, 0, len(a.updated))
	for name := range a.updated {
		names = append(names, name)
	}
	sort.Strings(names)
	objs := make([]sim.Object, 0, len(names))
	for _, name := range names {
		objs = append(objs, a.updated[name])
	}
	a.updated = nil
	a.lock.Unlock()

	for _, obj := range objs {
		msgs = append(msgs, Message{Action: ActionObject, ID: obj.Name(), State: obj.State()})
	}
	enc := json.NewEncoder(a.Writer)
	for n := range msgs {
		if err := enc.Encode(&msgs[n]); err != nil {
			glog.Warningf("report: %v", err)
			return nil
		}
	}
	return nil
}
