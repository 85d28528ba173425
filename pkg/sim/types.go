// Package sim provides simulated collaborators of the OBC: the real-time
// clock, flash and EEPROM storage, and the EPS and PAY boards on the CAN bus.
package sim

import (
	fx "github.com/robotalks/obc.go/pkg/framework"
)

// State is a snapshot of observable properties.
type State map[string]interface{}

// Object is a simulated component.
type Object interface {
	fx.Named
	State() State
}

// ObjectsChangeListener listens for object changes.
type ObjectsChangeListener interface {
	ObjectsChanged(...Object)
}

// ObjectsChangeSubscriber subscribes objects change notifications.
type ObjectsChangeSubscriber interface {
	SubscribeObjectsChange(ObjectsChangeListener)
}
