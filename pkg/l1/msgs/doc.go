// Package msgs provides the ground protocol and all message schemas.
package msgs

// The ground protocol is communicated between the OBC node and ground tools
// (console, monitor). Commands flow from the ground, events from the node.
//
// Producer: OBC node
// Consumer: ground tools
