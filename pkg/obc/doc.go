// Package obc is the command set of the on-board computer: clock and
// memory access, housekeeping block collection from the EPS and PAY
// subsystems over CAN, and control of periodic collection.
//
// The hardware behind the commands is reached through the Clock, Memory and
// Bus interfaces.
package obc
