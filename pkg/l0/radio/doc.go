// Package radio provides register access to the UHF transceiver through
// device-control exchanges.
package radio
