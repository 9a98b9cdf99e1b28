// Package msgs defines the messages exchanged between a bridged driver
// and its remote peers.
//
// Peers send commands (send request, reset, program mode, polling,
// status query) and get exactly one reply per command, matched by the
// sequence number of the envelope. The driver side publishes events
// (tx result, rx frame) without sequence.
package msgs
