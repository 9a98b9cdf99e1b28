// Package tr drives an IQRF TR transceiver module over its SPI link.
package tr

// The master clocks every exchange. Each Tick moves the transport by at most
// one byte, so the loop calling Tick decides the overall throughput while the
// byte interval keeps the module's SPI engine from being overrun.
//
// A frame on the wire is:
//
//	CMD | PTYPE | DATA[0..n) | CRCM | 0
//
// and the module answers byte by byte with:
//
//	x | x | DATA[0..n) | CRCS | SPISTAT
//
// PTYPE bit 7 set means the master writes into the module's COM buffer,
// cleared means the master reads n bytes the module reported as ready.
