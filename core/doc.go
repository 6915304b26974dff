// Package nus3 builds, sizes and reads NUS3 multi-track audio containers.
//
// A container is a fixed sequence of tagged sections:
//
//	NUS3      u32 total length - 8
//	AUDIINDX  u32 4, u32 entry count
//	TNID      u32 4n, n entry ids
//	NMOF      u32 4n, n absolute name offsets
//	ADOF      u32 8n, n (absolute payload offset, payload length) pairs
//	TNNM      u32 names length, NUL-terminated names
//	JUNK      u32 pad, pad zero bytes aligning PACK payloads to 16
//	PACK      u32 pack length, payloads padded to 16 bytes
//
// All integers are little-endian. Payloads are opaque; their audio encoding
// is never inspected.
//
// [EstimateSize] predicts the exact length [Build] will produce from names and
// sizes alone, so callers can reserve a buffer before any payload is read.
package nus3
