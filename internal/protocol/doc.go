// Package protocol implements the AI monitor binary wire protocol.
//
// This package handles parsing, validation, and construction of the frames
// exchanged between the monitor TCP server and its debugging clients, and of
// the business packets those frames carry.
//
// # Frame Format
//
// Each frame is self-delimited (multi-byte fields big-endian):
//
//	[0:4]   magic 0x54594149 ("TYAI")
//	[4]     control byte: direction in the low 2 bits, 6 reserved bits
//	[5]     version (high 4 bits) | iv flag (1 bit) | security level (3 bits)
//	[6]     frag flag (high 2 bits) | 6 reserved bits
//	[7:9]   sequence
//	[9:13]  payload length
//	[13:]   payload
//
// Direction 0 is device-to-cloud upload, 1 is cloud-to-device download, 2 is
// device-to-client acknowledgement. Frames arriving from clients must use
// direction 2, version 1, no IV, security level 0 and no fragmentation.
//
// # Stream Parsing
//
// ParseStream locates frames inside an arbitrary byte stream. The magic acts
// as a synchronization marker: garbage before a magic is discarded, a corrupt
// candidate header is skipped past its magic and the scan continues, and an
// incomplete frame consumes nothing until the remaining bytes arrive. Handler
// errors are contained to the frame that caused them.
//
// # Business Packets
//
// The frame payload is a packet: a type byte (ping, pong, the stream types,
// event, custom-log), an optional attribute block of id/type/length/value
// triples, and a length-prefixed data section. Event packets additionally
// prefix their data with an event head (sub-type + length); the monitor
// understands the filter sub-type (8-byte subscription bitmap) and
// acknowledges every event with the echoed head plus a result code.
//
// # Subscription Bitmaps
//
// TypeSet mirrors the wire bitmap: bit N subscribed means payload type N is
// relayed to that client. Only the relay types (video, audio, image, file,
// text, event, custom-log) can be subscribed; other bits are ignored.
//
// # Thread Safety
//
// All parsing and construction functions are stateless and safe for
// concurrent use. TypeSet is not synchronized; each session owns its set.
package protocol
