package bmotd

import "errors"

// Wire format sizes for the RakNet unconnected ping exchange.
const (
	// RequestSize is the length of the unconnected ping datagram:
	// 1 byte packet ID, 8 byte ping time, 16 byte offline magic, 8 byte client GUID.
	RequestSize = 33

	// ReplyHeaderSize is the length of the unconnected pong header that
	// precedes the status payload: 1 byte packet ID, 8 byte echoed time,
	// 16 byte offline magic, 8 byte server GUID, 2 byte payload length.
	ReplyHeaderSize = 35
)

// unconnectedPing is the request sent to the server. The ping time and
// client GUID are fixed values, the server echoes them back but this client
// never inspects the echo.
var unconnectedPing = [RequestSize]byte{
	0x01,                                           // ID_UNCONNECTED_PING
	0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xC1, 0x1D, // ping time
	0x00, 0xFF, 0xFF, 0x00, 0xFE, 0xFE, 0xFE, 0xFE, // offline message magic
	0xFD, 0xFD, 0xFD, 0xFD, 0x12, 0x34, 0x56, 0x78,
	0x9C, 0x18, 0x28, 0x7F, 0xE1, 0x64, 0x89, 0x8D, // client GUID
}

// ErrMalformedReply is returned by extractPayload when a datagram is too
// short to carry anything beyond the unconnected pong header.
var ErrMalformedReply = errors.New("reply shorter than unconnected pong header")

// buildRequest returns a fresh copy of the unconnected ping datagram.
func buildRequest() []byte {
	req := unconnectedPing
	return req[:]
}

// extractPayload strips the unconnected pong header from a received
// datagram and returns the status payload byte-for-byte. The header fields
// themselves are not verified against the request.
func extractPayload(reply []byte) ([]byte, error) {
	if len(reply) <= ReplyHeaderSize {
		return nil, ErrMalformedReply
	}

	return reply[ReplyHeaderSize:], nil
}
