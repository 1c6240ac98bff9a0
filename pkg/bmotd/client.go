// Package bmotd queries Minecraft Bedrock servers for their status banner
// (MOTD) using the RakNet unconnected ping. A single fixed request datagram
// is sent to each resolved address of the target in turn, the first reply
// long enough to carry a status payload wins.
package bmotd

import (
	"context"
	"errors"
	"net"
	"time"
)

// Defaults applied by New.
const (
	// DefaultTimeout is the per-candidate receive timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultBufferSize bounds a single reply datagram. Status payloads are
	// small, longer replies are truncated by the receive call.
	DefaultBufferSize = 1024
)

// Client performs the unconnected ping exchange against one host/port pair.
// The zero values of Timeout and BufferSize are replaced with the package
// defaults by New. A Client holds no connection state, each query opens and
// closes its own sockets, so it is safe to reuse and to call from multiple
// goroutines.
type Client struct {
	// lookupIP resolves the host to candidate addresses, in the order they
	// will be tried. Defaults to the system resolver.
	lookupIP func(ctx context.Context, host string) ([]net.IPAddr, error)

	// Host is the server name or address passed to New.
	Host string

	// Timeout bounds the receive wait per candidate address, not the whole
	// exchange. Worst case wall-clock cost is Timeout times the number of
	// resolved candidates.
	Timeout time.Duration

	// Port is the server query port passed to New.
	Port uint16

	// BufferSize is the receive buffer length for a single reply datagram.
	BufferSize uint16
}

// New creates a Client for the given server with default timeout and
// buffer size.
func New(host string, port uint16) (*Client, error) {
	if host == "" {
		return nil, errors.New("empty host")
	}

	return &Client{
		Host:       host,
		Port:       port,
		Timeout:    DefaultTimeout,
		BufferSize: DefaultBufferSize,
		lookupIP: func(ctx context.Context, host string) ([]net.IPAddr, error) {
			return net.DefaultResolver.LookupIPAddr(ctx, host)
		},
	}, nil
}

// Query performs the blocking exchange and returns the raw status payload as
// a string, byte-for-byte as received. It fails with a *ResolveError if the
// host cannot be resolved, or with an *AttemptsError once every candidate
// address has been tried without a valid reply.
func (c *Client) Query() (string, error) {
	addrs, err := c.resolve()
	if err != nil {
		return "", err
	}

	reply, err := c.exchange(addrs)
	if err != nil {
		return "", err
	}

	payload, err := extractPayload(reply)
	if err != nil {
		return "", err
	}

	return string(payload), nil
}

// resolve turns the host into an ordered list of candidate addresses using
// the configured resolver. The lookup itself is bounded by the client
// timeout.
func (c *Client) resolve() ([]net.IPAddr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	addrs, err := c.lookupIP(ctx, c.Host)
	if err != nil {
		return nil, &ResolveError{Host: c.Host, Err: err}
	}

	return addrs, nil
}

// exchange tries each candidate in resolution order and returns the first
// reply longer than the pong header. Candidates are tried strictly in
// sequence, there is no retransmission and no backoff, moving to the next
// address is the only retry semantics.
func (c *Client) exchange(addrs []net.IPAddr) ([]byte, error) {
	for _, addr := range addrs {
		if reply := c.attempt(addr); reply != nil {
			return reply, nil
		}
	}

	return nil, &AttemptsError{Host: c.Host, Port: c.Port}
}

// attempt performs one send/receive pair against a single candidate. Any
// failure, from socket setup through a short or absent reply, makes the
// attempt return nil so the caller advances to the next candidate. The
// socket lives only for the duration of the attempt.
func (c *Client) attempt(addr net.IPAddr) []byte {
	network := "udp6"
	if addr.IP.To4() != nil {
		network = "udp4"
	}

	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		// Address family not available locally, not fatal.
		return nil
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetReadDeadline(time.Now().Add(c.Timeout)); err != nil {
		return nil
	}

	dst := &net.UDPAddr{IP: addr.IP, Port: int(c.Port), Zone: addr.Zone}
	if _, err := conn.WriteToUDP(buildRequest(), dst); err != nil {
		return nil
	}

	// Exactly one receive per candidate. The source address is recorded by
	// ReadFromUDP but deliberately not checked against dst, any datagram
	// arriving within the deadline is accepted.
	buf := make([]byte, c.BufferSize)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil || n <= ReplyHeaderSize {
		return nil
	}

	return buf[:n]
}

// Query is a convenience wrapper that performs a single blocking exchange
// with default settings.
func Query(host string, port uint16) (string, error) {
	client, err := New(host, port)
	if err != nil {
		return "", err
	}

	return client.Query()
}
