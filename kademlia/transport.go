package kademlia

// transport.go: UDP datagram bind/send/receive. One framed message per
// datagram. This file knows nothing about request/response
// correlation or routing-table semantics — that's rpc.go and handler.go.

import (
	"fmt"
	"net"
)

// Transport binds a single UDP socket and delivers decoded messages to a
// registered handler via a dedicated receive loop.
type Transport struct {
	conn        *net.UDPConn
	metrics     *metrics
	readStopped chan struct{}
}

// bindTransport opens a UDP socket on ip:port. Fails if the port is
// already in use.
func bindTransport(ip string, port int, m *metrics) (*Transport, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return nil, fmt.Errorf("kademlia: resolve %s:%d: %w", ip, port, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("kademlia: bind %s:%d: %w", ip, port, err)
	}
	return &Transport{conn: conn, metrics: m, readStopped: make(chan struct{})}, nil
}

// LocalAddr returns the bound local address.
func (t *Transport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// send is fire-and-forget: it returns only transport-level errors, never
// delivery confirmation.
func (t *Transport) send(dst *net.UDPAddr, m message) error {
	frame, err := encode(m)
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(frame, dst)
	return err
}

// sendTo resolves addr and sends m to it.
func (t *Transport) sendTo(addr string, m message) error {
	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	return t.send(dst, m)
}

// receiveLoop runs until the socket is closed, handing each decoded
// message to onMessage. Non-fatal decode errors are counted and dropped.
func (t *Transport) receiveLoop(onMessage func(message, *net.UDPAddr)) {
	defer close(t.readStopped)
	buf := make([]byte, maxFrameSize)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		m, err := decode(frame)
		if err != nil {
			t.metrics.decodeErrors.Inc()
			log().WithError(err).WithField("from", src.String()).Warn("dropped undecodable frame")
			continue
		}
		onMessage(m, src)
	}
}

// close shuts down the socket and waits briefly for the receive loop to
// observe it.
func (t *Transport) close() error {
	err := t.conn.Close()
	<-t.readStopped
	return err
}
