package kademlia

// wire.go defines the on-the-wire Message taxonomy and its codec: a
// deterministic, versioned, self-describing encoding of a single Message
// per UDP datagram.

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// protocolVersion is carried at the front of every frame so a future,
// incompatible wire format can be rejected by version-aware receivers
// rather than mis-decoded.
const protocolVersion byte = 1

// maxFrameSize is the soft limit this implementation enforces on inbound
// and outbound frames; larger frames are refused.
const maxFrameSize = 8 * 1024

// msgType enumerates the five RPC message kinds plus their responses.
type msgType string

const (
	msgPing          msgType = "PING"
	msgPong          msgType = "PONG"
	msgStore         msgType = "STORE"
	msgFindNode      msgType = "FIND_NODE"
	msgFindNodeResp  msgType = "FIND_NODE_RESPONSE"
	msgFindValue     msgType = "FIND_VALUE"
	msgFindValueResp msgType = "FIND_VALUE_RESPONSE"
)

// wireContact is Contact's on-wire representation: hex-encoded ID plus
// the "host:port" address. The in-memory scratch distance field never
// round-trips.
type wireContact struct {
	IDHex   string `json:"id"`
	Address string `json:"address"`
}

func toWireContact(c Contact) wireContact {
	return wireContact{IDHex: c.ID.String(), Address: c.Address}
}

func (w wireContact) toContact() (Contact, error) {
	if len(w.IDHex) != IDLength*2 {
		return Contact{}, fmt.Errorf("kademlia: invalid contact id length %d", len(w.IDHex))
	}
	id := NewID(w.IDHex)
	return Contact{ID: id, Address: w.Address}, nil
}

// message is the envelope every frame carries: a sender contact, a
// request_id correlating requests and responses — keyed by a fresh id
// per request rather than by sender address, to avoid races between
// concurrent lookups hitting the same peer — and a type-dependent
// payload.
type message struct {
	Version   byte        `json:"version"`
	Type      msgType     `json:"type"`
	RequestID string      `json:"request_id"`
	Sender    wireContact `json:"sender"`

	// STORE (key and value); FIND_VALUE and FIND_VALUE_RESPONSE (key)
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`

	// FIND_NODE / FIND_NODE_RESPONSE
	Target string `json:"target,omitempty"`

	// FIND_NODE_RESPONSE / FIND_VALUE_RESPONSE
	Nodes []wireContact `json:"nodes,omitempty"`

	// FIND_VALUE_RESPONSE
	HasValue bool   `json:"has_value,omitempty"`
	FoundVal string `json:"found_value,omitempty"`
}

// newRequestID generates a fresh correlation id for an outbound request.
func newRequestID() string {
	return uuid.New().String()
}

// encode marshals m deterministically, prefixed with the protocol version.
// Frames exceeding maxFrameSize are rejected rather than sent.
func encode(m message) ([]byte, error) {
	m.Version = protocolVersion
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, protocolVersion)
	frame = append(frame, body...)
	if len(frame) > maxFrameSize {
		return nil, fmt.Errorf("kademlia: frame too large (%d > %d)", len(frame), maxFrameSize)
	}
	return frame, nil
}

// decode parses a frame produced by encode. Unknown protocol versions are
// rejected rather than mis-interpreted.
func decode(frame []byte) (message, error) {
	var m message
	if len(frame) == 0 {
		return m, fmt.Errorf("kademlia: empty frame")
	}
	if len(frame) > maxFrameSize {
		return m, fmt.Errorf("kademlia: frame too large (%d > %d)", len(frame), maxFrameSize)
	}
	version := frame[0]
	if version != protocolVersion {
		return m, fmt.Errorf("kademlia: unsupported protocol version %d", version)
	}
	if err := json.Unmarshal(frame[1:], &m); err != nil {
		return m, err
	}
	return m, nil
}
