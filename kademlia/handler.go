package kademlia

// handler.go: inbound message dispatch. On every inbound message
// the sender is first inserted into the routing table, then the message
// is routed either to the pending-request table (responses) or to a
// request handler (PING, STORE, FIND_NODE, FIND_VALUE).

import "net"

// onMessage is installed as the Transport's receive callback.
func (n *Node) onMessage(m message, src *net.UDPAddr) {
	if n.metrics != nil {
		n.metrics.inboundByType.WithLabelValues(string(m.Type)).Inc()
	}

	if sender, err := m.Sender.toContact(); err == nil {
		n.routingTable.Insert(sender)
	}

	switch m.Type {
	case msgPong, msgFindNodeResp, msgFindValueResp:
		n.rpc.deliver(m)
	case msgPing:
		n.handlePing(m, src)
	case msgStore:
		n.handleStore(m, src)
	case msgFindNode:
		n.handleFindNode(m, src)
	case msgFindValue:
		n.handleFindValue(m, src)
	default:
		// Unknown type: ignore. Decode already succeeded, so this isn't
		// counted as a decode error.
	}
}

func (n *Node) handlePing(m message, src *net.UDPAddr) {
	reply := message{Type: msgPong, RequestID: m.RequestID, Sender: toWireContact(n.me)}
	if err := n.transport.send(src, reply); err != nil {
		log().WithError(err).Warn("failed to send PONG")
		return
	}
	n.countOutbound(msgPong)
}

func (n *Node) handleStore(m message, src *net.UDPAddr) {
	if m.Key == "" {
		return
	}
	if err := n.storage.Store(m.Key, m.Value); err != nil {
		n.metrics.storageErrors.WithLabelValues("store").Inc()
		log().WithError(err).WithField("key", m.Key).Error("inbound STORE dropped: storage error")
		// No negative ack exists in this protocol.
		return
	}
	log().WithFields(map[string]interface{}{"key": m.Key, "from": m.Sender.Address}).Info("stored value from peer")
}

func (n *Node) handleFindNode(m message, src *net.UDPAddr) {
	target := NewID(m.Target)
	contacts := n.routingTable.FindClosestContacts(target, bucketSize)
	reply := message{
		Type:      msgFindNodeResp,
		RequestID: m.RequestID,
		Sender:    toWireContact(n.me),
		Target:    m.Target,
		Nodes:     toWireContacts(contacts),
	}
	if err := n.transport.send(src, reply); err != nil {
		log().WithError(err).Warn("failed to send FIND_NODE_RESPONSE")
		return
	}
	n.countOutbound(msgFindNodeResp)
}

func (n *Node) handleFindValue(m message, src *net.UDPAddr) {
	reply := message{
		Type:      msgFindValueResp,
		RequestID: m.RequestID,
		Sender:    toWireContact(n.me),
		Key:       m.Key,
	}
	if val, ok, err := n.storage.Get(m.Key); err != nil {
		// On storage error, answer as if the key were absent.
		n.metrics.storageErrors.WithLabelValues("get").Inc()
		log().WithError(err).WithField("key", m.Key).Error("inbound FIND_VALUE: storage error, answering as absent")
	} else if ok {
		reply.HasValue = true
		reply.FoundVal = val
	}
	if !reply.HasValue {
		target := HashID(m.Key)
		reply.Nodes = toWireContacts(n.routingTable.FindClosestContacts(target, bucketSize))
	}
	if err := n.transport.send(src, reply); err != nil {
		log().WithError(err).Warn("failed to send FIND_VALUE_RESPONSE")
		return
	}
	n.countOutbound(msgFindValueResp)
}

func toWireContacts(contacts []Contact) []wireContact {
	out := make([]wireContact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toWireContact(c))
	}
	return out
}

func (n *Node) countOutbound(t msgType) {
	if n.metrics != nil {
		n.metrics.outboundByType.WithLabelValues(string(t)).Inc()
	}
}
