// Package kademlia implements a Kademlia distributed hash table node:
// 160-bit identifiers under the XOR metric, k-bucket routing with LRU
// eviction, a UDP RPC layer correlating requests to responses by a fresh
// id per request, and the iterative lookup algorithm that drives both
// node discovery (FIND_NODE) and value retrieval (FIND_VALUE).
//
// # Components
//
//   - id.go, contact.go      — 160-bit identifiers, XOR distance, common
//     prefix length, and the (id, address) Contact value type.
//   - bucket.go, routingtable.go — bounded k-buckets and the 160-bucket
//     routing table that indexes them by common-prefix length from the
//     local identity.
//   - wire.go                — the on-wire Message taxonomy and its
//     versioned, deterministic codec.
//   - transport.go            — UDP bind/send/receive, one message per
//     datagram.
//   - rpc.go                  — request/response correlation by
//     request_id, with per-request timeouts.
//   - handler.go              — inbound message dispatch: learn the
//     sender, then answer PING/STORE/FIND_NODE/FIND_VALUE.
//   - lookup.go                — the iterative, alpha-parallel lookup
//     that underlies both node and value lookups.
//   - node.go                  — the façade binding one identity to a
//     routing table, transport, and storage handle; Ping/Store/FindValue/
//     Bootstrap.
//   - storage.go, metadata.go — the storage contract (in-memory and
//     file-backed implementations) and the persisted node identity file.
//   - cli.go                   — the interactive command prompt.
//   - logger.go, metrics.go    — the ambient logging and metrics sinks.
//
// # Non-goals
//
// No signed messages or Sybil defense, no NAT traversal, no replication
// or refresh timers beyond what's implemented here, no explicit
// partition handling beyond RPC-level timeouts (a timed-out request is
// not retried; the peer is treated as unreachable), and no strong
// cross-replica consistency for stored values.
package kademlia
