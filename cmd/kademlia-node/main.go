// Command kademlia-node starts a single Kademlia DHT participant: it
// loads (or creates) its persisted identity, binds a UDP socket, joins
// the overlay through an optional bootstrap peer, and drops into the
// interactive command prompt.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/kademlia-dht/kadnode/kademlia"
)

func main() {
	name := flag.String("name", "node", "local identification name; used for the metadata file")
	ip := flag.String("ip", "127.0.0.1", "UDP listen ip")
	port := flag.Int("port", 0, "UDP listen port (required on first run for this name)")
	bootstrapIP := flag.String("bootstrap-ip", "", "optional bootstrap peer ip")
	bootstrapPort := flag.Int("bootstrap-port", 0, "optional bootstrap peer port")
	storagePath := flag.String("storage", "", "optional path for a disk-backed key/value store; defaults to in-memory")
	metricsAddr := flag.String("metrics-addr", "", "optional host:port to serve Prometheus metrics on")
	flag.Parse()

	md, err := kademlia.LoadOrCreateMetadata(*name, *port, *bootstrapIP, *bootstrapPort)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERR:", err)
		os.Exit(1)
	}

	var storage kademlia.Storage
	if *storagePath != "" {
		storage, err = kademlia.NewFileStorage(*storagePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERR:", err)
			os.Exit(1)
		}
	}

	id := kademlia.NewID(md.NodeID)
	me := kademlia.NewContact(id, net.JoinHostPort(*ip, strconv.Itoa(md.Port)))

	node, err := kademlia.NewNode(me, *ip, md.Port, storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERR starting node:", err)
		os.Exit(1)
	}
	defer node.Close()

	if md.BootstrapIP != "" && md.BootstrapPort != 0 {
		bootstrapAddr := net.JoinHostPort(md.BootstrapIP, strconv.Itoa(md.BootstrapPort))
		if err := node.Bootstrap(bootstrapAddr); err != nil {
			fmt.Fprintln(os.Stderr, "WARN bootstrap failed:", err)
		}
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", node.MetricsHandler())
		go func() {
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	fmt.Printf("node up: id=%s addr=%s\n", id.String(), node.LocalAddr())
	fmt.Println("commands: ping <ip:port> | store <key> <value> | get <key> | delete <key> | find <hex_id> | close")

	quit := make(chan struct{}, 1)
	cli := kademlia.NewCLI(node, os.Stdin, os.Stdout, func() { quit <- struct{}{} })
	if err := cli.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "ERR:", err)
	}
	<-quit
}
