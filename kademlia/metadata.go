package kademlia

// metadata.go: the persisted metadata file. Created on first
// initialization; every subsequent start reads it and writes it back with
// the port and bootstrap address in effect. Grounded on
// original_source/src/node_metadata.rs's load-or-create semantics: a
// supplied port always overrides the file's port (and is re-persisted),
// while the node_id always comes from the file once one exists.

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

var metadataNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Metadata is the node's persisted identity and bootstrap configuration.
type Metadata struct {
	Name          string `json:"name"`
	NodeID        string `json:"node_id"`
	Port          int    `json:"port"`
	BootstrapIP   string `json:"bootstrap_ip,omitempty"`
	BootstrapPort int    `json:"bootstrap_port,omitempty"`
}

// metadataPath returns the sanitized file path for name.
func metadataPath(name string) string {
	sanitized := metadataNameSanitizer.ReplaceAllString(name, "_")
	return sanitized + "_metadata"
}

// LoadOrCreateMetadata implements the load/create contract:
//   - if the file exists: node_id and name come from the file; a supplied
//     port (non-zero) overrides the file's port and is re-persisted;
//     bootstrap address/port are always taken from the arguments given.
//   - if the file does not exist: port must be non-zero (first-run with
//     no port is a fatal configuration error); a random node_id is
//     generated and the file is written.
func LoadOrCreateMetadata(name string, port int, bootstrapIP string, bootstrapPort int) (*Metadata, error) {
	path := metadataPath(name)

	existing, err := readMetadata(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("kademlia: read metadata %s: %w", path, err)
	}

	if existing != nil {
		md := &Metadata{
			Name:          existing.Name,
			NodeID:        existing.NodeID,
			Port:          existing.Port,
			BootstrapIP:   bootstrapIP,
			BootstrapPort: bootstrapPort,
		}
		if port != 0 {
			md.Port = port
		}
		if err := writeMetadata(path, md); err != nil {
			return nil, fmt.Errorf("kademlia: write metadata %s: %w", path, err)
		}
		return md, nil
	}

	if port == 0 {
		return nil, fmt.Errorf("kademlia: first run of %q requires a port", name)
	}
	md := &Metadata{
		Name:          name,
		NodeID:        NewRandomID().String(),
		Port:          port,
		BootstrapIP:   bootstrapIP,
		BootstrapPort: bootstrapPort,
	}
	if err := writeMetadata(path, md); err != nil {
		return nil, fmt.Errorf("kademlia: write metadata %s: %w", path, err)
	}
	return md, nil
}

func readMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var md Metadata
	if err := json.Unmarshal(b, &md); err != nil {
		return nil, fmt.Errorf("kademlia: malformed metadata file %s: %w", path, err)
	}
	return &md, nil
}

func writeMetadata(path string, md *Metadata) error {
	b, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
