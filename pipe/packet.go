package pipe

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/mausim/phv"
)

// Packet is the header words of one packet by gress, keyed by Phv word.
type Packet struct {
	Ingress map[int]uint32 `json:"ingress,omitempty"`
	Egress  map[int]uint32 `json:"egress,omitempty"`
}

// LoadPackets reads a JSON array of packets.
func LoadPackets(path string) ([]Packet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read packet file: %w", err)
	}

	var packets []Packet
	if err := json.Unmarshal(data, &packets); err != nil {
		return nil, fmt.Errorf("failed to parse packets: %w", err)
	}

	return packets, nil
}

// Phvs builds the register files of the packet. A gress without words
// yields nil.
func (pk Packet) Phvs(size int) (ingress, egress *phv.Phv) {
	return build(pk.Ingress, size), build(pk.Egress, size)
}

func build(words map[int]uint32, size int) *phv.Phv {
	if words == nil {
		return nil
	}

	p := phv.New(size)
	for i, v := range words {
		p.Set(i, v)
	}

	return p
}
