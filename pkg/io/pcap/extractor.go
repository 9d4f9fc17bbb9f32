package pcap

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FeatureExtractor converts packets into numeric feature vectors:
// [packet_size, inter_arrival_ms, protocol, src_port, dst_port].
type FeatureExtractor struct {
	lastSeen map[flowKey]int64 // flow -> last packet timestamp, ns
}

type flowKey struct {
	src, dst string
}

// NewFeatureExtractor creates an extractor with empty flow state.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{lastSeen: make(map[flowKey]int64)}
}

// FeatureNames returns the column names of extracted vectors.
func (e *FeatureExtractor) FeatureNames() []string {
	return []string{"packet_size", "inter_arrival_ms", "protocol", "src_port", "dst_port"}
}

// Extract returns the feature vector for packet, or nil for packets
// without a network layer.
func (e *FeatureExtractor) Extract(packet gopacket.Packet) []float64 {
	netLayer := packet.NetworkLayer()
	if netLayer == nil {
		return nil
	}

	size := float64(packet.Metadata().Length)

	flow := netLayer.NetworkFlow()
	key := flowKey{src: flow.Src().String(), dst: flow.Dst().String()}
	ts := packet.Metadata().Timestamp.UnixNano()

	var interArrivalMs float64
	if last, seen := e.lastSeen[key]; seen {
		interArrivalMs = float64(ts-last) / 1e6
	}
	e.lastSeen[key] = ts

	var protocol, srcPort, dstPort float64
	if tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		protocol = float64(layers.IPProtocolTCP)
		srcPort = float64(tcp.SrcPort)
		dstPort = float64(tcp.DstPort)
	} else if udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		protocol = float64(layers.IPProtocolUDP)
		srcPort = float64(udp.SrcPort)
		dstPort = float64(udp.DstPort)
	}

	return []float64{size, interArrivalMs, protocol, srcPort, dstPort}
}
