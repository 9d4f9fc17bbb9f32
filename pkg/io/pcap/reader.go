// Package pcap turns captured network packets into metric vectors, from
// PCAP files or live interfaces.
package pcap

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// Reader reads packets and extracts per-packet feature vectors. It serves
// both as a baseline Reader (Read) and as a live tick Source (Next).
type Reader struct {
	handle    *pcap.Handle
	source    *gopacket.PacketSource
	extractor *FeatureExtractor
	isLive    bool
}

// NewFileReader creates a reader over a PCAP capture file.
func NewFileReader(filename string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, err
	}
	return newReader(handle, false), nil
}

// NewLiveReader creates a reader capturing from a network interface.
func NewLiveReader(iface string, snaplen int32, promisc bool, timeout time.Duration) (*Reader, error) {
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, err
	}
	return newReader(handle, true), nil
}

func newReader(handle *pcap.Handle, isLive bool) *Reader {
	return &Reader{
		handle:    handle,
		source:    gopacket.NewPacketSource(handle, handle.LinkType()),
		extractor: NewFeatureExtractor(),
		isLive:    isLive,
	}
}

// Read drains all packets into feature vectors. Only meaningful for file
// captures.
func (r *Reader) Read() ([][]float64, error) {
	if r.handle == nil {
		return nil, errors.New("pcap: reader not initialized")
	}

	var data [][]float64
	for packet := range r.source.Packets() {
		if features := r.extractor.Extract(packet); features != nil {
			data = append(data, features)
		}
	}
	return data, nil
}

// Next returns the feature vector of the next decodable packet. File
// captures end with io.EOF; live captures block until a packet arrives.
func (r *Reader) Next(ctx context.Context) ([]float64, error) {
	if r.handle == nil {
		return nil, errors.New("pcap: reader not initialized")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		packet, err := r.source.NextPacket()
		if err != nil {
			return nil, err
		}
		if features := r.extractor.Extract(packet); features != nil {
			return features, nil
		}
	}
}

// Close releases the capture handle.
func (r *Reader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	return nil
}
