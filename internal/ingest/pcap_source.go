package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/InfraSecConsult/ot-asset-reconciler/lib/helper"
	"github.com/InfraSecConsult/ot-asset-reconciler/lib/model"
)

// industrialPorts maps well-known OT protocol ports to the protocol name
// reported on the discovery record. Only destination ports are checked; a
// device talking TO port 502 marks the responder as the Modbus endpoint.
var industrialPorts = map[uint16]string{
	102:   "S7comm",
	502:   "Modbus TCP",
	2222:  "EtherNet/IP",
	4840:  "OPC UA",
	20000: "DNP3",
	34962: "PROFINET",
	34964: "PROFINET",
	44818: "EtherNet/IP",
	47808: "BACnet",
}

// observedDevice accumulates what a capture reveals about one IP endpoint.
type observedDevice struct {
	ip        string
	mac       string
	protocols *model.Set
	firstSeen time.Time
	lastSeen  time.Time
}

// ReadPCAPFile builds a discovery source from a packet capture: one row per
// observed private IP endpoint, carrying MAC, seen window and any industrial
// protocols inferred from ports. Public addresses are skipped; upstream
// internet noise is not plant inventory.
func ReadPCAPFile(path string) (*Source, error) {
	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}

	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap: %w", err)
	}
	defer handle.Close()

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetSource.DecodeOptions.Lazy = true
	packetSource.DecodeOptions.NoCopy = true

	devices := map[string]*observedDevice{}
	for packet := range packetSource.Packets() {
		timestamp := packet.Metadata().Timestamp
		var srcMAC, dstMAC string
		if eth := packet.Layer(layers.LayerTypeEthernet); eth != nil {
			e := eth.(*layers.Ethernet)
			srcMAC = helper.NormalizeMAC(e.SrcMAC.String())
			dstMAC = helper.NormalizeMAC(e.DstMAC.String())
		}

		ipLayer := packet.Layer(layers.LayerTypeIPv4)
		if ipLayer == nil {
			continue
		}
		ip := ipLayer.(*layers.IPv4)
		src := observe(devices, ip.SrcIP, srcMAC, timestamp)
		dst := observe(devices, ip.DstIP, dstMAC, timestamp)

		var dstPort uint16
		if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
			dstPort = uint16(tcpLayer.(*layers.TCP).DstPort)
		} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
			dstPort = uint16(udpLayer.(*layers.UDP).DstPort)
		}
		if proto, ok := industrialPorts[dstPort]; ok {
			if dst != nil {
				dst.protocols.Add(proto)
			}
			if src != nil {
				src.protocols.Add(proto)
			}
		}
	}

	sourceID := filepath.Base(path)
	ips := make([]string, 0, len(devices))
	for ip := range devices {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	rows := make([]model.RawRecord, 0, len(devices))
	for i, ip := range ips {
		dev := devices[ip]
		fields := map[string]string{
			"ip_address":  dev.ip,
			"mac_address": dev.mac,
			"first_seen":  dev.firstSeen.UTC().Format(time.RFC3339),
			"last_seen":   dev.lastSeen.UTC().Format(time.RFC3339),
		}
		if dev.protocols.Size() > 0 {
			fields["protocol"] = dev.protocols.ToString()
		}
		rows = append(rows, model.RawRecord{
			Fields: fields,
			Source: model.SourceRef{SourceID: sourceID, RowIndex: i},
		})
	}

	return &Source{SourceID: sourceID, Checksum: checksum, Rows: rows}, nil
}

func observe(devices map[string]*observedDevice, ip net.IP, mac string, ts time.Time) *observedDevice {
	if ip == nil || ip.IsMulticast() || ip.Equal(net.IPv4bcast) {
		return nil
	}
	addr := ip.String()
	if !helper.IsPrivateIP(addr) {
		return nil
	}
	dev, exists := devices[addr]
	if !exists {
		dev = &observedDevice{
			ip:        addr,
			protocols: model.NewSet(),
			firstSeen: ts,
			lastSeen:  ts,
		}
		devices[addr] = dev
	}
	if mac != "" && dev.mac == "" && mac != "ff:ff:ff:ff:ff:ff" {
		dev.mac = mac
	}
	if ts.Before(dev.firstSeen) {
		dev.firstSeen = ts
	}
	if ts.After(dev.lastSeen) {
		dev.lastSeen = ts
	}
	return dev
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
