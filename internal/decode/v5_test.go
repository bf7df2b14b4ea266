package decode

import (
	"encoding/binary"
	"net"
	"testing"
)

func buildV5Packet(count int) []byte {
	packet := make([]byte, v5HeaderSize+count*v5RecordSize)
	binary.BigEndian.PutUint16(packet[0:2], 5)
	binary.BigEndian.PutUint16(packet[2:4], uint16(count))
	binary.BigEndian.PutUint32(packet[4:8], 1000) // sysUpTime
	binary.BigEndian.PutUint32(packet[8:12], 1700000000)

	for i := 0; i < count; i++ {
		rec := packet[v5HeaderSize+i*v5RecordSize : v5HeaderSize+(i+1)*v5RecordSize]
		copy(rec[0:4], net.ParseIP("192.168.1.10").To4())
		copy(rec[4:8], net.ParseIP("10.0.0.50").To4())
		binary.BigEndian.PutUint32(rec[16:20], 100) // dPkts
		binary.BigEndian.PutUint32(rec[20:24], 150000)
		binary.BigEndian.PutUint16(rec[32:34], 443)
		binary.BigEndian.PutUint16(rec[34:36], 54321)
		rec[38] = 6 // protocol
	}
	return packet
}

func TestV5HandlerDecodesRecords(t *testing.T) {
	h := NewV5Handler()
	peer := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 2055}

	records, err := h.Decode(buildV5Packet(2), peer)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	r := records[0]
	if r.IPv4SrcAddr.String() != "192.168.1.10" {
		t.Errorf("IPv4SrcAddr = %s, want 192.168.1.10", r.IPv4SrcAddr)
	}
	if r.IPv4DstAddr.String() != "10.0.0.50" {
		t.Errorf("IPv4DstAddr = %s, want 10.0.0.50", r.IPv4DstAddr)
	}
	if r.SrcPort == nil || *r.SrcPort != 443 {
		t.Errorf("SrcPort = %v, want 443", r.SrcPort)
	}
	if r.Protocol == nil || *r.Protocol != 6 {
		t.Errorf("Protocol = %v, want 6", r.Protocol)
	}
	if r.Dpkts == nil || *r.Dpkts != 100 {
		t.Errorf("Dpkts = %v, want 100", r.Dpkts)
	}
	if r.IPProtocolVersion == nil || *r.IPProtocolVersion != 4 {
		t.Errorf("IPProtocolVersion = %v, want 4", r.IPProtocolVersion)
	}
	if r.Version != 5 {
		t.Errorf("Version = %d, want 5", r.Version)
	}
}

func TestV5HandlerRejectsWrongVersion(t *testing.T) {
	h := NewV5Handler()
	packet := buildV5Packet(1)
	binary.BigEndian.PutUint16(packet[0:2], 9)

	_, err := h.Decode(packet, &net.UDPAddr{})
	if err == nil {
		t.Fatal("expected error for mismatched version, got nil")
	}
}

func TestV5HandlerRejectsShortPayload(t *testing.T) {
	h := NewV5Handler()
	packet := buildV5Packet(1)
	truncated := packet[:v5HeaderSize+10]

	_, err := h.Decode(truncated, &net.UDPAddr{})
	if err == nil {
		t.Fatal("expected error for truncated payload, got nil")
	}
}
