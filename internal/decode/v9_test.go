package decode

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"
)

func v9Header(sourceID uint32) []byte {
	h := make([]byte, v9HeaderSize)
	binary.BigEndian.PutUint16(h[0:2], 9)
	binary.BigEndian.PutUint32(h[4:8], 1000)       // sysUpTime
	binary.BigEndian.PutUint32(h[8:12], 1700000000) // unixSecs
	binary.BigEndian.PutUint32(h[12:16], 1)         // seqNumber
	binary.BigEndian.PutUint32(h[16:20], sourceID)
	return h
}

func appendFlowset(packet []byte, flowsetID uint16, body []byte) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], flowsetID)
	binary.BigEndian.PutUint16(header[2:4], uint16(4+len(body)))
	packet = append(packet, header...)
	packet = append(packet, body...)
	return packet
}

func field(buf []byte, typ, length uint16) []byte {
	f := make([]byte, 4)
	binary.BigEndian.PutUint16(f[0:2], typ)
	binary.BigEndian.PutUint16(f[2:4], length)
	return append(buf, f...)
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// dataTemplateBody: template id 256, fields src-addr(8)/dst-addr(12)/
// src-port(7)/dst-port(11)/protocol(4)/sampling-interval(34).
func dataTemplateBody() []byte {
	var body []byte
	body = append(body, be16(256)...)
	body = append(body, be16(6)...) // field count
	body = field(body, 8, 4)
	body = field(body, 12, 4)
	body = field(body, 7, 2)
	body = field(body, 11, 2)
	body = field(body, 4, 1)
	body = field(body, 34, 4)
	return body
}

func dataRecordBody() []byte {
	var body []byte
	body = append(body, net.ParseIP("192.168.1.10").To4()...)
	body = append(body, net.ParseIP("10.0.0.50").To4()...)
	body = append(body, be16(443)...)
	body = append(body, be16(54321)...)
	body = append(body, 6) // protocol
	body = append(body, be32(111)...)
	return body
}

// optionsTemplateBody: template id 257, scope field input-snmp(10, 4 bytes),
// option field sampling-interval(34, 4 bytes) — colliding on purpose with
// the data template's own field 34, to exercise the options-overrides-data
// merge behavior.
func optionsTemplateBody() []byte {
	var body []byte
	body = append(body, be16(257)...)
	body = append(body, be16(4)...) // scope length: 1 field * 4
	body = append(body, be16(4)...) // option length: 1 field * 4
	body = field(body, 10, 4)
	body = field(body, 34, 4)
	return body
}

func optionsRecordBody() []byte {
	var body []byte
	body = append(body, be32(999)...) // scope: input-snmp
	body = append(body, be32(500)...) // option: sampling-interval
	return body
}

func TestV9HandlerMergesOptionsOverData(t *testing.T) {
	h := NewV9Handler(NewTemplateCache(), NewOptionsCache())
	peer := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 2055}

	packet := v9Header(0)
	packet = appendFlowset(packet, 0, dataTemplateBody())
	packet = appendFlowset(packet, 1, optionsTemplateBody())
	packet = appendFlowset(packet, 257, optionsRecordBody())
	packet = appendFlowset(packet, 256, dataRecordBody())

	records, err := h.Decode(packet, peer)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.IPv4SrcAddr.String() != "192.168.1.10" {
		t.Errorf("IPv4SrcAddr = %s, want 192.168.1.10", r.IPv4SrcAddr)
	}
	if r.Protocol == nil || *r.Protocol != 6 {
		t.Errorf("Protocol = %v, want 6", r.Protocol)
	}
	if r.SamplingInterval == nil || *r.SamplingInterval != 500 {
		t.Errorf("SamplingInterval = %v, want 500 (options value should win over the data record's own 111)", r.SamplingInterval)
	}
	if r.InputSNMP == nil || *r.InputSNMP != 999 {
		t.Errorf("InputSNMP = %v, want 999 (merged in from the options record)", r.InputSNMP)
	}
}

func TestV9HandlerUnknownTemplate(t *testing.T) {
	h := NewV9Handler(NewTemplateCache(), NewOptionsCache())
	peer := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 2055}

	packet := v9Header(0)
	packet = appendFlowset(packet, 999, dataRecordBody())

	_, err := h.Decode(packet, peer)
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestV9HandlerZeroFieldLengthAborts(t *testing.T) {
	h := NewV9Handler(NewTemplateCache(), NewOptionsCache())
	peer := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 2055}

	var body []byte
	body = append(body, be16(300)...)
	body = append(body, be16(1)...)
	body = field(body, 8, 0) // zero-length field

	packet := v9Header(0)
	packet = appendFlowset(packet, 0, body)

	_, err := h.Decode(packet, peer)
	if !errors.Is(err, ErrZeroFieldLength) {
		t.Fatalf("expected ErrZeroFieldLength, got %v", err)
	}

	key := TemplateCacheKey{ExporterIP: peer.IP.String(), SourceID: 0, TemplateID: 300, Version: 9}
	if h.Templates.Contains(key) {
		t.Error("template with a zero-length field must not be inserted into the cache")
	}
}

func TestV9HandlerRejectsWrongVersion(t *testing.T) {
	h := NewV9Handler(NewTemplateCache(), NewOptionsCache())
	packet := v9Header(0)
	binary.BigEndian.PutUint16(packet[0:2], 5)

	_, err := h.Decode(packet, &net.UDPAddr{})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestV9HandlerTemplatesScopedPerExporter(t *testing.T) {
	h := NewV9Handler(NewTemplateCache(), NewOptionsCache())
	peerA := &net.UDPAddr{IP: net.ParseIP("198.51.100.1"), Port: 2055}
	peerB := &net.UDPAddr{IP: net.ParseIP("198.51.100.2"), Port: 2055}

	packet := v9Header(0)
	packet = appendFlowset(packet, 0, dataTemplateBody())
	if _, err := h.Decode(packet, peerA); err != nil {
		t.Fatalf("Decode (install template) returned error: %v", err)
	}

	dataOnly := v9Header(0)
	dataOnly = appendFlowset(dataOnly, 256, dataRecordBody())

	if _, err := h.Decode(dataOnly, peerA); err != nil {
		t.Errorf("exporter that installed the template should decode its own data flowset, got: %v", err)
	}
	if _, err := h.Decode(dataOnly, peerB); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("a different exporter must not see the first exporter's template, got: %v", err)
	}
}
