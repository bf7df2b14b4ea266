package publish

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"netflow-collector/pkg/flowrecord"
)

func testRecords() []*flowrecord.Record {
	return []*flowrecord.Record{
		{
			Datetime: "2026-07-31T00:00:00Z",
			InBytes:  flowrecord.U64(1500),
			InPkts:   flowrecord.U64(10),
			SrcPort:  flowrecord.U16(443),
		},
		{
			Datetime: "2026-07-31T00:00:01Z",
			InBytes:  flowrecord.U64(2500),
			InPkts:   flowrecord.U64(20),
		},
	}
}

func TestCSVPublisherWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	p := NewCSVPublisher(&buf, true)

	if err := p.Publish(testRecords()[:1]); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := p.Publish(testRecords()[1:]); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	r := csv.NewReader(strings.NewReader(buf.String()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}

	// One header row plus one row per published record, not one header per call.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows (1 header + 2 records), got %d", len(rows))
	}
	if len(rows[0]) != len(flowrecord.CSVHeader()) {
		t.Errorf("header row has %d columns, want %d", len(rows[0]), len(flowrecord.CSVHeader()))
	}
}

func TestCSVPublisherSkipsHeaderWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewCSVPublisher(&buf, false)

	if err := p.Publish(testRecords()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	r := csv.NewReader(strings.NewReader(buf.String()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (no header), got %d", len(rows))
	}
}

func TestJSONPublisherWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewJSONPublisher(&buf)

	if err := p.Publish(testRecords()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			t.Errorf("line %q is not a single JSON object", line)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d", lines)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{500, "500 B"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatEndpoint(t *testing.T) {
	if got := formatEndpoint("192.168.1.1", 443); got != "192.168.1.1:443" {
		t.Errorf("formatEndpoint with port = %q, want 192.168.1.1:443", got)
	}
	if got := formatEndpoint("192.168.1.1", 0); got != "192.168.1.1" {
		t.Errorf("formatEndpoint with no port = %q, want 192.168.1.1", got)
	}
	if got := formatEndpoint("", 443); got != "" {
		t.Errorf("formatEndpoint with no ip = %q, want empty", got)
	}
}
