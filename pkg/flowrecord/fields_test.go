package flowrecord

import (
	"encoding/json"
	"net"
	"testing"
)

func sampleRecord() *Record {
	return &Record{
		Datetime:    "2026-07-31T00:00:00Z",
		Version:     9,
		IPv4SrcAddr: net.ParseIP("192.168.1.10").To4(),
		IPv4DstAddr: net.ParseIP("10.0.0.50").To4(),
		SrcPort:     U16(443),
		DstPort:     U16(54321),
		Protocol:    U8(6),
		InBytes:     U64(150000),
		InPkts:      U64(100),
	}
}

func TestCSVHeaderMatchesRowLength(t *testing.T) {
	header := CSVHeader()
	row := sampleRecord().CSVRow()
	if len(header) != len(row) {
		t.Fatalf("CSVHeader has %d columns, CSVRow has %d", len(header), len(row))
	}
}

func TestCSVRowOmitsAbsentFields(t *testing.T) {
	r := &Record{Datetime: "now"}
	row := r.CSVRow()
	for i, v := range row {
		switch CSVHeader()[i] {
		case "datetime":
			// Set on the record above, so it is present.
			if v != "now" {
				t.Errorf("column %d (datetime): expected %q, got %q", i, "now", v)
			}
		case "version":
			// Version is a plain integer, not an optional field: always rendered.
			if v != "0" {
				t.Errorf("column %d (version): expected %q, got %q", i, "0", v)
			}
		default:
			if v != "" {
				t.Errorf("column %d (%s): expected empty for absent field, got %q", i, CSVHeader()[i], v)
			}
		}
	}
}

func TestCSVRowRendersPresentFields(t *testing.T) {
	r := sampleRecord()
	row := r.CSVRow()
	header := CSVHeader()

	want := map[string]string{
		"ipv4_src_addr": "192.168.1.10",
		"ipv4_dst_addr": "10.0.0.50",
		"src_port":      "443",
		"dst_port":      "54321",
		"protocol":      "6",
		"in_bytes":      "150000",
		"in_pkts":       "100",
	}

	for i, name := range header {
		if expected, ok := want[name]; ok && row[i] != expected {
			t.Errorf("column %s = %q, want %q", name, row[i], expected)
		}
	}
}

func TestMarshalJSONOmitsAbsentFields(t *testing.T) {
	r := &Record{Datetime: "now", SrcPort: U16(80)}
	data, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON returned error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if _, ok := decoded["dst_port"]; ok {
		t.Errorf("expected dst_port to be omitted, got %v", decoded["dst_port"])
	}
	if _, ok := decoded["src_port"]; !ok {
		t.Errorf("expected src_port to be present")
	}
	if _, ok := decoded["datetime"]; !ok {
		t.Errorf("expected datetime to be present")
	}
}

func TestMarshalJSONPreservesDeclarationOrder(t *testing.T) {
	data, err := sampleRecord().MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON returned error: %v", err)
	}

	header := CSVHeader()
	pos := 0
	for _, name := range header {
		idx := indexOfKey(string(data), name)
		if idx == -1 {
			continue
		}
		if idx < pos {
			t.Fatalf("field %s appears out of declaration order", name)
		}
		pos = idx
	}
}

func indexOfKey(json, key string) int {
	needle := `"` + key + `":`
	for i := 0; i+len(needle) <= len(json); i++ {
		if json[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
