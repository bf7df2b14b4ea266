package flowrecord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
)

// unsignedPtr is satisfied by every pointer-width unsigned type a Record
// field can hold.
type unsignedPtr interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func numString[T unsignedPtr](p *T) (string, bool) {
	if p == nil {
		return "", false
	}
	return strconv.FormatUint(uint64(*p), 10), true
}

func ipString(ip net.IP) (string, bool) {
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}

func addrString(a *net.UDPAddr) (string, bool) {
	if a == nil {
		return "", false
	}
	return a.String(), true
}

// fieldSpec drives both CSV and JSON rendering off a single ordered table,
// so the declaration order below is the one true field order: it can never
// drift between the two encodings.
type fieldSpec struct {
	name string
	csv  func(*Record) (string, bool)
	json func(*Record) (any, bool)
}

func numField[T unsignedPtr](name string, get func(*Record) *T) fieldSpec {
	return fieldSpec{
		name: name,
		csv: func(r *Record) (string, bool) {
			return numString(get(r))
		},
		json: func(r *Record) (any, bool) {
			p := get(r)
			if p == nil {
				return nil, false
			}
			return uint64(*p), true
		},
	}
}

func ipField(name string, get func(*Record) net.IP) fieldSpec {
	return fieldSpec{
		name: name,
		csv: func(r *Record) (string, bool) {
			return ipString(get(r))
		},
		json: func(r *Record) (any, bool) {
			ip := get(r)
			if ip == nil {
				return nil, false
			}
			return ip.String(), true
		},
	}
}

var fieldTable = []fieldSpec{
	{
		name: "datetime",
		csv: func(r *Record) (string, bool) {
			if r.Datetime == "" {
				return "", false
			}
			return r.Datetime, true
		},
		json: func(r *Record) (any, bool) {
			if r.Datetime == "" {
				return nil, false
			}
			return r.Datetime, true
		},
	},
	{
		name: "exporter_addr",
		csv: func(r *Record) (string, bool) { return addrString(r.ExporterAddr) },
		json: func(r *Record) (any, bool) {
			if r.ExporterAddr == nil {
				return nil, false
			}
			return r.ExporterAddr.String(), true
		},
	},
	{
		name: "version",
		csv: func(r *Record) (string, bool) { return strconv.FormatUint(uint64(r.Version), 10), true },
		json: func(r *Record) (any, bool) { return r.Version, true },
	},
	numField("sys_up_time", func(r *Record) *uint32 { return r.SysUpTime }),
	numField("unix_secs", func(r *Record) *uint32 { return r.UnixSecs }),
	numField("unix_nsecs", func(r *Record) *uint32 { return r.UnixNsecs }),
	numField("flow_sequence", func(r *Record) *uint32 { return r.FlowSequence }),
	numField("engine_type", func(r *Record) *uint8 { return r.EngineType }),
	numField("engine_id", func(r *Record) *uint8 { return r.EngineID }),
	numField("sampling_interval", func(r *Record) *uint32 { return r.SamplingInterval }),

	ipField("ipv4_src_addr", func(r *Record) net.IP { return r.IPv4SrcAddr }),
	ipField("ipv4_dst_addr", func(r *Record) net.IP { return r.IPv4DstAddr }),
	ipField("ipv4_next_hop", func(r *Record) net.IP { return r.IPv4NextHop }),
	ipField("bgp_ipv4_next_hop", func(r *Record) net.IP { return r.BGPIPv4NextHop }),
	ipField("ipv6_src_addr", func(r *Record) net.IP { return r.IPv6SrcAddr }),
	ipField("ipv6_dst_addr", func(r *Record) net.IP { return r.IPv6DstAddr }),
	ipField("ipv6_next_hop", func(r *Record) net.IP { return r.IPv6NextHop }),
	ipField("bgp_ipv6_next_hop", func(r *Record) net.IP { return r.BGPIPv6NextHop }),

	numField("input", func(r *Record) *uint32 { return r.Input }),
	numField("output", func(r *Record) *uint32 { return r.Output }),
	numField("src_mask", func(r *Record) *uint8 { return r.SrcMask }),
	numField("dst_mask", func(r *Record) *uint8 { return r.DstMask }),
	numField("ipv6_src_mask", func(r *Record) *uint8 { return r.IPv6SrcMask }),
	numField("ipv6_dst_mask", func(r *Record) *uint8 { return r.IPv6DstMask }),
	numField("input_snmp", func(r *Record) *uint64 { return r.InputSNMP }),
	numField("output_snmp", func(r *Record) *uint64 { return r.OutputSNMP }),

	numField("dpkts", func(r *Record) *uint64 { return r.Dpkts }),
	numField("d0ctets", func(r *Record) *uint64 { return r.D0ctets }),
	numField("in_bytes", func(r *Record) *uint64 { return r.InBytes }),
	numField("in_pkts", func(r *Record) *uint64 { return r.InPkts }),
	numField("out_bytes", func(r *Record) *uint64 { return r.OutBytes }),
	numField("out_pkts", func(r *Record) *uint64 { return r.OutPkts }),
	numField("flows", func(r *Record) *uint64 { return r.Flows }),
	numField("mul_dst_pkts", func(r *Record) *uint64 { return r.MulDstPkts }),
	numField("mul_dst_bytes", func(r *Record) *uint64 { return r.MulDstBytes }),
	numField("total_bytes_exp", func(r *Record) *uint64 { return r.TotalBytesExp }),
	numField("total_pkts_exp", func(r *Record) *uint64 { return r.TotalPktsExp }),

	numField("src_port", func(r *Record) *uint16 { return r.SrcPort }),
	numField("dst_port", func(r *Record) *uint16 { return r.DstPort }),
	numField("protocol", func(r *Record) *uint8 { return r.Protocol }),
	numField("tcp_flags", func(r *Record) *uint8 { return r.TCPFlags }),
	numField("tos", func(r *Record) *uint8 { return r.TOS }),
	numField("dst_tos", func(r *Record) *uint8 { return r.DstTOS }),
	numField("icmp_type", func(r *Record) *uint16 { return r.ICMPType }),

	numField("first", func(r *Record) *uint32 { return r.First }),
	numField("last", func(r *Record) *uint32 { return r.Last }),
	numField("first_switched", func(r *Record) *uint32 { return r.FirstSwitched }),
	numField("last_switched", func(r *Record) *uint32 { return r.LastSwitched }),
	numField("flow_active_timeout", func(r *Record) *uint16 { return r.FlowActiveTimeout }),
	numField("flow_inactive_timeout", func(r *Record) *uint16 { return r.FlowInactiveTimeout }),

	numField("src_as", func(r *Record) *uint32 { return r.SrcAS }),
	numField("dst_as", func(r *Record) *uint32 { return r.DstAS }),
	numField("src_mac", func(r *Record) *uint64 { return r.SrcMAC }),
	numField("dst_mac", func(r *Record) *uint64 { return r.DstMAC }),
	numField("src_vlan", func(r *Record) *uint16 { return r.SrcVLAN }),
	numField("dst_vlan", func(r *Record) *uint16 { return r.DstVLAN }),
	numField("mpls_top_label", func(r *Record) *uint8 { return r.MPLSTopLabel }),
	numField("mpls_top_label_ip_addr", func(r *Record) *uint32 { return r.MPLSTopLabelIPAddr }),
	numField("mpls_label_1", func(r *Record) *uint32 { return r.MPLSLabel1 }),
	numField("mpls_label_2", func(r *Record) *uint32 { return r.MPLSLabel2 }),
	numField("mpls_label_3", func(r *Record) *uint32 { return r.MPLSLabel3 }),
	numField("mpls_label_4", func(r *Record) *uint32 { return r.MPLSLabel4 }),
	numField("mpls_label_5", func(r *Record) *uint32 { return r.MPLSLabel5 }),
	numField("mpls_label_6", func(r *Record) *uint32 { return r.MPLSLabel6 }),
	numField("mpls_label_7", func(r *Record) *uint32 { return r.MPLSLabel7 }),
	numField("mpls_label_8", func(r *Record) *uint32 { return r.MPLSLabel8 }),
	numField("mpls_label_9", func(r *Record) *uint32 { return r.MPLSLabel9 }),
	numField("mpls_label_10", func(r *Record) *uint32 { return r.MPLSLabel10 }),
	numField("ipv6_flow_label", func(r *Record) *uint64 { return r.IPv6FlowLabel }),
	numField("ipv6_option_headers", func(r *Record) *uint32 { return r.IPv6OptionHeaders }),

	numField("sampling_algorithm", func(r *Record) *uint8 { return r.SamplingAlgorithm }),
	numField("flow_sampler_id", func(r *Record) *uint8 { return r.FlowSamplerID }),
	numField("flow_sampler_mode", func(r *Record) *uint8 { return r.FlowSamplerMode }),
	numField("flow_sampler_random_interval", func(r *Record) *uint32 { return r.FlowSamplerRandomInterval }),
	numField("mul_igmp_type", func(r *Record) *uint8 { return r.MulIGMPType }),

	numField("ip_protocol_version", func(r *Record) *uint8 { return r.IPProtocolVersion }),
	numField("direction", func(r *Record) *uint8 { return r.Direction }),
}

// CSVHeader returns the field names in declaration order, for the CSV
// publisher's header line.
func CSVHeader() []string {
	names := make([]string, len(fieldTable))
	for i, f := range fieldTable {
		names[i] = f.name
	}
	return names
}

// CSVRow renders one record as a slice of cell values, in declaration
// order, with absent fields as empty strings.
func (r *Record) CSVRow() []string {
	row := make([]string, len(fieldTable))
	for i, f := range fieldTable {
		v, ok := f.csv(r)
		if ok {
			row[i] = v
		}
	}
	return row
}

// MarshalJSON renders the record as a single JSON object with snake_case
// keys in declaration order, omitting absent fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, f := range fieldTable {
		v, ok := f.json(r)
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("flowrecord: marshal field %s: %w", f.name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
