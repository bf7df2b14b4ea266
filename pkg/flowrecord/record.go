// Package flowrecord defines the normalized, decoder-independent flow
// record this collector hands to publishers. The struct's field order
// mirrors the CSV header order; the order actually used for CSV and JSON
// output is the one fieldTable in fields.go declares.
package flowrecord

import "net"

// Record is a flat, ~70-field description of one observed flow. Apart from
// Version, a plain integer that every decoded record carries, each field is
// independently optional: scalar fields are pointers so that an absent
// value is distinguishable from a present zero, Datetime is absent when
// empty, and address fields use net.IP / *net.UDPAddr, whose nil already
// means "absent."
type Record struct {
	// Exporter/session metadata
	Datetime         string
	ExporterAddr     *net.UDPAddr
	Version          uint16
	SysUpTime        *uint32
	UnixSecs         *uint32
	UnixNsecs        *uint32
	FlowSequence     *uint32
	EngineType       *uint8
	EngineID         *uint8
	SamplingInterval *uint32

	// Addresses
	IPv4SrcAddr    net.IP
	IPv4DstAddr    net.IP
	IPv4NextHop    net.IP
	BGPIPv4NextHop net.IP
	IPv6SrcAddr    net.IP
	IPv6DstAddr    net.IP
	IPv6NextHop    net.IP
	BGPIPv6NextHop net.IP

	// Interfaces/masks
	Input       *uint32
	Output      *uint32
	SrcMask     *uint8
	DstMask     *uint8
	IPv6SrcMask *uint8
	IPv6DstMask *uint8
	InputSNMP   *uint64
	OutputSNMP  *uint64

	// Counters
	Dpkts         *uint64
	D0ctets       *uint64
	InBytes       *uint64
	InPkts        *uint64
	OutBytes      *uint64
	OutPkts       *uint64
	Flows         *uint64
	MulDstPkts    *uint64
	MulDstBytes   *uint64
	TotalBytesExp *uint64
	TotalPktsExp  *uint64

	// Transport
	SrcPort  *uint16
	DstPort  *uint16
	Protocol *uint8
	TCPFlags *uint8
	TOS      *uint8
	DstTOS   *uint8
	ICMPType *uint16

	// Timing
	First               *uint32
	Last                *uint32
	FirstSwitched       *uint32
	LastSwitched        *uint32
	FlowActiveTimeout   *uint16
	FlowInactiveTimeout *uint16

	// AS/L2/MPLS
	SrcAS              *uint32
	DstAS              *uint32
	SrcMAC             *uint64
	DstMAC             *uint64
	SrcVLAN            *uint16
	DstVLAN            *uint16
	MPLSTopLabel       *uint8
	MPLSTopLabelIPAddr *uint32
	MPLSLabel1         *uint32
	MPLSLabel2         *uint32
	MPLSLabel3         *uint32
	MPLSLabel4         *uint32
	MPLSLabel5         *uint32
	MPLSLabel6         *uint32
	MPLSLabel7         *uint32
	MPLSLabel8         *uint32
	MPLSLabel9         *uint32
	MPLSLabel10        *uint32
	IPv6FlowLabel      *uint64
	IPv6OptionHeaders  *uint32

	// Sampling
	SamplingAlgorithm         *uint8
	FlowSamplerID             *uint8
	FlowSamplerMode           *uint8
	FlowSamplerRandomInterval *uint32
	MulIGMPType               *uint8

	// Misc
	IPProtocolVersion *uint8
	Direction         *uint8
}

// pointer constructors, used by both handlers and tests to keep literal
// fixtures terse.
func U8(v uint8) *uint8    { return &v }
func U16(v uint16) *uint16 { return &v }
func U32(v uint32) *uint32 { return &v }
func U64(v uint64) *uint64 { return &v }
