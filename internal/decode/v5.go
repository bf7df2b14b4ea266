package decode

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"netflow-collector/pkg/flowrecord"
)

const (
	v5HeaderSize = 24
	v5RecordSize = 48
)

// V5Handler decodes NetFlow v5 datagrams. It is stateless: v5 carries no
// templates, so every datagram is self-describing.
type V5Handler struct{}

// NewV5Handler creates a v5 handler.
func NewV5Handler() *V5Handler { return &V5Handler{} }

func (h *V5Handler) String() string { return "NetflowV5Handler" }

// Decode implements Handler. It fails with ErrUnsupportedVersion if the
// first two bytes are not 5, and with ErrShortRead if payload ends before
// count records have been produced.
func (h *V5Handler) Decode(payload []byte, peer *net.UDPAddr) ([]*flowrecord.Record, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: payload too short for version field", ErrShortRead)
	}
	version := binary.BigEndian.Uint16(payload[0:2])
	if version != 5 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if len(payload) < v5HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrShortRead, v5HeaderSize, len(payload))
	}

	count := binary.BigEndian.Uint16(payload[2:4])
	sysUpTime := binary.BigEndian.Uint32(payload[4:8])
	unixSecs := binary.BigEndian.Uint32(payload[8:12])
	unixNsecs := binary.BigEndian.Uint32(payload[12:16])
	flowSequence := binary.BigEndian.Uint32(payload[16:20])
	engineType := payload[20]
	engineID := payload[21]
	samplingInterval := binary.BigEndian.Uint16(payload[22:24])

	want := v5HeaderSize + int(count)*v5RecordSize
	if len(payload) < want {
		return nil, fmt.Errorf("%w: expected %d bytes for %d records, have %d", ErrShortRead, want, count, len(payload))
	}

	datetime := time.Now().UTC().Format(time.RFC3339Nano)
	records := make([]*flowrecord.Record, 0, count)

	for i := 0; i < int(count); i++ {
		rec := payload[v5HeaderSize+i*v5RecordSize : v5HeaderSize+(i+1)*v5RecordSize]

		r := &flowrecord.Record{
			Datetime:         datetime,
			ExporterAddr:     peer,
			Version:          5,
			SysUpTime:        flowrecord.U32(sysUpTime),
			UnixSecs:         flowrecord.U32(unixSecs),
			UnixNsecs:        flowrecord.U32(unixNsecs),
			FlowSequence:     flowrecord.U32(flowSequence),
			EngineType:       flowrecord.U8(engineType),
			EngineID:         flowrecord.U8(engineID),
			SamplingInterval: flowrecord.U32(uint32(samplingInterval)),

			IPv4SrcAddr: net.IP(rec[0:4]).To4(),
			IPv4DstAddr: net.IP(rec[4:8]).To4(),
			IPv4NextHop: net.IP(rec[8:12]).To4(),

			Input:  flowrecord.U32(uint32(binary.BigEndian.Uint16(rec[12:14]))),
			Output: flowrecord.U32(uint32(binary.BigEndian.Uint16(rec[14:16]))),

			Dpkts:   flowrecord.U64(uint64(binary.BigEndian.Uint32(rec[16:20]))),
			D0ctets: flowrecord.U64(uint64(binary.BigEndian.Uint32(rec[20:24]))),

			First: flowrecord.U32(binary.BigEndian.Uint32(rec[24:28])),
			Last:  flowrecord.U32(binary.BigEndian.Uint32(rec[28:32])),

			SrcPort: flowrecord.U16(binary.BigEndian.Uint16(rec[32:34])),
			DstPort: flowrecord.U16(binary.BigEndian.Uint16(rec[34:36])),

			// rec[36] is padding.
			TCPFlags: flowrecord.U8(rec[37]),
			Protocol: flowrecord.U8(rec[38]),
			TOS:      flowrecord.U8(rec[39]),

			SrcAS: flowrecord.U32(uint32(binary.BigEndian.Uint16(rec[40:42]))),
			DstAS: flowrecord.U32(uint32(binary.BigEndian.Uint16(rec[42:44]))),

			SrcMask: flowrecord.U8(rec[44]),
			DstMask: flowrecord.U8(rec[45]),
			// rec[46:48] is padding.

			IPProtocolVersion: flowrecord.U8(4),
		}

		records = append(records, r)
	}

	return records, nil
}
