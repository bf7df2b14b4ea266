package decode

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"netflow-collector/pkg/binreader"
	"netflow-collector/pkg/flowrecord"
)

const v9HeaderSize = 20

// V9Handler decodes NetFlow v9 datagrams. Unlike v5, v9 is stateful: data
// flowsets only make sense in light of a previously received template, so
// the handler holds shared references to the template and options caches
// rather than owning private copies.
type V9Handler struct {
	Templates *TemplateCache
	Options   *OptionsCache
}

// NewV9Handler creates a v9 handler backed by the given caches. Passing the
// same caches to multiple handler instances (or sharing one instance across
// goroutines) is the supported way to give concurrent decodes a consistent
// view of templates and options.
func NewV9Handler(templates *TemplateCache, options *OptionsCache) *V9Handler {
	return &V9Handler{Templates: templates, Options: options}
}

func (h *V9Handler) String() string { return "NetflowV9Handler" }

// Decode implements Handler.
func (h *V9Handler) Decode(payload []byte, peer *net.UDPAddr) ([]*flowrecord.Record, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: payload too short for version field", ErrShortRead)
	}
	version := binary.BigEndian.Uint16(payload[0:2])
	if version != 9 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if len(payload) < v9HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrShortRead, v9HeaderSize, len(payload))
	}

	sysUpTime := binary.BigEndian.Uint32(payload[4:8])
	unixSecs := binary.BigEndian.Uint32(payload[8:12])
	seqNumber := binary.BigEndian.Uint32(payload[12:16])
	sourceID := binary.BigEndian.Uint32(payload[16:20])

	datetime := time.Now().UTC().Format(time.RFC3339Nano)
	exporterIP := peer.IP.String()

	var records []*flowrecord.Record
	offset := v9HeaderSize

	for offset < len(payload) {
		if offset+4 > len(payload) {
			return nil, fmt.Errorf("%w: flowset header truncated", ErrShortRead)
		}
		flowsetID := binary.BigEndian.Uint16(payload[offset : offset+2])
		length := binary.BigEndian.Uint16(payload[offset+2 : offset+4])
		if length < 4 || offset+int(length) > len(payload) {
			return nil, fmt.Errorf("%w: flowset length %d invalid at offset %d", ErrShortRead, length, offset)
		}
		body := payload[offset+4 : offset+int(length)]

		switch {
		case flowsetID == 0:
			if err := h.installDataTemplates(body, exporterIP, sourceID); err != nil {
				return nil, err
			}
		case flowsetID == 1:
			if err := h.installOptionsTemplates(body, exporterIP, sourceID); err != nil {
				return nil, err
			}
		case flowsetID >= 256:
			recs, err := h.decodeDataFlowset(body, exporterIP, sourceID, flowsetID, peer, datetime, sysUpTime, unixSecs, seqNumber)
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
		default:
			// 2..=255 reserved; ignore and advance by length.
		}

		offset += int(length)
	}

	return records, nil
}

func (h *V9Handler) installDataTemplates(body []byte, exporterIP string, sourceID uint32) error {
	offset := 0
	for offset+4 <= len(body) {
		templateID := binary.BigEndian.Uint16(body[offset : offset+2])
		fieldCount := binary.BigEndian.Uint16(body[offset+2 : offset+4])
		offset += 4

		fields := make([]Field, 0, fieldCount)
		for i := 0; i < int(fieldCount); i++ {
			if offset+4 > len(body) {
				return fmt.Errorf("%w: template field truncated", ErrShortRead)
			}
			fieldType := binary.BigEndian.Uint16(body[offset : offset+2])
			fieldLength := binary.BigEndian.Uint16(body[offset+2 : offset+4])
			offset += 4
			if fieldLength == 0 {
				return ErrZeroFieldLength
			}
			fields = append(fields, Field{Type: fieldType, Length: fieldLength})
		}

		key := TemplateCacheKey{ExporterIP: exporterIP, SourceID: sourceID, TemplateID: templateID, Version: 9}
		h.Templates.Insert(key, TemplateDefinition{Fields: fields, IsOption: false})
	}
	return nil
}

func (h *V9Handler) installOptionsTemplates(body []byte, exporterIP string, sourceID uint32) error {
	offset := 0
	for offset+4 <= len(body) {
		if offset+6 > len(body) {
			return fmt.Errorf("%w: options template header truncated", ErrShortRead)
		}
		templateID := binary.BigEndian.Uint16(body[offset : offset+2])
		scopeLen := binary.BigEndian.Uint16(body[offset+2 : offset+4])
		optLen := binary.BigEndian.Uint16(body[offset+4 : offset+6])
		offset += 6

		scopeCount := int(scopeLen / 4)
		optCount := int(optLen / 4)

		scopeFields := make([]Field, 0, scopeCount)
		for i := 0; i < scopeCount; i++ {
			if offset+4 > len(body) {
				return fmt.Errorf("%w: options scope field truncated", ErrShortRead)
			}
			fieldType := binary.BigEndian.Uint16(body[offset : offset+2])
			fieldLength := binary.BigEndian.Uint16(body[offset+2 : offset+4])
			offset += 4
			if fieldLength == 0 {
				return ErrZeroFieldLength
			}
			scopeFields = append(scopeFields, Field{Type: fieldType, Length: fieldLength})
		}

		fields := make([]Field, 0, optCount)
		for i := 0; i < optCount; i++ {
			if offset+4 > len(body) {
				return fmt.Errorf("%w: options field truncated", ErrShortRead)
			}
			fieldType := binary.BigEndian.Uint16(body[offset : offset+2])
			fieldLength := binary.BigEndian.Uint16(body[offset+2 : offset+4])
			offset += 4
			if fieldLength == 0 {
				return ErrZeroFieldLength
			}
			fields = append(fields, Field{Type: fieldType, Length: fieldLength})
		}

		key := TemplateCacheKey{ExporterIP: exporterIP, SourceID: sourceID, TemplateID: templateID, Version: 9}
		h.Templates.Insert(key, TemplateDefinition{Fields: fields, ScopeFields: scopeFields, IsOption: true})
	}
	return nil
}

func (h *V9Handler) decodeDataFlowset(
	body []byte,
	exporterIP string,
	sourceID uint32,
	flowsetID uint16,
	peer *net.UDPAddr,
	datetime string,
	sysUpTime, unixSecs, seqNumber uint32,
) ([]*flowrecord.Record, error) {
	key := TemplateCacheKey{ExporterIP: exporterIP, SourceID: sourceID, TemplateID: flowsetID, Version: 9}
	def, ok := h.Templates.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: template id %d from %s/%d", ErrUnknownTemplate, flowsetID, exporterIP, sourceID)
	}

	recordSize := def.RecordSize()
	if recordSize == 0 {
		return nil, nil
	}

	var records []*flowrecord.Record
	for offset := 0; offset+recordSize <= len(body); offset += recordSize {
		cursor := offset
		// Scope and primary fields decode into one shared map: a field
		// read later overwrites an earlier one with the same type id.
		// Scope fields are read first, so a primary (option) field wins
		// any collision with a scope field of the same type.
		datas := make(FlowDatas)
		if def.IsOption {
			for _, f := range def.ScopeFields {
				datas[f.Type] = body[cursor : cursor+int(f.Length)]
				cursor += int(f.Length)
			}
		}
		for _, f := range def.Fields {
			datas[f.Type] = body[cursor : cursor+int(f.Length)]
			cursor += int(f.Length)
		}

		if def.IsOption {
			h.Options.Insert(exporterIP, datas)
			continue
		}

		r := &flowrecord.Record{
			Datetime:     datetime,
			ExporterAddr: peer,
			Version:      9,
			SysUpTime:    flowrecord.U32(sysUpTime),
			FlowSequence: flowrecord.U32(seqNumber),
			UnixSecs:     flowrecord.U32(unixSecs),
		}
		applyFlowDatas(r, datas)
		if optDatas, ok := h.Options.Get(exporterIP); ok {
			applyFlowDatas(r, optDatas)
		}
		records = append(records, r)
	}

	return records, nil
}

// fieldSetter applies one raw field value onto a record. A setter's own
// decode failure (e.g. a var-width read with an unsupported length) drops
// that single field rather than the whole record.
type fieldSetter func(r *flowrecord.Record, data []byte)

func varSetter(set func(r *flowrecord.Record, v uint64)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.ReadUnsigned(data)
		if err != nil {
			return
		}
		set(r, v)
	}
}

func u8Setter(set func(r *flowrecord.Record, v uint8)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.U8(data)
		if err != nil {
			return
		}
		set(r, v)
	}
}

func u16Setter(set func(r *flowrecord.Record, v uint16)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.U16(data)
		if err != nil {
			return
		}
		set(r, v)
	}
}

func u24Setter(set func(r *flowrecord.Record, v uint32)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.U24(data)
		if err != nil {
			return
		}
		set(r, v)
	}
}

func u32Setter(set func(r *flowrecord.Record, v uint32)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.U32(data)
		if err != nil {
			return
		}
		set(r, v)
	}
}

func u48Setter(set func(r *flowrecord.Record, v uint64)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.U48(data)
		if err != nil {
			return
		}
		set(r, v)
	}
}

func ipv4Setter(set func(r *flowrecord.Record, v net.IP)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		v, err := binreader.U32(data)
		if err != nil {
			return
		}
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, v)
		set(r, ip)
	}
}

func ipv6Setter(set func(r *flowrecord.Record, v net.IP)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		ip, err := binreader.U128(data)
		if err != nil {
			return
		}
		set(r, ip)
	}
}

// asSetter handles field types 16 (src_as) and 17 (dst_as), which may be
// encoded as either a 2- or 4-byte AS number.
func asSetter(set func(r *flowrecord.Record, v uint32)) fieldSetter {
	return func(r *flowrecord.Record, data []byte) {
		switch len(data) {
		case 2:
			set(r, uint32(binary.BigEndian.Uint16(data)))
		case 4:
			set(r, binary.BigEndian.Uint32(data))
		}
	}
}

// v9FieldSetters is the decoder table mapping IANA NetFlow v9 field types to
// flowrecord.Record setters. Unrecognized field types are left out of this
// table entirely: their bytes are still consumed while walking the
// template's fields (the length is known from the template), but they
// contribute no record attribute.
//
// Field type 40 is mapped to EngineID alongside 39, mirroring a
// transcription error in the source this decoder was built from (type 40 is
// TOTAL_BYTES_EXP per IANA). It is preserved here for bug-for-bug parity;
// see the design notes.
var v9FieldSetters = map[uint16]fieldSetter{
	1:  varSetter(func(r *flowrecord.Record, v uint64) { r.InBytes = &v }),
	2:  varSetter(func(r *flowrecord.Record, v uint64) { r.InPkts = &v }),
	3:  varSetter(func(r *flowrecord.Record, v uint64) { r.Flows = &v }),
	4:  u8Setter(func(r *flowrecord.Record, v uint8) { r.Protocol = &v }),
	5:  u8Setter(func(r *flowrecord.Record, v uint8) { r.TOS = &v }),
	6:  u8Setter(func(r *flowrecord.Record, v uint8) { r.TCPFlags = &v }),
	7:  u16Setter(func(r *flowrecord.Record, v uint16) { r.SrcPort = &v }),
	8:  ipv4Setter(func(r *flowrecord.Record, v net.IP) { r.IPv4SrcAddr = v }),
	9:  u8Setter(func(r *flowrecord.Record, v uint8) { r.SrcMask = &v }),
	10: varSetter(func(r *flowrecord.Record, v uint64) { r.InputSNMP = &v }),
	11: u16Setter(func(r *flowrecord.Record, v uint16) { r.DstPort = &v }),
	12: ipv4Setter(func(r *flowrecord.Record, v net.IP) { r.IPv4DstAddr = v }),
	13: u8Setter(func(r *flowrecord.Record, v uint8) { r.DstMask = &v }),
	14: varSetter(func(r *flowrecord.Record, v uint64) { r.OutputSNMP = &v }),
	15: ipv4Setter(func(r *flowrecord.Record, v net.IP) { r.IPv4NextHop = v }),
	16: asSetter(func(r *flowrecord.Record, v uint32) { r.SrcAS = &v }),
	17: asSetter(func(r *flowrecord.Record, v uint32) { r.DstAS = &v }),
	18: ipv4Setter(func(r *flowrecord.Record, v net.IP) { r.BGPIPv4NextHop = v }),
	19: varSetter(func(r *flowrecord.Record, v uint64) { r.MulDstPkts = &v }),
	20: varSetter(func(r *flowrecord.Record, v uint64) { r.MulDstBytes = &v }),
	21: u32Setter(func(r *flowrecord.Record, v uint32) { r.LastSwitched = &v }),
	22: u32Setter(func(r *flowrecord.Record, v uint32) { r.FirstSwitched = &v }),
	23: varSetter(func(r *flowrecord.Record, v uint64) { r.OutBytes = &v }),
	24: varSetter(func(r *flowrecord.Record, v uint64) { r.OutPkts = &v }),
	27: ipv6Setter(func(r *flowrecord.Record, v net.IP) { r.IPv6SrcAddr = v }),
	28: ipv6Setter(func(r *flowrecord.Record, v net.IP) { r.IPv6DstAddr = v }),
	29: u8Setter(func(r *flowrecord.Record, v uint8) { r.IPv6SrcMask = &v }),
	30: u8Setter(func(r *flowrecord.Record, v uint8) { r.IPv6DstMask = &v }),
	31: varSetter(func(r *flowrecord.Record, v uint64) { r.IPv6FlowLabel = &v }),
	32: u16Setter(func(r *flowrecord.Record, v uint16) { r.ICMPType = &v }),
	33: u8Setter(func(r *flowrecord.Record, v uint8) { r.MulIGMPType = &v }),
	34: u32Setter(func(r *flowrecord.Record, v uint32) { r.SamplingInterval = &v }),
	35: u8Setter(func(r *flowrecord.Record, v uint8) { r.SamplingAlgorithm = &v }),
	36: u16Setter(func(r *flowrecord.Record, v uint16) { r.FlowActiveTimeout = &v }),
	37: u16Setter(func(r *flowrecord.Record, v uint16) { r.FlowInactiveTimeout = &v }),
	38: u8Setter(func(r *flowrecord.Record, v uint8) { r.EngineType = &v }),
	39: u8Setter(func(r *flowrecord.Record, v uint8) { r.EngineID = &v }),
	40: u8Setter(func(r *flowrecord.Record, v uint8) { r.EngineID = &v }), // see design notes: aliases 39
	41: varSetter(func(r *flowrecord.Record, v uint64) { r.TotalBytesExp = &v }),
	42: varSetter(func(r *flowrecord.Record, v uint64) { r.TotalPktsExp = &v }),
	46: u8Setter(func(r *flowrecord.Record, v uint8) { r.MPLSTopLabel = &v }),
	47: u32Setter(func(r *flowrecord.Record, v uint32) { r.MPLSTopLabelIPAddr = &v }),
	48: u8Setter(func(r *flowrecord.Record, v uint8) { r.FlowSamplerID = &v }),
	49: u8Setter(func(r *flowrecord.Record, v uint8) { r.FlowSamplerMode = &v }),
	50: u32Setter(func(r *flowrecord.Record, v uint32) { r.FlowSamplerRandomInterval = &v }),
	55: u8Setter(func(r *flowrecord.Record, v uint8) { r.DstTOS = &v }),
	56: u48Setter(func(r *flowrecord.Record, v uint64) { r.SrcMAC = &v }),
	57: u48Setter(func(r *flowrecord.Record, v uint64) { r.DstMAC = &v }),
	58: u16Setter(func(r *flowrecord.Record, v uint16) { r.SrcVLAN = &v }),
	59: u16Setter(func(r *flowrecord.Record, v uint16) { r.DstVLAN = &v }),
	60: u8Setter(func(r *flowrecord.Record, v uint8) { r.IPProtocolVersion = &v }),
	61: u8Setter(func(r *flowrecord.Record, v uint8) { r.Direction = &v }),
	62: ipv6Setter(func(r *flowrecord.Record, v net.IP) { r.IPv6NextHop = v }),
	63: ipv6Setter(func(r *flowrecord.Record, v net.IP) { r.BGPIPv6NextHop = v }),
	64: u32Setter(func(r *flowrecord.Record, v uint32) { r.IPv6OptionHeaders = &v }),
	70: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel1 = &v }),
	71: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel2 = &v }),
	72: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel3 = &v }),
	73: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel4 = &v }),
	74: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel5 = &v }),
	75: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel6 = &v }),
	76: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel7 = &v }),
	77: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel8 = &v }),
	78: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel9 = &v }),
	79: u24Setter(func(r *flowrecord.Record, v uint32) { r.MPLSLabel10 = &v }),
}

func applyFlowDatas(r *flowrecord.Record, datas FlowDatas) {
	for fieldType, data := range datas {
		if setter, ok := v9FieldSetters[fieldType]; ok {
			setter(r, data)
		}
	}
}
