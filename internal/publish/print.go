package publish

import (
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/term"

	"netflow-collector/pkg/flowrecord"
)

// PrintPublisher writes a one-line-per-record human summary. It is the
// default publisher when nothing else is configured: enough to confirm the
// collector is receiving and decoding traffic without committing to a file
// format. When w is a terminal, endpoint strings are truncated to fit its
// width rather than wrapping.
type PrintPublisher struct {
	w   io.Writer
	fd  int
	tty bool
}

// NewPrintPublisher writes to w.
func NewPrintPublisher(w io.Writer) *PrintPublisher {
	p := &PrintPublisher{w: w}
	if f, ok := w.(*os.File); ok {
		p.fd = int(f.Fd())
		p.tty = term.IsTerminal(p.fd)
	}
	return p
}

func (p *PrintPublisher) String() string { return "PrintPublisher" }

func (p *PrintPublisher) Publish(records []*flowrecord.Record) error {
	endpointWidth := p.endpointWidth()

	for _, r := range records {
		src := truncate(formatEndpoint(ipString(r.IPv4SrcAddr, r.IPv6SrcAddr), u16(r.SrcPort)), endpointWidth)
		dst := truncate(formatEndpoint(ipString(r.IPv4DstAddr, r.IPv6DstAddr), u16(r.DstPort)), endpointWidth)
		fmt.Fprintf(p.w, "%s v%d %s -> %s proto=%d bytes=%s pkts=%s\n",
			r.Datetime,
			r.Version,
			src,
			dst,
			u8(r.Protocol),
			formatBytes(counterBytes(r)),
			formatNumber(counterPkts(r)),
		)
	}
	return nil
}

// endpointWidth returns how wide an address:port column can be before the
// line would overflow a non-redirected terminal; 0 (no truncation) when w
// isn't a terminal, since file output shouldn't lose information.
func (p *PrintPublisher) endpointWidth() int {
	if !p.tty {
		return 0
	}
	width, _, err := term.GetSize(p.fd)
	if err != nil || width <= 0 {
		return 40
	}
	// Budget the rest of the line (datetime, version, arrow, proto/bytes/pkts)
	// at roughly 60 columns and split what's left between src and dst.
	budget := (width - 60) / 2
	if budget < 15 {
		budget = 15
	}
	return budget
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}

func ipString(v4, v6 net.IP) string {
	if len(v4) > 0 {
		return v4.String()
	}
	if len(v6) > 0 {
		return v6.String()
	}
	return ""
}

// counterBytes prefers the v9 in_bytes counter, falling back to the v5
// dOctets field when the record came off a v5 datagram.
func counterBytes(r *flowrecord.Record) uint64 {
	if r.InBytes != nil {
		return u64(r.InBytes)
	}
	return u64(r.D0ctets)
}

func counterPkts(r *flowrecord.Record) uint64 {
	if r.InPkts != nil {
		return u64(r.InPkts)
	}
	return u64(r.Dpkts)
}
