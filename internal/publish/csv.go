package publish

import (
	"encoding/csv"
	"io"
	"sync"

	"netflow-collector/pkg/flowrecord"
)

// CSVPublisher writes one row per record to an encoding/csv.Writer, using
// flowrecord.CSVHeader/CSVRow so the column order can never drift from the
// JSON encoding's field order.
type CSVPublisher struct {
	mu          sync.Mutex
	w           *csv.Writer
	writeHeader bool
	wroteHeader bool
}

// NewCSVPublisher writes to w. If header is false, the header line is
// skipped (useful when appending to an existing file).
func NewCSVPublisher(w io.Writer, header bool) *CSVPublisher {
	return &CSVPublisher{w: csv.NewWriter(w), writeHeader: header}
}

func (p *CSVPublisher) String() string { return "CSVPublisher" }

func (p *CSVPublisher) Publish(records []*flowrecord.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writeHeader && !p.wroteHeader {
		if err := p.w.Write(flowrecord.CSVHeader()); err != nil {
			return err
		}
		p.wroteHeader = true
	}

	for _, r := range records {
		if err := p.w.Write(r.CSVRow()); err != nil {
			return err
		}
	}
	p.w.Flush()
	return p.w.Error()
}
