package publish

import (
	"fmt"
	"io"

	"netflow-collector/pkg/flowrecord"
)

// JSONPublisher writes newline-delimited JSON, one object per record, using
// Record's own MarshalJSON so field order and absent-field omission stay
// consistent with the CSV publisher.
type JSONPublisher struct {
	w io.Writer
}

// NewJSONPublisher writes to w.
func NewJSONPublisher(w io.Writer) *JSONPublisher {
	return &JSONPublisher{w: w}
}

func (p *JSONPublisher) String() string { return "JSONPublisher" }

func (p *JSONPublisher) Publish(records []*flowrecord.Record) error {
	for _, r := range records {
		b, err := r.MarshalJSON()
		if err != nil {
			return fmt.Errorf("publish: marshal record: %w", err)
		}
		if _, err := p.w.Write(b); err != nil {
			return err
		}
		if _, err := io.WriteString(p.w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
