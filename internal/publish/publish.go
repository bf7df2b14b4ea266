// Package publish fans decoded flow records out to one or more sinks: a
// plain-text dump, NDJSON, CSV, and a live terminal dashboard. Publishers run
// in the order they were configured, and a publisher's own error never stops
// the others from seeing the same batch.
package publish

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"netflow-collector/pkg/flowrecord"
)

// numberPrinter adds locale-aware thousands separators to the large packet
// and byte counters shown in the print and dashboard publishers.
var numberPrinter = message.NewPrinter(language.German)

// formatNumber renders n with locale thousand separators.
func formatNumber(n uint64) string {
	return numberPrinter.Sprintf("%d", n)
}

// formatDecimal renders a float with locale thousand separators, to the
// given number of decimal places.
func formatDecimal(n float64, decimals int) string {
	return numberPrinter.Sprintf(fmt.Sprintf("%%.%df", decimals), n)
}

// Publisher accepts decoded records from one datagram at a time.
type Publisher interface {
	fmt.Stringer
	Publish(records []*flowrecord.Record) error
}

func formatEndpoint(ip string, port uint16) string {
	if ip == "" {
		return ""
	}
	if port == 0 {
		return ip
	}
	return fmt.Sprintf("%s:%d", ip, port)
}

func u8(p *uint8) uint8 {
	if p == nil {
		return 0
	}
	return *p
}

func u16(p *uint16) uint16 {
	if p == nil {
		return 0
	}
	return *p
}

func u32(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}

func u64(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

// formatBytes renders a byte count the way the collector's terminal
// surfaces do: fixed units, one decimal place above B.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
