package decode

import (
	"fmt"
	"net"

	"netflow-collector/pkg/flowrecord"
)

// Handler decodes one datagram into zero or more flow records. Decode must
// be safe to call concurrently: the ingest loop spawns one goroutine per
// datagram and calls into the same, shared Handler instances from each.
type Handler interface {
	fmt.Stringer
	Decode(payload []byte, peer *net.UDPAddr) ([]*flowrecord.Record, error)
}
