package publish

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"netflow-collector/internal/dashboard"
	"netflow-collector/internal/resolver"
	"netflow-collector/pkg/flowrecord"
)

// TUIPublisher feeds a bounded ring buffer into a live tview table. Unlike
// the other publishers, it does not write wire-faithful values straight
// through: the table may show resolved hostnames and service names instead
// of the raw address and port a record carries, so this publisher must never
// be the one driving CSV/JSON output.
type TUIPublisher struct {
	app         *tview.Application
	ring        *dashboard.Ring
	resolver    *resolver.Resolver
	resolveDNS  bool
	refreshRate time.Duration

	table       *tview.Table
	statsView   *tview.TextView
	filterInput *tview.InputField
	layout      *tview.Flex

	filter dashboard.Filter
	paused bool
}

// NewTUIPublisher creates a dashboard publisher backed by a ring buffer of
// the given capacity. When resolveDNS is true, displayed addresses are
// looked up asynchronously through internal/resolver and cached.
func NewTUIPublisher(ringCapacity int, resolveDNS bool) *TUIPublisher {
	p := &TUIPublisher{
		app:         tview.NewApplication(),
		ring:        dashboard.NewRing(ringCapacity),
		resolver:    resolver.New(),
		resolveDNS:  resolveDNS,
		refreshRate: 500 * time.Millisecond,
	}
	p.resolver.SetEnabled(resolveDNS)
	p.setupUI()
	return p
}

func (p *TUIPublisher) String() string { return "TUIPublisher" }

// Publish appends records to the ring buffer. The screen itself is redrawn
// on a timer in Run, not synchronously here, so Publish stays cheap on the
// decode goroutine's hot path.
func (p *TUIPublisher) Publish(records []*flowrecord.Record) error {
	for _, r := range records {
		p.ring.Add(r)
	}
	return nil
}

func (p *TUIPublisher) setupUI() {
	p.statsView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	p.statsView.SetBorder(true).SetTitle(" Statistics ")

	p.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	p.table.SetBorder(true).SetTitle(" Flows ")
	p.setHeaders()

	p.filterInput = tview.NewInputField().
		SetLabel("Filter: ").
		SetFieldWidth(0).
		SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				p.filter = dashboard.ParseFilter(p.filterInput.GetText())
			}
		})

	p.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(p.statsView, 4, 0, false).
		AddItem(p.table, 0, 1, true).
		AddItem(p.filterInput, 1, 0, false)

	p.app.SetRoot(p.layout, true).SetFocus(p.table)

	p.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyCtrlC:
			p.app.Stop()
			return nil
		case event.Rune() == 'q' && p.app.GetFocus() != p.filterInput:
			p.app.Stop()
			return nil
		case event.Rune() == 'p' && p.app.GetFocus() != p.filterInput:
			p.paused = !p.paused
			return nil
		case event.Rune() == '/' && p.app.GetFocus() != p.filterInput:
			p.app.SetFocus(p.filterInput)
			return nil
		case event.Key() == tcell.KeyEscape:
			p.app.SetFocus(p.table)
			return nil
		}
		return event
	})
}

func (p *TUIPublisher) setHeaders() {
	headers := []string{"Time", "Src", "Dst", "Proto", "Bytes", "Pkts"}
	for col, h := range headers {
		p.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1))
	}
}

// Run blocks until ctx is cancelled or the user quits the dashboard. It
// drives tview's own event loop plus a ticker that redraws the table from
// the current ring contents.
func (p *TUIPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.refreshRate)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				p.app.Stop()
				return
			case <-ticker.C:
				p.app.QueueUpdateDraw(p.redraw)
			}
		}
	}()

	if err := p.app.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (p *TUIPublisher) redraw() {
	p.renderStats()
	if p.paused {
		return
	}
	p.renderTable()
}

func (p *TUIPublisher) renderStats() {
	s := p.ring.Stats()
	text := fmt.Sprintf(
		"Total: %s   Bytes: %s   Rate: %s/s   Uptime: %s",
		formatNumber(s.Total), formatBytes(s.TotalBytes), formatDecimal(s.PerSecond, 1), s.Uptime.Round(time.Second),
	)
	if p.paused {
		text += "  [red](paused)[white]"
	}
	p.statsView.SetText(text)
}

func (p *TUIPublisher) renderTable() {
	records := p.ring.Snapshot()

	row := 1
	for i := len(records) - 1; i >= 0 && row < 500; i-- {
		r := records[i]
		if !p.filter.Matches(r) {
			continue
		}

		src := p.displayEndpoint(r.IPv4SrcAddr, r.IPv6SrcAddr, u16(r.SrcPort))
		dst := p.displayEndpoint(r.IPv4DstAddr, r.IPv6DstAddr, u16(r.DstPort))

		p.table.SetCell(row, 0, tview.NewTableCell(r.Datetime))
		p.table.SetCell(row, 1, tview.NewTableCell(src))
		p.table.SetCell(row, 2, tview.NewTableCell(dst))
		p.table.SetCell(row, 3, tview.NewTableCell(protoCell(r.Protocol)))
		p.table.SetCell(row, 4, tview.NewTableCell(formatBytes(counterBytes(r))))
		p.table.SetCell(row, 5, tview.NewTableCell(formatNumber(counterPkts(r))))
		row++
	}

	for p.table.GetRowCount() > row {
		p.table.RemoveRow(p.table.GetRowCount() - 1)
	}
}

func (p *TUIPublisher) displayEndpoint(v4, v6 net.IP, port uint16) string {
	ip := v4
	if len(ip) == 0 {
		ip = v6
	}
	if len(ip) == 0 {
		return ""
	}

	host := ip.String()
	if p.resolveDNS {
		host = p.resolver.Resolve(ip)
	}
	return formatEndpoint(host, port)
}

func protoCell(p *uint8) string {
	if p == nil {
		return ""
	}
	switch *p {
	case 1:
		return "icmp"
	case 6:
		return "tcp"
	case 17:
		return "udp"
	default:
		return fmt.Sprintf("%d", *p)
	}
}
