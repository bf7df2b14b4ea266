// Package resolver turns the raw IPs in a flow record into the hostnames
// the live dashboard prints next to them. Nothing else in the collector
// touches it: the json/csv/print publishers stay wire-faithful and never
// resolve anything.
package resolver

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Resolver caches reverse-DNS lookups for flow endpoint addresses so the
// dashboard's redraw loop never blocks on the network.
type Resolver struct {
	mu       sync.RWMutex
	cache    map[string]cacheEntry
	macCache map[string]string // EUI-64 MAC -> hostname correlation, IPv6 only
	enabled  bool
	timeout  time.Duration
	maxAge   time.Duration
}

type cacheEntry struct {
	hostname  string
	timestamp time.Time
	notFound  bool
}

// New creates a resolver with DNS resolution enabled and a 5 minute cache
// TTL, matching the collector's default dashboard configuration.
func New() *Resolver {
	return &Resolver{
		cache:    make(map[string]cacheEntry),
		macCache: make(map[string]string),
		enabled:  true,
		timeout:  500 * time.Millisecond,
		maxAge:   5 * time.Minute,
	}
}

// SetEnabled toggles resolution. Disabling it makes Resolve return the raw
// IP string unconditionally, for the dashboard's resolve_dns config flag.
func (r *Resolver) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// Resolve returns the cached hostname for ip's src/dst address, if one was
// already looked up and is still fresh. On a cache miss it kicks off an
// async lookup and returns the IP string immediately, so the dashboard's
// render loop never stalls waiting on a DNS round trip; the next redraw
// picks up the resolved name once lookup finishes.
func (r *Resolver) Resolve(ip net.IP) string {
	if ip == nil {
		return ""
	}
	ipStr := ip.String()

	r.mu.RLock()
	enabled := r.enabled
	if !enabled {
		r.mu.RUnlock()
		return ipStr
	}
	if entry, ok := r.cache[ipStr]; ok {
		if time.Since(entry.timestamp) < r.maxAge {
			r.mu.RUnlock()
			if entry.notFound {
				return ipStr
			}
			return entry.hostname
		}
	}
	r.mu.RUnlock()

	if !enabled {
		return ipStr
	}

	go r.lookup(ipStr)

	return ipStr
}

// unhelpfulPatterns catch reverse-DNS responses for IPv6 addresses that
// just echo the address back in a different shape (hex-encoded PTR names,
// ip6.arpa leakage), which are worse than showing the raw address.
var unhelpfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[0-9a-f]{1,4}[-\.][0-9a-f]{1,4}[-\.]`),
	regexp.MustCompile(`(?i)ipv6.*[0-9a-f]{4}`),
	regexp.MustCompile(`^[0-9a-f]{12,}\.`),
	regexp.MustCompile(`(?i)ip6\.arpa`),
}

func isUnhelpfulHostname(hostname, ipStr string) bool {
	if hostname == ipStr {
		return true
	}
	if strings.Contains(hostname, ipStr) {
		return true
	}

	if strings.Contains(ipStr, ":") { // IPv6
		for _, pattern := range unhelpfulPatterns {
			if pattern.MatchString(hostname) {
				return true
			}
		}

		hexCount := 0
		for _, c := range hostname {
			if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-' || c == '.' {
				hexCount++
			}
		}
		if len(hostname) > 10 && float64(hexCount)/float64(len(hostname)) > 0.7 {
			return true
		}
	}

	return false
}

func reverseIPv6(ip net.IP) string {
	ip = ip.To16()
	if ip == nil {
		return ""
	}

	var parts []string
	for i := len(ip) - 1; i >= 0; i-- {
		parts = append(parts, fmt.Sprintf("%x", ip[i]&0x0f))
		parts = append(parts, fmt.Sprintf("%x", ip[i]>>4))
	}
	return strings.Join(parts, ".") + ".ip6.arpa."
}

func reverseIPv4(ip net.IP) string {
	ip = ip.To4()
	if ip == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa.", ip[3], ip[2], ip[1], ip[0])
}

// lookupMDNS is the fallback path for link-local exporters and endpoints
// (container/IoT traffic on the LAN segment the collector listens on) that
// have no entry in whatever DNS server net.DefaultResolver reaches.
func (r *Resolver) lookupMDNS(ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	var reverseName string
	var mdnsAddr string

	if ip.To4() != nil {
		reverseName = reverseIPv4(ip)
		mdnsAddr = "224.0.0.251:5353"
	} else {
		reverseName = reverseIPv6(ip)
		mdnsAddr = "[ff02::fb]:5353"
	}

	msg := new(dns.Msg)
	msg.SetQuestion(reverseName, dns.TypePTR)
	msg.RecursionDesired = false

	addrs := []string{mdnsAddr}
	if ip.To4() == nil {
		// An IPv6-only host may still only answer mDNS over the v4 group.
		addrs = append(addrs, "224.0.0.251:5353")
	}

	client := &dns.Client{
		Net:     "udp",
		Timeout: 500 * time.Millisecond,
	}

	for _, addr := range addrs {
		response, _, err := client.Exchange(msg, addr)
		if err != nil {
			continue
		}

		for _, answer := range response.Answer {
			if ptr, ok := answer.(*dns.PTR); ok {
				hostname := ptr.Ptr
				if len(hostname) > 0 && hostname[len(hostname)-1] == '.' {
					hostname = hostname[:len(hostname)-1]
				}
				return hostname
			}
		}
	}

	return ""
}

// extractMACFromIPv6 recovers the interface MAC from a SLAAC/EUI-64 IPv6
// address (bytes 11-12 are the ff:fe marker), so two different addresses
// on the same interface can still correlate to one cached hostname.
func extractMACFromIPv6(ip net.IP) string {
	ip = ip.To16()
	if ip == nil {
		return ""
	}

	if ip[11] != 0xff || ip[12] != 0xfe {
		return ""
	}

	mac := make([]byte, 6)
	mac[0] = ip[8] ^ 0x02 // flip the universal/local bit back
	mac[1] = ip[9]
	mac[2] = ip[10]
	mac[3] = ip[13]
	mac[4] = ip[14]
	mac[5] = ip[15]

	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func (r *Resolver) lookup(ipStr string) string {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	names, err := net.DefaultResolver.LookupAddr(ctx, ipStr)

	var hostname string
	dnsWorked := false

	if err == nil && len(names) > 0 {
		hostname = names[0]
		if len(hostname) > 0 && hostname[len(hostname)-1] == '.' {
			hostname = hostname[:len(hostname)-1]
		}
		if !isUnhelpfulHostname(hostname, ipStr) {
			dnsWorked = true
		}
	}

	if !dnsWorked {
		if mdnsHostname := r.lookupMDNS(ipStr); mdnsHostname != "" {
			hostname = mdnsHostname
			dnsWorked = true
		}
	}

	ip := net.ParseIP(ipStr)
	var mac string
	if ip != nil && ip.To4() == nil {
		mac = extractMACFromIPv6(ip)
		if !dnsWorked && mac != "" {
			r.mu.RLock()
			if cachedHostname, ok := r.macCache[mac]; ok {
				hostname = cachedHostname
				dnsWorked = true
			}
			r.mu.RUnlock()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !dnsWorked {
		r.cache[ipStr] = cacheEntry{
			hostname:  ipStr,
			timestamp: time.Now(),
			notFound:  true,
		}
		return ipStr
	}

	r.cache[ipStr] = cacheEntry{
		hostname:  hostname,
		timestamp: time.Now(),
		notFound:  false,
	}

	if mac != "" {
		r.macCache[mac] = hostname
	}

	return hostname
}
