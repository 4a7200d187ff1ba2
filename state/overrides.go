package state

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"slices"
	"strings"
	"sync"
)

var (
	ErrBadAddress      = errors.New("invalid IP address")
	ErrMissingHostname = errors.New("missing hostname(s)")
	ErrBadHostname     = errors.New("invalid host name")
)

// OverrideTable maps hostnames to literal addresses, taking precedence over
// the system resolver. It is built from hosts-file style sources at startup
// and only read afterwards.
type OverrideTable struct {
	mu    sync.RWMutex
	hosts map[string]netip.Addr
}

// OverrideEntry is one hostname -> address mapping.
type OverrideEntry struct {
	Hostname string
	Addr     netip.Addr
}

func NewOverrideTable() *OverrideTable {
	return &OverrideTable{hosts: make(map[string]netip.Addr)}
}

// Load parses r and merges its entries into the table. Entries override any
// loaded earlier for the same hostname. If any line is malformed, none of the
// entries in r are kept and a *ParseError is returned.
func (t *OverrideTable) Load(r io.Reader, source string) error {
	staged := make([]OverrideEntry, 0)
	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		text := sc.Text()
		entries, err := parseHostsLine(text)
		if err != nil {
			return &ParseError{Source: source, Line: lineNum, Text: text, Err: err}
		}
		staged = append(staged, entries...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range staged {
		t.hosts[e.Hostname] = e.Addr
	}
	return nil
}

// LoadFile is Load on the contents of a file.
func (t *OverrideTable) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Load(f, path)
}

func parseHostsLine(line string) ([]OverrideEntry, error) {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, nil
	}
	addr, err := netip.ParseAddr(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrBadAddress, fields[0])
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w for %s", ErrMissingHostname, addr)
	}
	entries := make([]OverrideEntry, 0, len(fields)-1)
	for _, host := range fields[1:] {
		if !IsHostName(host) {
			return nil, fmt.Errorf("%w %q", ErrBadHostname, host)
		}
		entries = append(entries, OverrideEntry{Hostname: normalizeHost(host), Addr: addr.Unmap()})
	}
	return entries, nil
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// Lookup returns the override for host, if there is one.
func (t *OverrideTable) Lookup(host string) (netip.Addr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addr, ok := t.hosts[normalizeHost(host)]
	return addr, ok
}

func (t *OverrideTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.hosts)
}

// Entries returns every mapping, ordered by address then hostname.
func (t *OverrideTable) Entries() []OverrideEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := make([]OverrideEntry, 0, len(t.hosts))
	for host, addr := range t.hosts {
		entries = append(entries, OverrideEntry{Hostname: host, Addr: addr})
	}
	slices.SortFunc(entries, func(a, b OverrideEntry) int {
		if c := a.Addr.Compare(b.Addr); c != 0 {
			return c
		}
		return cmp.Compare(a.Hostname, b.Hostname)
	})
	return entries
}
