package core

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mountainsensing/msfetch/protocol"
)

// Decoder decodes payloads that were captured outside the fetcher, either a
// raw delimited record or a node's serial console dump.
type Decoder struct {
	Schema  *protocol.Schema
	Markers protocol.Markers
	Format  func(*protocol.Message) (string, error)
	Log     *slog.Logger
	// Handle, if set, is called with every decoded record instead of logging
	// it.
	Handle func(*protocol.Message) error
}

func NewSampleDecoder(log *slog.Logger) *Decoder {
	return &Decoder{Schema: protocol.SampleSchema, Markers: protocol.SampleDump, Format: protocol.FormatSample, Log: log}
}

func NewConfigDecoder(log *slog.Logger) *Decoder {
	return &Decoder{Schema: protocol.ConfigSchema, Markers: protocol.ConfigDump, Format: protocol.FormatConfig, Log: log}
}

// Decode reads r and handles every record in it, returning how many were
// decoded. In a serial dump a bad record is logged and skipped.
func (d *Decoder) Decode(r io.Reader, serialDump bool) (int, error) {
	if !serialDump {
		data, err := io.ReadAll(r)
		if err != nil {
			return 0, err
		}
		if err := d.decode(data); err != nil {
			return 0, err
		}
		return 1, nil
	}

	records, err := protocol.ReadDump(r, d.Markers)
	if err != nil {
		return 0, fmt.Errorf("failed to read serial dump: %w", err)
	}
	n := 0
	for i, record := range records {
		if err := d.decode(record); err != nil {
			d.Log.Warn("skipping record", "index", i, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

func (d *Decoder) decode(data []byte) error {
	m, err := d.Schema.Decode(data)
	if err != nil {
		return err
	}
	if d.Handle != nil {
		return d.Handle(m)
	}
	text, err := d.Format(m)
	if err != nil {
		return err
	}
	d.Log.Info(fmt.Sprintf("decoded %s to\n%s", d.Schema.Name(), text))
	return nil
}
