package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/mountainsensing/msfetch/protocol"
)

// Resources exposed by the node firmware.
const (
	ResourceSample = "sample"
	ResourceConfig = "config"
	ResourceDate   = "date"
	ResourceUptime = "uptime"
	ResourceReboot = "reboot"
	ResourceRoutes = "routes"
)

func resourcePath(resource string, sub ...string) string {
	return "/" + strings.Join(append([]string{resource}, sub...), "/")
}

// singlePass is embedded by actions that are done after one success.
type singlePass struct{}

func (singlePass) NeedsMorePasses() bool {
	return false
}

func parseInt(payload []byte) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
}

func decodeConfig(payload []byte) (*protocol.Message, error) {
	return protocol.ConfigSchema.Decode(payload)
}

func logFormatted(ctx context.Context, msg string, m *protocol.Message, format func(*protocol.Message) (string, error)) error {
	text, err := format(m)
	if err != nil {
		return err
	}
	NodeLogger(ctx).Info(msg + "\n" + text)
	return nil
}
