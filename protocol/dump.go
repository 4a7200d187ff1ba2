package protocol

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Markers delimit the records of one kind in a serial dump.
type Markers struct {
	Start string
	End   string
}

var (
	SampleDump = Markers{
		Start: "+++SERIALDUMP+++SAMPLE+++START+++",
		End:   "+++SERIALDUMP+++SAMPLE+++END+++",
	}
	ConfigDump = Markers{
		Start: "+++SERIALDUMP+++CONFIG+++START+++",
		End:   "+++SERIALDUMP+++CONFIG+++END+++",
	}
)

// ReadDump extracts the hex encoded records found between markers in the
// output of a node's serial console. Lines outside the markers are ignored.
func ReadDump(r io.Reader, markers Markers) ([][]byte, error) {
	var records [][]byte
	inside := false
	sc := bufio.NewScanner(r)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == markers.Start:
			inside = true
		case line == markers.End:
			inside = false
		case inside:
			record, err := hex.DecodeString(line)
			if err != nil {
				return records, fmt.Errorf("line %d: %w", lineNum, err)
			}
			records = append(records, record)
		}
	}
	return records, sc.Err()
}
