// Package fixture loads and runs the per-opcode conformance suite: gzipped
// JSON files of (initial, final) single-instruction state pairs.
package fixture

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Case is one conformance test: an instruction encoding plus the machine
// state before and after executing it once.
type Case struct {
	Name    string `json:"name"`
	Bytes   []int  `json:"bytes"`
	Initial State  `json:"initial"`
	Final   State  `json:"final"`
}

// State holds a register file snapshot and a sparse memory image. Final
// states list only the registers that changed; absent registers must retain
// their initial value.
type State struct {
	Regs map[string]uint16 `json:"regs"`
	RAM  [][2]uint32       `json:"ram"`
}

// RegNames lists every register key a fixture may mention, in report order.
var RegNames = []string{
	"ax", "bx", "cx", "dx",
	"cs", "ss", "ds", "es",
	"sp", "bp", "si", "di",
	"ip", "flags",
}

// Load reads a gzip-compressed JSON fixture file.
func Load(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open fixture %s", path)
	}
	defer f.Close()
	cases, err := LoadReader(f)
	return cases, errors.Wrapf(err, "fixture %s", path)
}

// LoadReader decompresses and decodes a fixture stream.
func LoadReader(r io.Reader) ([]Case, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "gunzip")
	}
	defer gz.Close()

	var cases []Case
	if err := json.NewDecoder(gz).Decode(&cases); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return cases, nil
}
