// Package replog decodes the state file each replica persists after every change.
//
// The file is a serialized protobuf message:
//
//	message PersistentState {
//	    uint32 current_term = 1;
//	    google.protobuf.UInt32Value voted_for = 2;
//	    repeated LogEntry log_entries = 3;
//	}
//
//	message LogEntry {
//	    uint32 index = 1;
//	    uint32 term = 2;
//	    string command = 3;
//	}
//
// The harness owns no generated code for the schema; field numbers live in Schema so a SUT
// with a different layout only needs a configuration change. Unknown fields are skipped.
package replog

import (
	"os"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Schema holds the protobuf field numbers of the persisted state.
type Schema struct {
	CurrentTerm  protowire.Number `yaml:"current_term"`
	VotedFor     protowire.Number `yaml:"voted_for"`
	LogEntries   protowire.Number `yaml:"log_entries"`
	EntryIndex   protowire.Number `yaml:"entry_index"`
	EntryTerm    protowire.Number `yaml:"entry_term"`
	EntryCommand protowire.Number `yaml:"entry_command"`
}

// DefaultSchema returns the field numbers of the reference SUT.
func DefaultSchema() Schema {
	return Schema{
		CurrentTerm:  1,
		VotedFor:     2,
		LogEntries:   3,
		EntryIndex:   1,
		EntryTerm:    2,
		EntryCommand: 3,
	}
}

// wrapperValue is the field number of google.protobuf.UInt32Value.value.
const wrapperValue protowire.Number = 1

// Entry is one replicated log entry.
type Entry struct {
	Index   uint64
	Term    uint64
	Command string
}

// State is the decoded content of one replica's file.
type State struct {
	CurrentTerm uint64
	VotedFor    *uint64
	Entries     []Entry
}

// ReadFile decodes the state stored at path.
func ReadFile(path string, schema Schema) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read log file")
	}

	state, err := Decode(data, schema)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	return state, nil
}

// Decode parses a serialized PersistentState.
func Decode(data []byte, schema Schema) (*State, error) {
	state := &State{Entries: []Entry{}}

	err := walk(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch {
		case num == schema.CurrentTerm && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			state.CurrentTerm = v
			return n, nil
		case num == schema.VotedFor && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return n, nil
			}
			voted, err := decodeUInt32Value(raw)
			if err != nil {
				return 0, errors.Wrap(err, "voted_for")
			}
			state.VotedFor = &voted
			return n, nil
		case num == schema.LogEntries && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return n, nil
			}
			entry, err := decodeEntry(raw, schema)
			if err != nil {
				return 0, errors.Wrapf(err, "log entry %d", len(state.Entries))
			}
			state.Entries = append(state.Entries, entry)
			return n, nil
		}

		return protowire.ConsumeFieldValue(num, typ, value), nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

func decodeEntry(data []byte, schema Schema) (Entry, error) {
	var entry Entry

	err := walk(data, func(num protowire.Number, typ protowire.Type, value []byte) (int, error) {
		switch {
		case num == schema.EntryIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			entry.Index = v
			return n, nil
		case num == schema.EntryTerm && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(value)
			entry.Term = v
			return n, nil
		case num == schema.EntryCommand && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(value)
			entry.Command = string(v)
			return n, nil
		}

		return protowire.ConsumeFieldValue(num, typ, value), nil
	})

	return entry, err
}

func decodeUInt32Value(data []byte) (uint64, error) {
	var value uint64

	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == wrapperValue && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			value = v
			return n, nil
		}

		return protowire.ConsumeFieldValue(num, typ, b), nil
	})

	return value, err
}

// walk iterates over the fields of one message. fn consumes the field value and returns the
// number of bytes read, or a negative protowire error code.
func walk(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "field tag")
		}
		data = data[n:]

		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			return errors.Wrapf(protowire.ParseError(m), "field %d", num)
		}
		data = data[m:]
	}

	return nil
}

// Encode serializes a state with the given schema.
func Encode(state *State, schema Schema) []byte {
	var b []byte

	if state.CurrentTerm != 0 {
		b = protowire.AppendTag(b, schema.CurrentTerm, protowire.VarintType)
		b = protowire.AppendVarint(b, state.CurrentTerm)
	}

	if state.VotedFor != nil {
		var wrapper []byte
		wrapper = protowire.AppendTag(wrapper, wrapperValue, protowire.VarintType)
		wrapper = protowire.AppendVarint(wrapper, *state.VotedFor)

		b = protowire.AppendTag(b, schema.VotedFor, protowire.BytesType)
		b = protowire.AppendBytes(b, wrapper)
	}

	for _, e := range state.Entries {
		var entry []byte
		entry = protowire.AppendTag(entry, schema.EntryIndex, protowire.VarintType)
		entry = protowire.AppendVarint(entry, e.Index)
		entry = protowire.AppendTag(entry, schema.EntryTerm, protowire.VarintType)
		entry = protowire.AppendVarint(entry, e.Term)
		entry = protowire.AppendTag(entry, schema.EntryCommand, protowire.BytesType)
		entry = protowire.AppendString(entry, e.Command)

		b = protowire.AppendTag(b, schema.LogEntries, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}

	return b
}

// Commands returns the command payloads in log order.
func (s *State) Commands() []string {
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Command)
	}

	return out
}

// Identical reports whether two logs hold the same commands in the same order.
// Index and term are not compared.
func Identical(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i].Command != b[i].Command {
			return false
		}
	}

	return true
}
