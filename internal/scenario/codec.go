package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tidwall/gjson"
)

// ErrMalformed is returned when a scenario file cannot be decoded.
var ErrMalformed = errors.New("malformed scenario")

// Interchange field names.
const (
	fieldNbServers      = "nb_servers"
	fieldNbClients      = "nb_clients"
	fieldTimeBeforeKill = "time_before_kill"
	fieldTestType       = "test_type"
	fieldCommandList    = "command_list"
	fieldWaitTime       = "wait_time"
	fieldCommand        = "command"
)

type commandDoc struct {
	WaitTime float64 `json:"wait_time"`
	Command  string  `json:"command"`
}

type scenarioDoc struct {
	NbServers      int          `json:"nb_servers"`
	NbClients      int          `json:"nb_clients"`
	TimeBeforeKill float64      `json:"time_before_kill"`
	TestType       string       `json:"test_type"`
	CommandList    []commandDoc `json:"command_list"`
}

// Encode serializes a scenario to the interchange format.
func Encode(s *Scenario) ([]byte, error) {
	doc := scenarioDoc{
		NbServers:      s.NbServers,
		NbClients:      s.NbClients,
		TimeBeforeKill: s.TimeBeforeKill,
		TestType:       string(s.TestType),
		CommandList:    make([]commandDoc, 0, len(s.CommandList)),
	}

	for _, c := range s.CommandList {
		doc.CommandList = append(doc.CommandList, commandDoc{WaitTime: c.WaitTime, Command: c.Command})
	}

	return json.Marshal(doc)
}

// Decode parses the interchange format. Unknown fields are ignored.
func Decode(data []byte) (*Scenario, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level value must be an object", ErrMalformed)
	}

	s := &Scenario{}
	var err error

	if s.NbServers, err = intField(root, fieldNbServers); err != nil {
		return nil, err
	}

	if s.NbClients, err = intField(root, fieldNbClients); err != nil {
		return nil, err
	}

	if s.TimeBeforeKill, err = numberField(root, fieldTimeBeforeKill); err != nil {
		return nil, err
	}

	rawType, err := stringField(root, fieldTestType)
	if err != nil {
		return nil, err
	}

	if s.TestType, err = ParseTestType(rawType); err != nil {
		return nil, err
	}

	list := root.Get(fieldCommandList)
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: %q must be an array", ErrMalformed, fieldCommandList)
	}

	s.CommandList = []Command{}
	for i, item := range list.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: %s[%d] must be an object", ErrMalformed, fieldCommandList, i)
		}

		wait, err := numberField(item, fieldWaitTime)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", fieldCommandList, i, err)
		}

		text, err := stringField(item, fieldCommand)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", fieldCommandList, i, err)
		}

		s.CommandList = append(s.CommandList, NewCommand(wait, text))
	}

	return s, nil
}

// Summary is the shape of a scenario file read without a full decode.
type Summary struct {
	TestType  string
	NbServers int64
	NbClients int64
	Commands  int
	Grace     float64
}

// Peek reads the headline fields of a scenario file.
func Peek(data []byte) (Summary, error) {
	if !gjson.ValidBytes(data) {
		return Summary{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	fields := gjson.GetManyBytes(data, fieldTestType, fieldNbServers, fieldNbClients, fieldCommandList+".#", fieldTimeBeforeKill)

	return Summary{
		TestType:  fields[0].String(),
		NbServers: fields[1].Int(),
		NbClients: fields[2].Int(),
		Commands:  int(fields[3].Int()),
		Grace:     fields[4].Float(),
	}, nil
}

// ReadFile decodes the scenario stored at path.
func ReadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return s, nil
}

// WriteFile validates and atomically writes a scenario to path.
func WriteFile(path string, s *Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("failed to serialize scenario: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	return nil
}

func field(obj gjson.Result, name string) (gjson.Result, error) {
	value := obj.Get(name)
	if !value.Exists() {
		return value, fmt.Errorf("%w: missing field %q", ErrMalformed, name)
	}

	return value, nil
}

func numberField(obj gjson.Result, name string) (float64, error) {
	value, err := field(obj, name)
	if err != nil {
		return 0, err
	}

	if value.Type != gjson.Number {
		return 0, fmt.Errorf("%w: field %q must be a number, got %s", ErrMalformed, name, value.Type)
	}

	return value.Float(), nil
}

func intField(obj gjson.Result, name string) (int, error) {
	f, err := numberField(obj, name)
	if err != nil {
		return 0, err
	}

	if f != float64(int(f)) {
		return 0, fmt.Errorf("%w: field %q must be an integer, got %v", ErrMalformed, name, f)
	}

	return int(f), nil
}

func stringField(obj gjson.Result, name string) (string, error) {
	value, err := field(obj, name)
	if err != nil {
		return "", err
	}

	if value.Type != gjson.String {
		return "", fmt.Errorf("%w: field %q must be a string, got %s", ErrMalformed, name, value.Type)
	}

	return value.Str, nil
}
