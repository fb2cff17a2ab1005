// Package command models driver commands and serializes them into the JSON
// requests the browser extension expects.
package command

import (
	"bytes"
	"fmt"

	"github.com/user/webdriver-bridge/internal/drivererr"
)

// Command is one driver operation with its declared parameters.
// Names and Values are parallel.
type Command struct {
	Kind   Kind
	Names  []string
	Values []Value
}

// New builds a Command for kind, pairing values with the declared names.
func (c *Catalog) New(kind Kind, values ...Value) (Command, error) {
	names, err := c.ParamNames(kind)
	if err != nil {
		return Command{}, err
	}
	if len(values) != len(names) {
		return Command{}, fmt.Errorf("%s takes %d parameters %v, got %d", kind, len(names), names, len(values))
	}
	return Command{Kind: kind, Names: names, Values: append([]Value{}, values...)}, nil
}

// Param returns the value bound to name.
func (cmd Command) Param(name string) (Value, bool) {
	for i, n := range cmd.Names {
		if n == name && i < len(cmd.Values) {
			return cmd.Values[i], true
		}
	}
	return Value{}, false
}

// Serialize renders cmd as {"request": <wire>, <name>: <value>, ...} with
// parameters in catalog order.
func Serialize(cat *Catalog, cmd Command) ([]byte, error) {
	names, err := cat.ParamNames(cmd.Kind)
	if err != nil {
		return nil, err
	}
	wire, err := cat.WireName(cmd.Kind)
	if err != nil {
		return nil, err
	}
	if len(cmd.Names) != len(cmd.Values) {
		return nil, fmt.Errorf("%s: %d parameter names but %d values", cmd.Kind, len(cmd.Names), len(cmd.Values))
	}
	if len(cmd.Values) != len(names) {
		return nil, drivererr.New(drivererr.UnknownCommand,
			fmt.Sprintf("%s declares parameters %v but the command carries %v", cmd.Kind, names, cmd.Names))
	}
	for i, n := range names {
		if cmd.Names[i] != n {
			return nil, drivererr.New(drivererr.UnknownCommand,
				fmt.Sprintf("%s declares parameters %v but the command carries %v", cmd.Kind, names, cmd.Names))
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeKey(&buf, requestKey); err != nil {
		return nil, err
	}
	if err := String(wire).encode(&buf); err != nil {
		return nil, err
	}
	for i, n := range names {
		buf.WriteByte(',')
		if err := writeKey(&buf, n); err != nil {
			return nil, err
		}
		if err := cmd.Values[i].encode(&buf); err != nil {
			return nil, fmt.Errorf("%s parameter %q: %w", cmd.Kind, n, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
