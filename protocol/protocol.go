// Package protocol defines the types necessary for unmarshalling a
// protocol-specification XML file, and provides the interface table
// that the compositor dispatches against.
package protocol

//go:generate go run deedles.dev/oxyde/cmd/wlgen -out opcodes.go xml/wayland.xml xml/xdg-shell.xml xml/wlr-foreign-toplevel-management-unstable-v1.xml

import (
	"strconv"

	"deedles.dev/oxyde/wire"
)

type Protocol struct {
	Name      string `xml:"name,attr"`
	Copyright string `xml:"copyright"`

	Interfaces []Interface `xml:"interface"`
}

type Interface struct {
	Name        string      `xml:"name,attr"`
	Version     int         `xml:"version,attr"`
	Description Description `xml:"description"`

	Requests []Op   `xml:"request"`
	Events   []Op   `xml:"event"`
	Enums    []Enum `xml:"enum"`
}

// Request returns the request with the given opcode.
func (i *Interface) Request(op uint16) (*Op, error) {
	if int(op) >= len(i.Requests) {
		return nil, wire.UnknownOpError{Interface: i.Name, Type: "request", Op: op}
	}
	return &i.Requests[op], nil
}

// Event returns the event with the given opcode.
func (i *Interface) Event(op uint16) (*Op, error) {
	if int(op) >= len(i.Events) {
		return nil, wire.UnknownOpError{Interface: i.Name, Type: "event", Op: op}
	}
	return &i.Events[op], nil
}

func (i *Interface) Enum(name string) *Enum {
	for e := range i.Enums {
		if i.Enums[e].Name == name {
			return &i.Enums[e]
		}
	}
	return nil
}

type Description struct {
	Summary string `xml:"summary,attr"`
	Full    string `xml:",chardata"`
}

type Op struct {
	Name        string      `xml:"name,attr"`
	Type        string      `xml:"type,attr"`
	Since       int         `xml:"since,attr"`
	Description Description `xml:"description"`

	Args []Arg `xml:"arg"`

	sig wire.Signature
}

// IsDestructor reports whether the op destroys the object that it is
// sent to or by.
func (op *Op) IsDestructor() bool {
	return op.Type == "destructor"
}

// MinVersion returns the first version of the interface that has op.
func (op *Op) MinVersion() int {
	return max(op.Since, 1)
}

// Signature returns the wire signature of the op's arguments. It is
// only available for ops that come from a Set.
func (op *Op) Signature() wire.Signature {
	return op.sig
}

func (op *Op) signature() (wire.Signature, error) {
	sig := make(wire.Signature, 0, len(op.Args))
	for _, arg := range op.Args {
		t, err := wire.ParseArgType(arg.Type)
		if err != nil {
			return nil, err
		}
		sig = append(sig, wire.ArgSpec{
			Name:      arg.Name,
			Type:      t,
			Interface: arg.Interface,
			Nullable:  arg.AllowNull,
		})
	}
	return sig, nil
}

type Arg struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`

	Type      string `xml:"type,attr"`
	Interface string `xml:"interface,attr"`
	Enum      string `xml:"enum,attr"`
	AllowNull bool   `xml:"allow-null,attr"`
	Version   int    `xml:"version,attr"`
}

type Enum struct {
	Name        string      `xml:"name,attr"`
	Since       int         `xml:"since,attr"`
	Bitfield    bool        `xml:"bitfield,attr"`
	Description Description `xml:"description"`

	Entries []Entry `xml:"entry"`
}

// Value returns the value of the named entry.
func (e *Enum) Value(name string) (int, bool) {
	for _, entry := range e.Entries {
		if entry.Name == name {
			v, err := entry.Int()
			return v, err == nil
		}
	}
	return 0, false
}

type Entry struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`
	Value   string `xml:"value,attr"`
	Since   int    `xml:"since,attr"`
}

func (e Entry) Int() (int, error) {
	v, err := strconv.ParseInt(e.Value, 0, 0)
	return int(v), err
}
