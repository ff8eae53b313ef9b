package protocol

import (
	"embed"
	"encoding/xml"
	"fmt"
	"io"
	"sync"
)

//go:embed xml/*.xml
var xmlFiles embed.FS

// Load decodes a single protocol description.
func Load(r io.Reader) (proto Protocol, err error) {
	d := xml.NewDecoder(r)
	err = d.Decode(&proto)
	return proto, err
}

// Set is a collection of interfaces from one or more protocols, keyed
// by interface name. Every op in a Set has its signature resolved.
type Set struct {
	ifaces map[string]*Interface
	names  []string
}

// NewSet builds a Set from the given protocols. Interface names must be
// unique across all of them and every interface referenced by an
// argument must be present.
func NewSet(protos ...Protocol) (*Set, error) {
	s := Set{ifaces: make(map[string]*Interface)}
	for pi := range protos {
		for ii := range protos[pi].Interfaces {
			iface := &protos[pi].Interfaces[ii]
			if _, ok := s.ifaces[iface.Name]; ok {
				return nil, fmt.Errorf("duplicate interface %q", iface.Name)
			}
			if err := resolve(iface.Requests); err != nil {
				return nil, fmt.Errorf("%v: %w", iface.Name, err)
			}
			if err := resolve(iface.Events); err != nil {
				return nil, fmt.Errorf("%v: %w", iface.Name, err)
			}

			s.ifaces[iface.Name] = iface
			s.names = append(s.names, iface.Name)
		}
	}

	for _, iface := range s.ifaces {
		for _, ops := range [][]Op{iface.Requests, iface.Events} {
			for _, op := range ops {
				for _, arg := range op.Args {
					if (arg.Interface != "") && (s.ifaces[arg.Interface] == nil) {
						return nil, fmt.Errorf("%v.%v references unknown interface %q", iface.Name, op.Name, arg.Interface)
					}
				}
			}
		}
	}

	return &s, nil
}

func resolve(ops []Op) error {
	for i := range ops {
		sig, err := ops[i].signature()
		if err != nil {
			return fmt.Errorf("%v: %w", ops[i].Name, err)
		}
		ops[i].sig = sig
	}
	return nil
}

// Interface returns the named interface, or nil if it is not in s.
func (s *Set) Interface(name string) *Interface {
	return s.ifaces[name]
}

// Names returns the names of the interfaces in s in the order in which
// they were declared.
func (s *Set) Names() []string {
	return s.names
}

var builtin = sync.OnceValues(func() (*Set, error) {
	var protos []Protocol
	for _, name := range []string{
		"xml/wayland.xml",
		"xml/xdg-shell.xml",
		"xml/wlr-foreign-toplevel-management-unstable-v1.xml",
	} {
		file, err := xmlFiles.Open(name)
		if err != nil {
			return nil, err
		}
		proto, err := Load(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("load %v: %w", name, err)
		}
		protos = append(protos, proto)
	}
	return NewSet(protos...)
})

// Builtin returns the interfaces that the compositor implements. It
// panics if the embedded protocol descriptions are invalid.
func Builtin() *Set {
	s, err := builtin()
	if err != nil {
		panic(fmt.Errorf("builtin protocols: %w", err))
	}
	return s
}
