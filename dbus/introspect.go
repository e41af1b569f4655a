package dbus

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

// Introspect renders the standard introspection XML for o per §4.6: the
// Introspectable interface is always present, each declared interface
// follows in table order, the Properties interface is advertised iff
// any declared interface has at least one property, and one child
// <node> entry is emitted per immediate child path component. Any
// marshalling failure yields an error and no partial document.
func (o *Object) Introspect() (string, error) {
	node := &introspect.Node{
		Name:       o.Path,
		Interfaces: []introspect.Interface{introspect.IntrospectData},
	}

	for _, iface := range o.Interfaces {
		node.Interfaces = append(node.Interfaces, toIntrospectInterface(iface))
	}

	if HasProperties(o.Interfaces) {
		node.Interfaces = append(node.Interfaces, prop.IntrospectData)
	}

	if o.registrar != nil {
		for _, child := range o.registrar.ListChildren(o.Path) {
			node.Children = append(node.Children, introspect.Node{Name: child})
		}
	}

	out, err := xml.MarshalIndent(node, "", "  ")
	if err != nil {
		return "", fmt.Errorf("dbus: introspect %s: %w", o.Path, err)
	}

	var b strings.Builder
	b.WriteString(introspect.IntrospectDeclaration)
	b.Write(out)
	return b.String(), nil
}

func toIntrospectInterface(iface Interface) introspect.Interface {
	out := introspect.Interface{Name: iface.Name}

	for _, m := range iface.Methods {
		out.Methods = append(out.Methods, introspect.Method{
			Name: m.Name,
			Args: toIntrospectArgs(m.Args),
		})
	}

	for _, s := range iface.Signals {
		out.Signals = append(out.Signals, introspect.Signal{
			Name: s.Name,
			Args: toSignalArgs(s.Args),
		})
	}

	for _, p := range iface.Properties {
		out.Properties = append(out.Properties, introspect.Property{
			Name:   p.Name,
			Type:   p.Type,
			Access: p.Access.String(),
		})
	}

	return out
}

func toIntrospectArgs(args []Arg) []introspect.Arg {
	out := make([]introspect.Arg, 0, len(args))
	for _, a := range args {
		out = append(out, introspect.Arg{
			Name:      a.Name,
			Type:      a.Type,
			Direction: a.Direction.String(),
		})
	}
	return out
}

// toSignalArgs converts signal arguments without a Direction: signals
// have no in/out sense, and the source emits bare <arg name type/>
// elements for them.
func toSignalArgs(args []Arg) []introspect.Arg {
	out := make([]introspect.Arg, 0, len(args))
	for _, a := range args {
		out = append(out, introspect.Arg{
			Name: a.Name,
			Type: a.Type,
		})
	}
	return out
}
