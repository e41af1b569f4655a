package dbus

import (
	"strings"
	"testing"
)

func TestIntrospect_PropertiesInterfaceOnlyWhenDeclared(t *testing.T) {
	reg := &fakeRegistrar{}
	obj := newTestObject(t, reg, []Interface{{Name: "com.example.Widget"}})

	xml, err := obj.Introspect()
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if strings.Contains(xml, PropertiesInterface) {
		t.Fatalf("Properties interface advertised with no declared properties:\n%s", xml)
	}
}

func TestIntrospect_PropertiesInterfaceAdvertisedWithCanonicalMembers(t *testing.T) {
	reg := &fakeRegistrar{}
	obj := newTestObject(t, reg, []Interface{{
		Name:       "com.example.Widget",
		Properties: []Property{{Name: "Speed", Type: "i", Access: ReadWrite}},
	}})

	xml, err := obj.Introspect()
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if !strings.Contains(xml, PropertiesInterface) {
		t.Fatalf("Properties interface not advertised despite a declared property:\n%s", xml)
	}
	for _, member := range []string{"Get", "Set", "GetAll"} {
		if !strings.Contains(xml, `name="`+member+`"`) {
			t.Fatalf("Properties interface missing canonical member %s:\n%s", member, xml)
		}
	}
}

func TestIntrospect_SignalArgsHaveNoDirection(t *testing.T) {
	reg := &fakeRegistrar{}
	obj := newTestObject(t, reg, []Interface{{
		Name: "com.example.Widget",
		Signals: []Signal{
			{Name: "SpeedChanged", Args: []Arg{{Name: "speed", Type: "i"}}},
		},
	}})

	xml, err := obj.Introspect()
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	start := strings.Index(xml, `<signal name="SpeedChanged">`)
	if start < 0 {
		t.Fatalf("signal SpeedChanged missing from introspection:\n%s", xml)
	}
	signal := xml[start:]
	if end := strings.Index(signal, `</signal>`); end >= 0 {
		signal = signal[:end]
	}
	if strings.Contains(signal, `direction=`) {
		t.Fatalf("signal arg carries a direction attribute, want none:\n%s", xml)
	}
}

func TestIntrospect_MethodArgsStillCarryDirection(t *testing.T) {
	reg := &fakeRegistrar{}
	obj := newTestObject(t, reg, []Interface{{
		Name: "com.example.Widget",
		Methods: []Method{
			{Name: "Spin", Args: []Arg{{Name: "speed", Type: "i", Direction: In}}, Marshaller: echoMarshaller},
		},
	}})

	xml, err := obj.Introspect()
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if !strings.Contains(xml, `direction="in"`) {
		t.Fatalf("method arg missing direction attribute:\n%s", xml)
	}
}

func TestIntrospect_ListsChildNodes(t *testing.T) {
	reg := &fakeRegistrar{children: []string{"child1", "child2"}}
	obj := newTestObject(t, reg, []Interface{{Name: "com.example.Widget"}})

	xml, err := obj.Introspect()
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	for _, child := range reg.children {
		if !strings.Contains(xml, `name="`+child+`"`) {
			t.Fatalf("child node %s missing from introspection:\n%s", child, xml)
		}
	}
}
