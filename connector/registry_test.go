package connector

import "testing"

type stubConnector struct {
	BaseConnector
	endpoints Endpoints
}

func (stubConnector) Name() string                       { return "stub" }
func (stubConnector) RequiredCredentials() []ConfigField { return nil }
func (s stubConnector) Authorize() AuthorizeOperation    { return nil }

func TestRegistryRegisterAndCreate(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", func(endpoints Endpoints) Connector {
		return stubConnector{endpoints: endpoints}
	})

	factory, err := registry.Get("stub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if factory == nil {
		t.Fatal("expected a factory")
	}

	conn, err := registry.CreateConnector("stub", Endpoints{BaseURL: "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.Name() != "stub" {
		t.Errorf("expected stub, got %s", conn.Name())
	}
}

func TestRegistryUnknownConnector(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Get("nope"); err == nil {
		t.Error("expected unknown connector to fail")
	}
	if _, err := registry.CreateConnector("nope", Endpoints{}); err == nil {
		t.Error("expected unknown connector to fail")
	}
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry()
	registry.Register("a", func(Endpoints) Connector { return stubConnector{} })
	registry.Register("b", func(Endpoints) Connector { return stubConnector{} })

	names := registry.Names()
	if len(names) != 2 {
		t.Errorf("expected 2 names, got %v", names)
	}
}

func TestSupportedFlows(t *testing.T) {
	flows := SupportedFlows(stubConnector{})
	if len(flows) != 0 {
		t.Errorf("a connector with nil operations supports nothing, got %v", flows)
	}
}
