package gate_test

import (
	"testing"

	"github.com/diewo77/dealership-api/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("sale", gate.ActionConclude)
	if perm != "sale:conclude" {
		t.Errorf("expected 'sale:conclude', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.Permission("vehicle:view").Parse()
	if res != "vehicle" || act != gate.ActionView {
		t.Errorf("expected vehicle/view, got '%s'/'%s'", res, act)
	}
	res, act = gate.Permission("invalid").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty strings, got '%s' and '%s'", res, act)
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		granted   gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"sale:create", "sale:create", true},
		{"sale:create", "sale:delete", false},
		{"sale:create", "client:create", false},
		{"sale:*", "sale:pay", true},
		{"sale:*", "vehicle:pay", false},
		{gate.PermissionSuperAdmin, "vehicle:delete", true},
		{"client:*", gate.PermissionSuperAdmin, false},
		{"broken", "broken", true},
		{"broken:*", "other", false},
	}
	for _, tt := range tests {
		if got := tt.granted.Matches(tt.requested); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.granted, tt.requested, got, tt.want)
		}
	}
}
