package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeRoles(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  []string
		want []Role
	}{
		{"mixed case and whitespace", []string{" admin ", "Driver"}, []Role{RoleAdmin, RoleDriver}},
		{"unknown roles dropped", []string{"dispatcher", "customer", "root"}, []Role{RoleCustomer}},
		{"empty input", nil, nil},
		{"all unknown", []string{"", "superuser"}, nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeRoles(tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("NormalizeRoles(%v) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestActorRoles(t *testing.T) {
	t.Parallel()

	admin := Actor{ID: "a1", Roles: []Role{RoleAdmin, RoleDriver}}
	if !admin.IsAdmin() || !admin.HasRole(RoleDriver) {
		t.Error("expected admin with driver role")
	}
	if admin.HasRole(RoleCustomer) {
		t.Error("unexpected customer role")
	}

	anonymous := Actor{}
	if anonymous.IsAuthenticated() {
		t.Error("empty actor must not be authenticated")
	}
}
