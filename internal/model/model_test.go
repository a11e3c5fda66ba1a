package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"intern", RoleIntern, false},
		{"admin", RoleAdmin, false},
		{"Admin", 0, true},
		{"manager", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoleJSON(t *testing.T) {
	b, err := json.Marshal(RoleAdmin)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"admin"` {
		t.Errorf("Marshal = %s, want %q", b, `"admin"`)
	}

	var r Role
	if err := json.Unmarshal([]byte(`"intern"`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r != RoleIntern {
		t.Errorf("Unmarshal = %v, want intern", r)
	}

	if err := json.Unmarshal([]byte(`"root"`), &r); err == nil {
		t.Error("expected error for unknown role")
	}

	var zero Role
	if _, err := json.Marshal(zero); err == nil {
		t.Error("expected error marshalling zero role")
	}
}

func TestRoleScanValue(t *testing.T) {
	v, err := RoleIntern.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != "intern" {
		t.Errorf("Value = %v, want intern", v)
	}

	var r Role
	if err := r.Scan([]byte("admin")); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if r != RoleAdmin {
		t.Errorf("Scan = %v, want admin", r)
	}
	if err := r.Scan(int64(2)); err == nil {
		t.Error("expected error scanning integer")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusGenerated, StatusDownloaded, true},
		{StatusGenerated, StatusEmailed, true},
		{StatusDownloaded, StatusEmailed, true},
		{StatusEmailed, StatusDownloaded, false},
		{StatusDownloaded, StatusDownloaded, false},
		{StatusGenerated, Status("archived"), false},
	}
	for _, tt := range tests {
		if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestUserProfileHidesPassword(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	u := User{
		ID:           "u1",
		Email:        "a@x.com",
		PasswordHash: "$2a$12$secret",
		Role:         RoleIntern,
		FirstName:    "Ann",
		LastName:     "Lee",
		IsActive:     true,
		CreatedAt:    now,
	}

	b, err := json.Marshal(u.Profile())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := m["password_hash"]; ok {
		t.Error("profile must not contain password hash")
	}
	if m["fullName"] != "Ann Lee" {
		t.Errorf("fullName = %v, want %q", m["fullName"], "Ann Lee")
	}
	if m["role"] != "intern" {
		t.Errorf("role = %v, want intern", m["role"])
	}
}
