package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestCheckOwnership(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	p := &Principal{ApplicationID: owner, Name: "docs"}
	if !CheckOwnership(p, owner) {
		t.Error("principal denied access to its own resource")
	}
	if CheckOwnership(p, other) {
		t.Error("principal granted access to a foreign resource")
	}
}

func TestCheckOwnershipAdminDoesNotBypass(t *testing.T) {
	admin := &Principal{ApplicationID: uuid.New(), Name: "ops", IsAdmin: true}
	foreign := uuid.New()

	if CheckOwnership(admin, foreign) {
		t.Fatal("admin bypassed the ownership check")
	}
	if !CheckOwnership(admin, admin.ApplicationID) {
		t.Error("admin denied access to its own resource")
	}
}

func TestCheckOwnershipNilPrincipal(t *testing.T) {
	if CheckOwnership(nil, uuid.New()) {
		t.Fatal("nil principal passed the ownership check")
	}
}
