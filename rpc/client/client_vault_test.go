package client

import (
	"errors"
	"testing"

	"github.com/crmvault/crmvault/lib/vault"
	"github.com/crmvault/crmvault/rpc/common"
)

func TestToVaultErrorRestoresCodes(t *testing.T) {
	cases := map[string]vault.FailCode{
		vault.NewError(vault.FailContention, "busy").Error():       vault.FailContention,
		vault.NewError(vault.FailNotFound, "gone").Error():         vault.FailNotFound,
		vault.NewError(vault.FailInvalidEntity, "bad").Error():     vault.FailInvalidEntity,
		vault.NewError(vault.FailStoreIO, "io").Error():            vault.FailStoreIO,
		"some plain error message without an embedded vault code ": vault.FailStoreIO,
	}

	for wire, want := range cases {
		resp := &common.Message{Err: wire}
		got := toVaultError(resp, errors.New(wire))
		if vault.CodeOf(got) != want {
			t.Errorf("toVaultError(%q) = %s, want %s", wire, vault.CodeOf(got), want)
		}
	}
}

func TestToVaultErrorWithoutResponse(t *testing.T) {
	got := toVaultError(nil, errors.New("connection refused"))
	if vault.CodeOf(got) != vault.FailStoreIO {
		t.Errorf("transport failure must classify as StoreIO, got %s", vault.CodeOf(got))
	}
}
