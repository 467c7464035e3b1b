package activity

import (
	"context"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage/memory"
)

const (
	genericVault = "0x00000000000000000000000000000000000000aa"
	genesisVault = "0x00000000000000000000000000000000000000bb"
	alice        = "0x00000000000000000000000000000000000000a1"
	bob          = "0x00000000000000000000000000000000000000b2"
)

func seed(t *testing.T, db *memory.DB, vault string, n int, typ domain.ActivityType, user string, ts int64) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := db.Activities().Record(context.Background(), &domain.Activity{
			ID:           fmt.Sprintf("%s-%s-%s-%d", vault, typ, user, i),
			VaultAddress: vault,
			Type:         typ,
			UserAddress:  user,
			ConditionID:  "0xc1",
			YesAmount:    *uint256.NewInt(1),
			Timestamp:    ts + int64(i),
		})
		require.NoError(t, err)
	}
}

func newService() (*Service, *memory.DB) {
	db := memory.New()
	return NewService(db.Activities(), []domain.Vault{
		{Address: genericVault, Family: domain.FamilyGeneric},
		{Address: genesisVault, Family: domain.FamilyGenesis},
	}), db
}

func TestService_ListDefaultsToFamilyTypes(t *testing.T) {
	svc, db := newService()
	seed(t, db, genericVault, 3, domain.ActivityDeposit, alice, 100)
	seed(t, db, genericVault, 2, domain.ActivityClaim, alice, 200)

	got, err := svc.List(context.Background(), Query{VaultAddress: genericVault})
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, domain.ActivityClaim, got[0].Type)
	assert.Equal(t, int64(201), got[0].Timestamp)
}

func TestService_ListPaginates(t *testing.T) {
	svc, db := newService()
	seed(t, db, genericVault, 15, domain.ActivityDeposit, alice, 100)
	ctx := context.Background()

	first, err := svc.List(ctx, Query{VaultAddress: genericVault})
	require.NoError(t, err)
	require.Len(t, first, domain.ActivityPageSize)

	second, err := svc.List(ctx, Query{VaultAddress: genericVault, Skip: 10})
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, int64(104), second[0].Timestamp)
}

func TestService_SinceWinsOverSkip(t *testing.T) {
	svc, db := newService()
	seed(t, db, genericVault, 5, domain.ActivityDeposit, alice, 100)

	since := int64(103)
	got, err := svc.List(context.Background(), Query{VaultAddress: genericVault, Since: &since, Skip: 4})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(104), got[0].Timestamp)
	assert.Equal(t, int64(103), got[1].Timestamp)
}

func TestService_FiltersTypesAndUser(t *testing.T) {
	svc, db := newService()
	seed(t, db, genesisVault, 2, domain.ActivityBatchDeposit, alice, 100)
	seed(t, db, genesisVault, 2, domain.ActivityBatchDeposit, bob, 100)
	seed(t, db, genesisVault, 1, domain.ActivityWithdraw, alice, 100)

	got, err := svc.List(context.Background(), Query{
		VaultAddress: genesisVault,
		Types:        []string{"BatchDeposit", "BatchDeposit"},
		UserAddress:  "0x00000000000000000000000000000000000000A1",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, a := range got {
		assert.Equal(t, alice, a.UserAddress)
		assert.Equal(t, domain.ActivityBatchDeposit, a.Type)
	}
}

func TestService_ListValidation(t *testing.T) {
	svc, _ := newService()
	cases := []struct {
		name string
		q    Query
	}{
		{"missing vault", Query{}},
		{"unknown vault", Query{VaultAddress: "0x00000000000000000000000000000000000000cc"}},
		{"negative skip", Query{VaultAddress: genericVault, Skip: -1}},
		{"type outside family", Query{VaultAddress: genericVault, Types: []string{"BatchDeposit"}}},
		{"unknown type", Query{VaultAddress: genericVault, Types: []string{"Swap"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.List(context.Background(), tc.q)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
