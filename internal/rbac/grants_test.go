package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
	"github.com/horizon-hrms/horizon-hrms/internal/testutil"
)

func newGrants(f *testutil.AccessFixture) *rbac.Grants {
	return rbac.NewGrants(f, nil, nil)
}

func TestGrantCapabilityIdempotent(t *testing.T) {
	ctx := context.Background()
	grants := newGrants(leaveFixture())
	grant := rbac.UserCapabilityGrant{UserID: 200, CapabilityID: capValidate, GrantedBy: "admin"}

	first, err := grants.GrantCapabilityToUser(ctx, grant)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := grants.GrantCapabilityToUser(ctx, grant)
	require.NoError(t, err)
	require.False(t, second.Created)
}

func TestRevokeCapabilityIdempotent(t *testing.T) {
	ctx := context.Background()
	fixture := leaveFixture().WithDirectGrant(200, capValidate)
	grants := newGrants(fixture)

	first, err := grants.RevokeCapabilityFromUser(ctx, 200, capValidate)
	require.NoError(t, err)
	require.True(t, first.Removed)

	second, err := grants.RevokeCapabilityFromUser(ctx, 200, capValidate)
	require.NoError(t, err)
	require.False(t, second.Removed)
}

func TestAssignAndRevokeRole(t *testing.T) {
	ctx := context.Background()
	grants := newGrants(leaveFixture())

	created, err := grants.AssignRoleToUser(ctx, rbac.UserRoleGrant{UserID: 200, RoleID: roleApprovers, AssignedBy: "admin"})
	require.NoError(t, err)
	require.True(t, created.Created)

	again, err := grants.AssignRoleToUser(ctx, rbac.UserRoleGrant{UserID: 200, RoleID: roleApprovers})
	require.NoError(t, err)
	require.False(t, again.Created)

	removed, err := grants.RevokeRoleFromUser(ctx, 200, roleApprovers, nil)
	require.NoError(t, err)
	require.True(t, removed.Removed)

	removed, err = grants.RevokeRoleFromUser(ctx, 200, roleApprovers, nil)
	require.NoError(t, err)
	require.False(t, removed.Removed)
}

func TestModuleScopedRoleRevocation(t *testing.T) {
	ctx := context.Background()
	grants := newGrants(leaveFixture())
	scope := moduleLeave

	_, err := grants.AssignRoleToUser(ctx, rbac.UserRoleGrant{UserID: 200, RoleID: roleApprovers, ModuleID: &scope})
	require.NoError(t, err)

	other := int64(99)
	removed, err := grants.RevokeRoleFromUser(ctx, 200, roleApprovers, &other)
	require.NoError(t, err)
	require.False(t, removed.Removed)

	removed, err = grants.RevokeRoleFromUser(ctx, 200, roleApprovers, &scope)
	require.NoError(t, err)
	require.True(t, removed.Removed)
}

func TestBindCapabilitiesReportsCounts(t *testing.T) {
	ctx := context.Background()
	fixture := leaveFixture().
		WithCapability(43, moduleLeave, "/rh/conges/demander").
		WithCapability(44, moduleLeave, "/rh/conges/annuler").
		WithRoleCapability(roleApprovers, capValidate)
	grants := newGrants(fixture)

	result, err := grants.BindCapabilitiesToRole(ctx, roleApprovers, []int64{capValidate, 43, 44})
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 1, result.Existing)

	// Re-running the same bulk bind creates nothing new.
	result, err = grants.BindCapabilitiesToRole(ctx, roleApprovers, []int64{capValidate, 43, 44})
	require.NoError(t, err)
	require.Equal(t, 0, result.Created)
	require.Equal(t, 3, result.Existing)
}

func TestUnbindCapabilityIdempotent(t *testing.T) {
	ctx := context.Background()
	fixture := leaveFixture().WithRoleCapability(roleApprovers, capValidate)
	grants := newGrants(fixture)

	removed, err := grants.UnbindCapabilityFromRole(ctx, roleApprovers, capValidate)
	require.NoError(t, err)
	require.True(t, removed.Removed)

	removed, err = grants.UnbindCapabilityFromRole(ctx, roleApprovers, capValidate)
	require.NoError(t, err)
	require.False(t, removed.Removed)
}

func TestRevokeTakesEffectOnNextAuthorize(t *testing.T) {
	ctx := context.Background()
	fixture := leaveFixture().WithDirectGrant(200, capValidate)
	engine := newEngine(fixture)
	grants := newGrants(fixture)

	require.True(t, engine.Authorize(ctx, activeActor(200), rbac.RefByID(capValidate)).Allowed)

	_, err := grants.RevokeCapabilityFromUser(ctx, 200, capValidate)
	require.NoError(t, err)

	decision := engine.Authorize(ctx, activeActor(200), rbac.RefByID(capValidate))
	require.False(t, decision.Allowed)
	require.Equal(t, rbac.ReasonAccessDenied, decision.Reason)
}
