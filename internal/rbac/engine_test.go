package rbac_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
	"github.com/horizon-hrms/horizon-hrms/internal/testutil"
)

const (
	moduleLeave   = int64(7)
	capValidate   = int64(42)
	pathValidate  = "/rh/conges/valider"
	chiefUserID   = int64(100)
	roleApprovers = int64(5)
)

func leaveFixture() *testutil.AccessFixture {
	return testutil.NewAccessFixture().
		WithModule(moduleLeave, chiefUserID).
		WithCapability(capValidate, moduleLeave, pathValidate)
}

func newEngine(f *testutil.AccessFixture) *rbac.Engine {
	return rbac.NewEngine(f, f, nil, nil)
}

func activeActor(id int64) *rbac.Actor {
	return &rbac.Actor{ID: id, IsActive: true}
}

func TestAuthorizeGrantCombinations(t *testing.T) {
	const userID = int64(200)

	for i := 0; i < 8; i++ {
		chief := i&1 != 0
		direct := i&2 != 0
		viaRole := i&4 != 0
		name := fmt.Sprintf("chief=%t direct=%t role=%t", chief, direct, viaRole)

		t.Run(name, func(t *testing.T) {
			fixture := testutil.NewAccessFixture().
				WithCapability(capValidate, moduleLeave, pathValidate)
			if chief {
				fixture.WithModule(moduleLeave, userID)
			} else {
				fixture.WithModule(moduleLeave, 0)
			}
			if direct {
				fixture.WithDirectGrant(userID, capValidate)
			}
			if viaRole {
				fixture.WithUserRole(userID, roleApprovers)
				fixture.WithRoleCapability(roleApprovers, capValidate)
			}

			decision := newEngine(fixture).Authorize(context.Background(), activeActor(userID), rbac.RefByPath(pathValidate))

			wantAllow := chief || direct || viaRole
			require.Equal(t, wantAllow, decision.Allowed)
			if !wantAllow {
				require.Equal(t, rbac.ReasonAccessDenied, decision.Reason)
			}
		})
	}
}

func TestAuthorizeChiefOverride(t *testing.T) {
	// The chief has zero direct or role grants and is still allowed.
	engine := newEngine(leaveFixture())

	decision := engine.Authorize(context.Background(), activeActor(chiefUserID), rbac.RefByPath(pathValidate))

	require.True(t, decision.Allowed)
}

func TestAuthorizeRoleDerived(t *testing.T) {
	fixture := leaveFixture().
		WithUserRole(200, roleApprovers).
		WithRoleCapability(roleApprovers, capValidate)

	decision := newEngine(fixture).Authorize(context.Background(), activeActor(200), rbac.RefByPath(pathValidate))

	require.True(t, decision.Allowed)
}

func TestAuthorizeByIDAndPathResolveSameRow(t *testing.T) {
	fixture := leaveFixture().WithDirectGrant(200, capValidate)
	engine := newEngine(fixture)
	actor := activeActor(200)

	byPath := engine.Authorize(context.Background(), actor, rbac.RefByPath(pathValidate))
	byID := engine.Authorize(context.Background(), actor, rbac.RefByID(capValidate))

	require.True(t, byPath.Allowed)
	require.True(t, byID.Allowed)
}

func TestAuthorizeInactiveActorDeniesDespiteGrant(t *testing.T) {
	fixture := leaveFixture().WithDirectGrant(300, capValidate)
	actor := &rbac.Actor{ID: 300, IsActive: false}

	decision := newEngine(fixture).Authorize(context.Background(), actor, rbac.RefByPath(pathValidate))

	require.False(t, decision.Allowed)
	require.Equal(t, rbac.ReasonActorInactive, decision.Reason)
}

func TestAuthorizeUnknownCapability(t *testing.T) {
	engine := newEngine(leaveFixture())

	decision := engine.Authorize(context.Background(), activeActor(chiefUserID), rbac.RefByPath("/does/not/exist"))

	require.False(t, decision.Allowed)
	require.Equal(t, rbac.ReasonCapabilityNotFound, decision.Reason)
}

func TestAuthorizeMissingActor(t *testing.T) {
	engine := newEngine(leaveFixture())

	decision := engine.Authorize(context.Background(), nil, rbac.RefByPath(pathValidate))

	require.False(t, decision.Allowed)
	require.Equal(t, rbac.ReasonUnauthenticated, decision.Reason)
}

func TestAuthorizeStorageFailureFailsClosed(t *testing.T) {
	fixture := leaveFixture().WithDirectGrant(200, capValidate)
	fixture.FailStorage = true

	decision := newEngine(fixture).Authorize(context.Background(), activeActor(200), rbac.RefByPath(pathValidate))

	require.False(t, decision.Allowed)
	require.Equal(t, rbac.ReasonStorageUnavailable, decision.Reason)
}

type recordedDecision struct {
	allowed bool
	reason  string
}

type stubRecorder struct {
	decisions []recordedDecision
}

func (r *stubRecorder) RecordDecision(allowed bool, reason string) {
	r.decisions = append(r.decisions, recordedDecision{allowed: allowed, reason: reason})
}

func TestAuthorizeRecordsDecisions(t *testing.T) {
	recorder := &stubRecorder{}
	fixture := leaveFixture()
	engine := rbac.NewEngine(fixture, fixture, nil, recorder)

	engine.Authorize(context.Background(), activeActor(chiefUserID), rbac.RefByPath(pathValidate))
	engine.Authorize(context.Background(), activeActor(999), rbac.RefByPath(pathValidate))

	require.Len(t, recorder.decisions, 2)
	require.True(t, recorder.decisions[0].allowed)
	require.False(t, recorder.decisions[1].allowed)
	require.Equal(t, string(rbac.ReasonAccessDenied), recorder.decisions[1].reason)
}
