package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

func TestNextAllowedTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current models.PackageStatus
		action  Action
		actor   Actor
		want    models.PackageStatus
	}{
		{"stored request release", models.StatusStored, ActionRequestRelease, ActorCustomer, models.StatusRequestToRelease},
		{"stored request dispose", models.StatusStored, ActionRequestDispose, ActorCustomer, models.StatusRequestToDispose},
		{"stored request scan", models.StatusStored, ActionRequestScan, ActorCustomer, models.StatusRequestToScan},
		{"cancel release request", models.StatusRequestToRelease, ActionCancelRequest, ActorCustomer, models.StatusStored},
		{"cancel dispose request", models.StatusRequestToDispose, ActionCancelRequest, ActorCustomer, models.StatusStored},
		{"cancel scan request", models.StatusRequestToScan, ActionCancelRequest, ActorCustomer, models.StatusStored},
		{"confirm receipt", models.StatusReleased, ActionConfirmReceipt, ActorCustomer, models.StatusRetrieved},
		{"approve release", models.StatusRequestToRelease, ActionApproveRelease, ActorAdmin, models.StatusReleased},
		{"approve dispose", models.StatusRequestToDispose, ActionApproveDispose, ActorAdmin, models.StatusDisposed},
		{"complete scan", models.StatusRequestToScan, ActionCompleteScan, ActorAdmin, models.StatusStored},
		{"reject release request", models.StatusRequestToRelease, ActionRejectRequest, ActorAdmin, models.StatusStored},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Next(tc.current, tc.action, tc.actor)
			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
		})
	}
}

func TestNextRejectsWrongActor(t *testing.T) {
	_, err := Next(models.StatusRequestToRelease, ActionApproveRelease, ActorCustomer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = Next(models.StatusStored, ActionRequestRelease, ActorAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestNextRejectsWrongState(t *testing.T) {
	wrong := []struct {
		current models.PackageStatus
		action  Action
		actor   Actor
	}{
		{models.StatusReleased, ActionRequestRelease, ActorCustomer},
		{models.StatusRequestToRelease, ActionRequestDispose, ActorCustomer},
		{models.StatusStored, ActionConfirmReceipt, ActorCustomer},
		{models.StatusStored, ActionApproveRelease, ActorAdmin},
		{models.StatusRequestToDispose, ActionApproveRelease, ActorAdmin},
	}

	for _, tc := range wrong {
		_, err := Next(tc.current, tc.action, tc.actor)
		require.Error(t, err, "expected %s from %s to fail", tc.action, tc.current)
		assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	}
}

func TestNextTerminalStatesRefuseEverything(t *testing.T) {
	actions := []Action{
		ActionRequestRelease, ActionRequestDispose, ActionRequestScan,
		ActionCancelRequest, ActionConfirmReceipt,
		ActionApproveRelease, ActionApproveDispose, ActionCompleteScan, ActionRejectRequest,
	}
	for _, status := range []models.PackageStatus{models.StatusDisposed, models.StatusRetrieved} {
		for _, action := range actions {
			for _, actor := range []Actor{ActorCustomer, ActorAdmin} {
				_, err := Next(status, action, actor)
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
			}
		}
	}
}

func TestNextUnknownAction(t *testing.T) {
	_, err := Next(models.StatusStored, Action("teleport"), ActorCustomer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.False(t, Known(Action("teleport")))
}

func TestAdminOnly(t *testing.T) {
	assert.True(t, AdminOnly(ActionApproveRelease))
	assert.True(t, AdminOnly(ActionRejectRequest))
	assert.False(t, AdminOnly(ActionRequestRelease))
	assert.False(t, AdminOnly(ActionConfirmReceipt))
}
