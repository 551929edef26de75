package postgresql

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/auth"
)

type leaveRequest struct {
	WorkerID *int    `json:"worker_id"`
	Reason   *string `json:"reason" validate:"omitempty,max=10"`
}

func TestValidateStruct(t *testing.T) {
	var d Database

	err := d.ValidateStruct(&leaveRequest{}, "WorkerID")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, web.StatusOf(err))

	var webErr *web.Error
	require.ErrorAs(t, err, &webErr)
	require.Len(t, webErr.Fields, 1)
	assert.Equal(t, "worker_id", webErr.Fields[0].Field)

	id := 3
	long := "far too long a reason"
	err = d.ValidateStruct(&leaveRequest{WorkerID: &id, Reason: &long}, "WorkerID")
	require.Error(t, err)
	require.ErrorAs(t, err, &webErr)
	assert.Equal(t, "reason", webErr.Fields[0].Field)

	short := "sick"
	assert.NoError(t, d.ValidateStruct(&leaveRequest{WorkerID: &id, Reason: &short}, "WorkerID"))
}

func TestCheckClaims(t *testing.T) {
	var d Database

	_, err := d.CheckClaims(context.Background())
	assert.Equal(t, http.StatusUnauthorized, web.StatusOf(err))

	ctx := context.WithValue(context.Background(), auth.Key, auth.Claims{UserId: 4, Role: auth.RoleKiosk})

	claims, err := d.CheckClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, claims.UserId)

	_, err = d.CheckClaims(ctx, auth.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, web.StatusOf(err))
}
