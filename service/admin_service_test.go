package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestAdminRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := GetAdminService()

	exists, err := svc.AdminExists(ctx, db)
	require.NoError(t, err)
	assert.False(t, exists)

	require.Error(t, svc.RegisterAdmin(ctx, db, "tiny"))
	require.NoError(t, svc.RegisterAdmin(ctx, db, "correct horse"))
	require.Error(t, svc.RegisterAdmin(ctx, db, "correct horse"))

	ok, err := svc.LoginAdmin(ctx, db, basicAuth("admin", "correct horse"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.LoginAdmin(ctx, db, basicAuth("admin", "wrong"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.LoginAdmin(ctx, db, basicAuth("not-admin", "correct horse"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.LoginAdmin(ctx, db, "garbage header")
	require.NoError(t, err)
	assert.False(t, ok)
}
