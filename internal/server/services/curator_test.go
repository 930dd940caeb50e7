package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/dmitrijs2005/placekeeper/internal/server/auth"
	"github.com/dmitrijs2005/placekeeper/internal/server/config"
	"github.com/dmitrijs2005/placekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func newCuratorService() *CuratorService {
	return NewCuratorService(nil, repomanager.NewInMemoryRepositoryManager(), testServerConfig())
}

func TestRegister_IssuesUsableToken(t *testing.T) {
	svc := newCuratorService()

	sess, err := svc.Register(context.Background(), "ada", "Ada Lovelace", "pw")
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", sess.Curator.Name)
	id, err := auth.CuratorIDFromToken(sess.Token, testServerConfig().SecretKey)
	require.NoError(t, err)
	assert.Equal(t, sess.Curator.ID, id)
}

func TestRegister_TakenLogin(t *testing.T) {
	svc := newCuratorService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada", "Ada", "pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ada", "Other Ada", "pw2")
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestRegister_EmptyCredentialsRejected(t *testing.T) {
	svc := newCuratorService()

	_, err := svc.Register(context.Background(), "", "Ada", "pw")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Register(context.Background(), "ada", "Ada", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin_CorrectAndWrongPassword(t *testing.T) {
	svc := newCuratorService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada", "Ada", "pw")
	require.NoError(t, err)

	sess, err := svc.Login(ctx, "ada", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.Login(ctx, "ada", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_UnknownAccountLooksLikeWrongPassword(t *testing.T) {
	svc := newCuratorService()

	_, err := svc.Login(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
