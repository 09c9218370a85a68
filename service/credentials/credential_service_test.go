/*
 * @module service/credentials/credential_service_test
 * @description 凭据服务集成测试
 * @architecture 测试层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 存储加密凭据 -> 解析还原明文 -> bcrypt校验
 * @rules 覆盖加解密往返、激活切换、错误主密钥和校验接口
 * @dependencies testify, sqlite
 * @refs service/credentials/credential_service.go
 */

package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasync-service/service/models"
	"datasync-service/testutil"
)

const testMasterKey = "test-master-key-not-for-production"

func setupCredentialTest(t *testing.T) (*testutil.TestDB, *CredentialService) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	svc, err := NewCredentialService(tdb.DB, testMasterKey)
	require.NoError(t, err)
	return tdb, svc
}

func TestNewCredentialService_主密钥缺失拒绝(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	_, err := NewCredentialService(tdb.DB, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "主密钥")
}

func TestCredentialService_存储与解析往返(t *testing.T) {
	_, svc := setupCredentialTest(t)

	cred, err := svc.Store("construtora-x", "svc-integration", "s3nh@-api!")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.ID)
	assert.True(t, cred.IsActive)
	// 密文不等于明文
	assert.NotEqual(t, "s3nh@-api!", cred.PasswordEncrypted)
	assert.NotEmpty(t, cred.PasswordIV)
	assert.NotEmpty(t, cred.PasswordSalt)

	resolved, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "construtora-x", resolved.Subdomain)
	assert.Equal(t, "svc-integration", resolved.Username)
	assert.Equal(t, "s3nh@-api!", resolved.Password)
}

func TestCredentialService_新凭据停用旧凭据(t *testing.T) {
	tdb, svc := setupCredentialTest(t)

	first, err := svc.Store("construtora-x", "user-a", "senha-a")
	require.NoError(t, err)
	_, err = svc.Store("construtora-x", "user-b", "senha-b")
	require.NoError(t, err)

	var old models.ApiCredential
	require.NoError(t, tdb.DB.First(&old, "id = ?", first.ID).Error)
	assert.False(t, old.IsActive)

	var activeCount int64
	require.NoError(t, tdb.DB.Model(&models.ApiCredential{}).
		Where("is_active = ?", true).Count(&activeCount).Error)
	assert.Equal(t, int64(1), activeCount)

	resolved, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-b", resolved.Username)
}

func TestCredentialService_无激活凭据(t *testing.T) {
	_, svc := setupCredentialTest(t)

	_, err := svc.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveCredential)

	_, err = svc.Verify("construtora-x", "qualquer")
	assert.ErrorIs(t, err, ErrNoActiveCredential)
}

func TestCredentialService_空字段拒绝(t *testing.T) {
	_, svc := setupCredentialTest(t)

	_, err := svc.Store("", "user", "senha")
	require.Error(t, err)
	_, err = svc.Store("sub", "", "senha")
	require.Error(t, err)
	_, err = svc.Store("sub", "user", "")
	require.Error(t, err)
}

func TestCredentialService_密码校验(t *testing.T) {
	_, svc := setupCredentialTest(t)

	_, err := svc.Store("construtora-x", "svc-integration", "senha-correta")
	require.NoError(t, err)

	ok, err := svc.Verify("construtora-x", "senha-correta")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify("construtora-x", "senha-errada")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialService_主密钥错误解密失败(t *testing.T) {
	tdb, svc := setupCredentialTest(t)

	_, err := svc.Store("construtora-x", "svc-integration", "senha")
	require.NoError(t, err)

	wrongKeySvc, err := NewCredentialService(tdb.DB, "outra-chave-mestra")
	require.NoError(t, err)

	_, err = wrongKeySvc.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "解密")
}

func TestCredentialService_激活凭据信息不含敏感字段(t *testing.T) {
	_, svc := setupCredentialTest(t)

	_, err := svc.Store("construtora-x", "svc-integration", "senha")
	require.NoError(t, err)

	info, err := svc.ActiveCredentialInfo()
	require.NoError(t, err)
	assert.Equal(t, "construtora-x", info.Subdomain)
	assert.Equal(t, "svc-integration", info.APIUser)
	assert.Empty(t, info.PasswordEncrypted)
	assert.Empty(t, info.PasswordIV)
	assert.Empty(t, info.PasswordSalt)
	assert.Empty(t, info.PasswordHash)
}
