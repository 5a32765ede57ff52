package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconcilePolicyDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewReconcilePolicyHolder(Config{}, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.True(t, policy.AutoCapture)
	assert.Equal(t, "paid", policy.PaidOrderStatus)
	assert.Equal(t, "INR", policy.DefaultCurrency)
}

func TestReconcilePolicyReadsExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconcile.yml")
	content := []byte("reconcile:\n  autoCapture: false\n  paidOrderStatus: settled\n  defaultCurrency: USD\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewReconcilePolicyHolder(Config{ReconcileConfigPath: path}, zap.NewNop())
	require.NoError(t, err)

	policy := holder.Get()
	assert.False(t, policy.AutoCapture)
	assert.Equal(t, "settled", policy.PaidOrderStatus)
	assert.Equal(t, "USD", policy.DefaultCurrency)
}

func TestReconcilePolicyRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconcile.yml")
	content := []byte("reconcile:\n  paidOrderStatus: \"\"\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err := NewReconcilePolicyHolder(Config{ReconcileConfigPath: path}, zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *ReconcilePolicyHolder
	assert.Equal(t, DefaultReconcilePolicy(), holder.Get())
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("PAYRAIL_TEST_TIMEOUT", "15")
	assert.Equal(t, "15s", getenvDuration("PAYRAIL_TEST_TIMEOUT", 0).String())

	t.Setenv("PAYRAIL_TEST_TIMEOUT", "250ms")
	assert.Equal(t, "250ms", getenvDuration("PAYRAIL_TEST_TIMEOUT", 0).String())

	t.Setenv("PAYRAIL_TEST_TIMEOUT", "bogus")
	assert.Equal(t, "10s", getenvDuration("PAYRAIL_TEST_TIMEOUT", 10_000_000_000).String())
}
