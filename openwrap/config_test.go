package openwrap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationDefaults(t *testing.T) {
	cfg := NewConfiguration()

	assert.Nil(t, cfg.GDPREnabled())
	assert.Empty(t, cfg.GDPRConsent())
	assert.Empty(t, cfg.CCPA())
	assert.Equal(t, LinearityUnknown, cfg.Linearity())
	assert.Equal(t, HashTypeRaw, cfg.IdentifierHashType())
	assert.Nil(t, cfg.CustomKeyValues())
	assert.Nil(t, cfg.UserInfo())
	assert.Nil(t, cfg.AppInfo())
}

func TestConfigurationGDPRTriState(t *testing.T) {
	cfg := NewConfiguration()
	require.Nil(t, cfg.GDPREnabled())

	cfg.SetGDPREnabled(false)
	got := cfg.GDPREnabled()
	require.NotNil(t, got)
	assert.False(t, *got)

	cfg.SetGDPREnabled(true)
	got = cfg.GDPREnabled()
	require.NotNil(t, got)
	assert.True(t, *got)
}

func TestConfigurationCustomKeyValuesCopied(t *testing.T) {
	cfg := NewConfiguration()
	in := map[string]string{"a": "1"}
	cfg.SetCustomKeyValues(in)

	// Mutating the caller's map after Set must not leak through.
	in["a"] = "changed"
	in["b"] = "2"
	assert.Equal(t, map[string]string{"a": "1"}, cfg.CustomKeyValues())

	// Mutating the returned copy must not touch the stored map.
	out := cfg.CustomKeyValues()
	out["a"] = "mutated"
	assert.Equal(t, map[string]string{"a": "1"}, cfg.CustomKeyValues())
}

func TestConfigurationConcurrentAccess(t *testing.T) {
	cfg := NewConfiguration()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cfg.SetGDPREnabled(true)
			cfg.SetCCPA("1YNN")
			cfg.SetLinearity(LinearityLinear)
		}()
		go func() {
			defer wg.Done()
			_ = cfg.GDPREnabled()
			_ = cfg.CCPA()
			_ = cfg.Linearity()
		}()
	}
	wg.Wait()

	assert.Equal(t, "1YNN", cfg.CCPA())
}
