package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AUTHORIZATION", "")
	t.Setenv("ALL_PROXY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3040", cfg.Port)
	assert.Empty(t, cfg.Authorization)
	assert.Nil(t, cfg.ProxyURL)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("AUTHORIZATION", "Bearer secret")
	t.Setenv("ALL_PROXY", "socks5://127.0.0.1:1080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "Bearer secret", cfg.Authorization)
	require.NotNil(t, cfg.ProxyURL)
	assert.Equal(t, "socks5", cfg.ProxyURL.Scheme)
	assert.Equal(t, "127.0.0.1:1080", cfg.ProxyURL.Host)
}

func TestLoadInvalidPort(t *testing.T) {
	for _, port := range []string{"not-a-port", "-1", "70000"} {
		t.Run(port, func(t *testing.T) {
			t.Setenv("PORT", port)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "$PORT")
		})
	}
}

func TestLoadUnsupportedProxyScheme(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALL_PROXY", "ftp://127.0.0.1:21")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$ALL_PROXY")
}
