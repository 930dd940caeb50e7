package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, 12*time.Hour, c.AccessTokenValidityDuration)
	assert.NotEmpty(t, c.DatabaseDSN)
	assert.Equal(t, "venue-photos", c.S3Bucket)
}

func TestParseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-a", ":9999", "-k", "prod-secret"}

	var c Config
	c.LoadDefaults()
	parseFlags(&c)

	assert.Equal(t, ":9999", c.EndpointAddr)
	assert.Equal(t, "prod-secret", c.SecretKey)
}

func TestLoadConfig_NotNil(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	require.NotNil(t, LoadConfig())
}
