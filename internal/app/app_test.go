// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollination/guides/internal/app"
	"github.com/pollination/guides/internal/storage/local"
	"github.com/pollination/guides/internal/storage/memory"
	pkgconfig "github.com/pollination/guides/pkg/config"
)

// setupTest rebuilds the global Viper state with defaults plus fake
// credentials. These tests mutate that global state and must not run in
// parallel.
func setupTest(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, pkgconfig.InitConfig(""))
	viper.Set("api_key", "test-key")
	viper.Set("org", "demo")
	viper.Set("log.level", "error")
}

func TestNewApp_Success(t *testing.T) {
	setupTest(t)
	viper.Set("downloads.provider", "memory")

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a)
	t.Cleanup(a.Close)

	assert.NotNil(t, a.GetLogger())
	assert.NotNil(t, a.GetSleeper())
	assert.IsType(t, &memory.Store{}, a.GetOutputs())
	require.NotNil(t, a.GetClient())
	assert.Equal(t, "demo", a.GetClient().Org())
	assert.Equal(t, "https://api.staging.pollination.cloud", a.GetClient().BaseURL())
	assert.Equal(t, "test-key", a.GetConfig().APIKey)
}

func TestNewApp_LocalProviderCreatesOutputDir(t *testing.T) {
	setupTest(t)
	dir := filepath.Join(t.TempDir(), "outputs")
	viper.Set("downloads.dir", dir)

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &local.Store{}, a.GetOutputs())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewApp_ConfigErrors(t *testing.T) {
	testCases := []struct {
		name          string
		configSetup   func(t *testing.T)
		expectedError string
	}{
		{
			name: "missing API key",
			configSetup: func(t *testing.T) {
				t.Setenv("POLLINATION_API_KEY", "")
				viper.Set("api_key", "")
			},
			expectedError: "api_key must be set",
		},
		{
			name: "missing org",
			configSetup: func(t *testing.T) {
				t.Setenv("POLLINATION_ORG", "")
				viper.Set("org", "")
			},
			expectedError: "org must be set",
		},
		{
			name: "unknown downloads provider",
			configSetup: func(t *testing.T) {
				viper.Set("downloads.provider", "ftp")
			},
			expectedError: "unknown downloads provider: ftp",
		},
		{
			name: "invalid log level",
			configSetup: func(t *testing.T) {
				viper.Set("log.level", "verbose")
			},
			expectedError: "parse log level",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupTest(t)
			tc.configSetup(t)

			_, err := app.NewApp(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}

func TestApp_Close(t *testing.T) {
	setupTest(t)
	viper.Set("downloads.provider", "memory")

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)

	// Close must be safe to call once the app is built.
	a.Close()
}
