package debug

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("off")
	require.NoError(t, err)
	assert.Nil(t, level)

	level, err = ParseLevel(" Trace ")
	require.NoError(t, err)
	require.NotNil(t, level)
	assert.Equal(t, logrus.TraceLevel, *level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetupPrefersEnvironment(t *testing.T) {
	t.Setenv("OXYDE_LOG", "warn")
	require.NoError(t, Setup("debug"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	t.Setenv("OXYDE_LOG", "")
	require.NoError(t, Setup("error"))
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())

	t.Setenv("OXYDE_LOG", "bogus")
	assert.Error(t, Setup("info"))
}
