package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	SetupLogging("warn", false)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	SetupLogging("nonsense", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetupLogging("error", true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
