package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimProtocol(t *testing.T) {
	assert.Equal(t, "localhost:4318", trimProtocol("http://localhost:4318"))
	assert.Equal(t, "collector:4318", trimProtocol("https://collector:4318"))
	assert.Equal(t, "collector:4318", trimProtocol("collector:4318"))
}
