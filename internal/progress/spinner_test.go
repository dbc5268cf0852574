package progress

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSpinner_NonTTYWriterIsInactive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "spinner")
	assert.NoError(t, err)
	defer f.Close()

	s := NewSpinner(f)
	assert.False(t, s.isTTY)
}

func TestSpinner_StartStopNoopWhenNotTTY(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "spinner")
	assert.NoError(t, err)
	defer f.Close()

	s := NewSpinner(f)
	s.Start("working")
	s.Update("still working")
	s.Stop("done")

	assert.False(t, s.active)
}
