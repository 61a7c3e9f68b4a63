package credits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredits(t *testing.T) {
	assert.Equal(t, "from the NoxPE Team", Team())
	assert.Equal(t, "lyssadev & chifft", Developers())
	assert.True(t, Verify())
}
