package embedding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollPolicy_Delay(t *testing.T) {
	p := DefaultPollPolicy()

	assert.Equal(t, 5*time.Second, p.Delay(0))
	assert.Equal(t, 10*time.Second, p.Delay(1))
	assert.Equal(t, 20*time.Second, p.Delay(2))
	assert.Equal(t, 40*time.Second, p.Delay(3))
	assert.Equal(t, time.Minute, p.Delay(4))
	assert.Equal(t, time.Minute, p.Delay(9))
	assert.Equal(t, 5*time.Second, p.Delay(-1))
}

func TestPollPolicy_Normalized(t *testing.T) {
	p := PollPolicy{}.normalized()
	assert.Equal(t, 5*time.Second, p.InitialDelay)
	assert.Equal(t, 5*time.Second, p.MaxDelay)
	assert.Equal(t, 1, p.MaxAttempts)

	p = PollPolicy{InitialDelay: time.Second, MaxDelay: time.Millisecond, MaxAttempts: 3}.normalized()
	assert.Equal(t, time.Second, p.MaxDelay)
	assert.Equal(t, 3, p.MaxAttempts)
}
