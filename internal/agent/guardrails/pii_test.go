package guardrails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPII(t *testing.T) {
	detected, masked := DetectPII("card 4111 1111 1111 1111, mail jo@example.com, ip 10.0.0.12", nil)

	assert.Equal(t, []string{"4111 1111 1111 1111"}, detected[EntityCreditCard])
	assert.Equal(t, []string{"jo@example.com"}, detected[EntityEmail])
	assert.Equal(t, []string{"10.0.0.12"}, detected[EntityIPAddress])
	assert.Equal(t, "card <CREDIT_CARD>, mail <EMAIL_ADDRESS>, ip <IP_ADDRESS>", masked)
}

func TestDetectPII_LuhnRejectsRandomDigits(t *testing.T) {
	detected, _ := DetectPII("order 1234 5678 9012 3456", []string{EntityCreditCard})
	assert.Empty(t, detected[EntityCreditCard])
}

func TestDetectPII_EntityFilter(t *testing.T) {
	detected, masked := DetectPII("jo@example.com 123-45-6789", []string{EntitySSN})
	assert.NotContains(t, detected, EntityEmail)
	assert.Equal(t, []string{"123-45-6789"}, detected[EntitySSN])
	assert.Equal(t, "jo@example.com <US_SSN>", masked)
}

func TestPIICheck_BlockSetting(t *testing.T) {
	out, err := piiCheck{}.Run(context.Background(), "jo@example.com", CheckSettings{Block: true}, SharedContext{})
	require.NoError(t, err)
	assert.True(t, out.Tripwire)

	out, err = piiCheck{}.Run(context.Background(), "jo@example.com", CheckSettings{}, SharedContext{})
	require.NoError(t, err)
	assert.False(t, out.Tripwire)
	assert.Equal(t, "<EMAIL_ADDRESS>", out.Info[InfoCheckedText])

	out, err = piiCheck{}.Run(context.Background(), "nothing here", CheckSettings{Block: true}, SharedContext{})
	require.NoError(t, err)
	assert.False(t, out.Tripwire)
}
