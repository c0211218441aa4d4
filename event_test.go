package rotate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep(t *testing.T) {
	t.Run("json.Marshal() encodes step into plain string", func(t *testing.T) {
		container := withStep{Step: StepFinish}
		raw, err := json.Marshal(&container)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"step":"finishSecret"}`, string(raw))
	})

	t.Run("json.Unmarshal() works for valid step", func(t *testing.T) {
		cases := []struct {
			raw      string
			expected Step
		}{
			{`{"step": "createSecret"}`, StepCreate},
			{`{"step": "setSecret"}`, StepSet},
			{`{"step": "testSecret"}`, StepTest},
			{`{"step": "finishSecret"}`, StepFinish},
		}

		for _, c := range cases {
			t.Run(string(c.expected), func(t *testing.T) {
				var container withStep
				assert.NoError(t, json.Unmarshal([]byte(c.raw), &container))
				assert.Equal(t, c.expected, container.Step)
				assert.True(t, container.Step.Valid())
			})
		}
	})

	t.Run("json.Unmarshal() fails for unknown step value", func(t *testing.T) {
		raw := []byte(`{"step": "lkjasdhflkajsdf"}`)

		var container withStep
		assert.Error(t, json.Unmarshal(raw, &container))
		assert.Empty(t, container.Step)
	})
}

func TestEvent(t *testing.T) {
	t.Run("decodes the rotation payload", func(t *testing.T) {
		raw := []byte(`{
			"SecretId": "arn:aws:secretsmanager:eu-north-1:123456789012:secret:tripletex-session-AbCdEf",
			"ClientRequestToken": "b6f6a8c1-2a4e-4f5e-9a0b-0c1d2e3f4a5b",
			"Step": "createSecret"
		}`)

		var event Event
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, "arn:aws:secretsmanager:eu-north-1:123456789012:secret:tripletex-session-AbCdEf", event.SecretId)
		assert.Equal(t, "b6f6a8c1-2a4e-4f5e-9a0b-0c1d2e3f4a5b", event.ClientRequestToken)
		assert.Equal(t, StepCreate, event.Step)
	})

	t.Run("rejects an unknown step", func(t *testing.T) {
		raw := []byte(`{"SecretId": "s", "ClientRequestToken": "t", "Step": "rollbackSecret"}`)

		var event Event
		assert.ErrorContains(t, json.Unmarshal(raw, &event), "unknown step")
	})
}

type withStep struct {
	Step Step `json:"step"`
}
