package rotate

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
)

func TestDescription(t *testing.T) {
	description := DescriptionFromOutput(&secretsmanager.DescribeSecretOutput{
		RotationEnabled: aws.Bool(true),
		VersionIdsToStages: map[string][]string{
			"v1": {"AWSPREVIOUS"},
			"v2": {AWSCURRENT},
			"v3": {AWSPENDING},
		},
	})

	t.Run("rotation flag", func(t *testing.T) {
		assert.True(t, description.RotationEnabled)
		assert.False(t, DescriptionFromOutput(&secretsmanager.DescribeSecretOutput{}).RotationEnabled)
	})

	t.Run("current version", func(t *testing.T) {
		assert.Equal(t, "v2", description.CurrentVersion())
		assert.Empty(t, Description{}.CurrentVersion())
	})

	t.Run("stages by version", func(t *testing.T) {
		stages, ok := description.Stages("v3")
		assert.True(t, ok)
		assert.Equal(t, []string{AWSPENDING}, stages)

		_, ok = description.Stages("v4")
		assert.False(t, ok)

		assert.True(t, description.HasStage("v3", AWSPENDING))
		assert.False(t, description.HasStage("v3", AWSCURRENT))
		assert.False(t, description.HasStage("v4", AWSPENDING))
	})
}
