package rotate

import (
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	AWSCURRENT = "AWSCURRENT"
	AWSPENDING = "AWSPENDING"
)

// Description is the part of a DescribeSecret response that rotation decisions are made from.
// It is fetched at the start of every invocation and never reused.
type Description struct {
	RotationEnabled    bool
	VersionIdsToStages map[string][]string
}

// DescriptionFromOutput extracts a Description from a DescribeSecret response.
func DescriptionFromOutput(output *secretsmanager.DescribeSecretOutput) Description {
	return Description{
		RotationEnabled:    aws.ToBool(output.RotationEnabled),
		VersionIdsToStages: output.VersionIdsToStages,
	}
}

// Stages returns the labels attached to versionId and whether the version is known at all.
func (d Description) Stages(versionId string) ([]string, bool) {
	stages, ok := d.VersionIdsToStages[versionId]
	return stages, ok
}

// HasStage reports whether versionId carries the given label.
func (d Description) HasStage(versionId, stage string) bool {
	return slices.Contains(d.VersionIdsToStages[versionId], stage)
}

// CurrentVersion returns the version labelled AWSCURRENT, or "" when none is.
func (d Description) CurrentVersion() string {
	for versionId, stages := range d.VersionIdsToStages {
		if slices.Contains(stages, AWSCURRENT) {
			return versionId
		}
	}
	return ""
}
