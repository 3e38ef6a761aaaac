// Package pipeline runs the three tuning stages in order: rule learning,
// upper-set tuning and lower-set (advanced) tuning. What each stage may
// change is declared once in Policies.
package pipeline

import (
	"github.com/soltixdb/fuzzcast/internal/analytics/genetic"
)

// Stage identifies one pass of the pipeline
type Stage string

const (
	StageLearning Stage = "learning"
	StageTuning   Stage = "tuning"
	StageAdvanced Stage = "advanced"
)

// Policy is the declarative description of a stage
type Policy struct {
	Stage         Stage
	Type          genetic.OptimizationType
	AsymmetricLag bool
	Frozen        genetic.Mask
}

// Policies lists the stages in execution order
var Policies = []Policy{
	{
		Stage:  StageLearning,
		Type:   genetic.OptimizationLearning,
		Frozen: genetic.FreezeAll(),
	},
	{
		Stage:         StageTuning,
		Type:          genetic.OptimizationTuning,
		AsymmetricLag: true,
		Frozen:        genetic.NewMask(genetic.FieldLowerScale, genetic.FieldLowerLag),
	},
	{
		Stage:         StageAdvanced,
		Type:          genetic.OptimizationTuning,
		AsymmetricLag: true,
		Frozen:        genetic.NewMask(genetic.FieldUpperParameters),
	},
}

// PolicyFor returns the policy of a stage
func PolicyFor(s Stage) (Policy, bool) {
	for _, p := range Policies {
		if p.Stage == s {
			return p, true
		}
	}
	return Policy{}, false
}
