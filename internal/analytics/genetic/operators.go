package genetic

import (
	"math/rand"
)

// Scored pairs a chromosome with its fitness and undefined-row count
type Scored struct {
	Chromosome Chromosome
	Fitness    float64
	Undefined  int
}

// Selector picks one parent from a population ranked best first
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, ranked []Scored) Chromosome
}

// TournamentSelector samples Size individuals and keeps the fittest
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Pick(rng *rand.Rand, ranked []Scored) Chromosome {
	size := s.Size
	if size <= 0 {
		size = 2
	}
	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if candidate.Fitness < best.Fitness {
			best = candidate
		}
	}
	return best.Chromosome
}

// randomChromosome draws every gene uniformly within its bounds
func randomChromosome(rng *rand.Rand, genes []Gene) Chromosome {
	out := make(Chromosome, len(genes))
	for i, g := range genes {
		if g.Integer {
			out[i] = g.Lo + float64(rng.Intn(int(g.Hi-g.Lo)+1))
			continue
		}
		out[i] = g.Lo + rng.Float64()*(g.Hi-g.Lo)
	}
	return out
}

// scatteredCrossover takes each gene from either parent with equal odds
func scatteredCrossover(rng *rand.Rand, a, b Chromosome) Chromosome {
	child := make(Chromosome, len(a))
	for i := range a {
		if rng.Intn(2) == 0 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child
}

// gaussianMutation perturbs every gene by N(0, scale*(hi-lo)) and clamps it.
// Integer genes are rounded after the perturbation.
func gaussianMutation(rng *rand.Rand, parent Chromosome, genes []Gene, scale float64) Chromosome {
	child := parent.Clone()
	for i, g := range genes {
		child[i] = g.clamp(child[i] + rng.NormFloat64()*scale*(g.Hi-g.Lo))
	}
	return child
}

// mutationScale shrinks linearly from initial to zero over maxGenerations
func mutationScale(initial float64, generation, maxGenerations int) float64 {
	if maxGenerations <= 0 {
		return initial
	}
	s := initial * (1 - float64(generation)/float64(maxGenerations))
	if s < 0 {
		return 0
	}
	return s
}
