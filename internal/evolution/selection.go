package evolution

import (
	"fmt"
	"math/rand"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
)

// Selector chooses parents from a ranked generation for replication. The
// set of selectors is closed: each algorithm is a concrete type, and
// NewSelector maps configuration names onto them.
type Selector interface {
	Name() string

	// Pick selects one parent. ranked is sorted by fitness descending;
	// chosen holds the parents already picked for the current offspring.
	Pick(rng *rand.Rand, ranked []models.Individual, chosen []models.Individual) (models.Individual, error)
}

// NewSelector maps a configured method name onto a selector.
func NewSelector(name string) (Selector, error) {
	switch name {
	case "", "tournament":
		return TournamentSelector{Size: constants.TournamentSize}, nil
	case "roulette":
		return RouletteSelector{}, nil
	case "rank":
		return RankSelector{}, nil
	case "diversity":
		return DiversitySelector{Blend: 0.5}, nil
	default:
		return nil, fmt.Errorf("unknown selection method: %s", name)
	}
}

// TournamentSelector samples Size candidates uniformly and keeps the best.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string { return "tournament" }

func (s TournamentSelector) Pick(rng *rand.Rand, ranked []models.Individual, _ []models.Individual) (models.Individual, error) {
	if len(ranked) == 0 {
		return models.Individual{}, fmt.Errorf("selection: empty population")
	}

	size := s.Size
	if size <= 0 {
		size = constants.TournamentSize
	}

	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best, nil
}

// RouletteSelector picks fitness-proportionally. A generation with zero
// total fitness degrades to a uniform pick.
type RouletteSelector struct{}

func (RouletteSelector) Name() string { return "roulette" }

func (RouletteSelector) Pick(rng *rand.Rand, ranked []models.Individual, _ []models.Individual) (models.Individual, error) {
	if len(ranked) == 0 {
		return models.Individual{}, fmt.Errorf("selection: empty population")
	}

	total := 0.0
	for _, ind := range ranked {
		if ind.Fitness > 0 {
			total += ind.Fitness
		}
	}
	if total == 0 {
		return ranked[rng.Intn(len(ranked))], nil
	}

	pick := rng.Float64() * total
	acc := 0.0
	for _, ind := range ranked {
		if ind.Fitness <= 0 {
			continue
		}
		acc += ind.Fitness
		if pick <= acc {
			return ind, nil
		}
	}
	return ranked[len(ranked)-1], nil
}

// RankSelector picks with probability proportional to rank position rather
// than raw fitness, which keeps selection pressure stable when fitness
// values bunch together.
type RankSelector struct{}

func (RankSelector) Name() string { return "rank" }

func (RankSelector) Pick(rng *rand.Rand, ranked []models.Individual, _ []models.Individual) (models.Individual, error) {
	n := len(ranked)
	if n == 0 {
		return models.Individual{}, fmt.Errorf("selection: empty population")
	}

	// Rank weights n, n-1, ..., 1 over the descending-sorted population.
	total := n * (n + 1) / 2
	pick := rng.Intn(total)
	acc := 0
	for i := 0; i < n; i++ {
		acc += n - i
		if pick < acc {
			return ranked[i], nil
		}
	}
	return ranked[n-1], nil
}

// DiversitySelector mixes fitness-based picks with picks maximizing
// character-signature distance from the parents already chosen.
type DiversitySelector struct {
	// Blend is the probability of a fitness-based (tournament) pick; the
	// remainder picks for signature diversity.
	Blend float64
}

func (DiversitySelector) Name() string { return "diversity" }

func (s DiversitySelector) Pick(rng *rand.Rand, ranked []models.Individual, chosen []models.Individual) (models.Individual, error) {
	if len(ranked) == 0 {
		return models.Individual{}, fmt.Errorf("selection: empty population")
	}
	if len(chosen) == 0 || rng.Float64() < s.Blend {
		return TournamentSelector{Size: constants.TournamentSize}.Pick(rng, ranked, chosen)
	}

	best, bestDist := ranked[0], -1.0
	for _, candidate := range ranked {
		minDist := -1.0
		for _, parent := range chosen {
			d := signatureDistance(candidate.Alignment, parent.Alignment)
			if minDist < 0 || d < minDist {
				minDist = d
			}
		}
		if minDist > bestDist {
			best, bestDist = candidate, minDist
		}
	}
	return best, nil
}
