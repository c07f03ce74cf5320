package evolution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ethos-sim/ethos/internal/constants"
	"github.com/ethos-sim/ethos/internal/models"
)

// Config holds tunable parameters for the evolution engine.
type Config struct {
	PopulationSize int
	Generations    int
	ElitismCount   int
	MutationRate   float64
	CrossoverRate  float64

	// Workers is the number of concurrent fitness evaluations (min 1).
	Workers int

	// Selection, Crossover, and Mutation name the operators to use. Empty
	// names select the defaults (tournament, uniform, standard).
	Selection string
	Crossover string
	Mutation  string

	// FitnessTarget stops the run early once the best fitness reaches it.
	FitnessTarget float64

	// Seed fixes the run's randomness. Zero seeds from the clock.
	Seed int64

	// CheckpointPath, when set, receives a JSON checkpoint every
	// CheckpointEvery generations and at the end of the run.
	CheckpointPath  string
	CheckpointEvery int
}

// DefaultConfig returns the default evolution configuration.
func DefaultConfig() Config {
	return Config{
		PopulationSize:  constants.DefaultPopulationSize,
		Generations:     constants.DefaultGenerationCap,
		ElitismCount:    constants.DefaultElitismCount,
		MutationRate:    constants.DefaultMutationRate,
		CrossoverRate:   constants.DefaultCrossoverRate,
		Workers:         1,
		FitnessTarget:   constants.AlignmentPassCaptureRate,
		CheckpointEvery: 1,
	}
}

// RunResult is the outcome of an evolution run.
type RunResult struct {
	// Best is the best individual ever evaluated, nil when no individual
	// scored above zero.
	Best *models.Individual

	// Converged reports whether the fitness target was reached.
	Converged bool

	// Generations is the number of generations actually evaluated.
	Generations int

	History         []models.GenerationStats
	FinalPopulation []models.Individual
}

// Engine runs the generational loop: evaluate, rank, checkpoint, breed.
type Engine struct {
	evaluator Evaluator
	selector  Selector
	crossover Crossover
	mutator   Mutator
	config    Config
	graph     GraphContext
	rng       *rand.Rand
	logger    *slog.Logger
}

// NewEngine builds an engine, resolving the named operators. The graph
// context supplies the node universe offspring edges may attach to.
func NewEngine(evaluator Evaluator, config Config, graph GraphContext, logger *slog.Logger) (*Engine, error) {
	if config.PopulationSize < 2 {
		return nil, fmt.Errorf("evolution: population size must be at least 2, got %d", config.PopulationSize)
	}
	if config.ElitismCount >= config.PopulationSize {
		return nil, fmt.Errorf("evolution: elitism count %d must be below population size %d",
			config.ElitismCount, config.PopulationSize)
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	selector, err := NewSelector(config.Selection)
	if err != nil {
		return nil, err
	}
	crossover, err := NewCrossover(config.Crossover, config.CrossoverRate)
	if err != nil {
		return nil, err
	}
	mutator, err := NewMutator(config.Mutation, config.MutationRate)
	if err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		evaluator: evaluator,
		selector:  selector,
		crossover: crossover,
		mutator:   mutator,
		config:    config,
		graph:     graph,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
	}, nil
}

// Run evolves the given founder population. Founders are evaluated as
// generation zero; breeding continues until the fitness target is reached or
// the generation cap runs out.
func (e *Engine) Run(ctx context.Context, founders []models.Individual) (*RunResult, error) {
	if len(founders) == 0 {
		return nil, fmt.Errorf("evolution: empty founder population")
	}

	pop := founders
	result := &RunResult{}
	var best models.Individual
	haveBest := false

	for gen := 0; gen < e.config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := e.evaluatePopulation(ctx, pop); err != nil {
			return nil, err
		}
		rankByFitness(pop)

		stats := generationStats(gen, pop)
		result.History = append(result.History, stats)
		result.Generations = gen + 1

		if !haveBest || pop[0].Fitness > best.Fitness {
			best = pop[0]
			best.Edges = pop[0].CloneEdges()
			haveBest = true
		}

		e.logger.Info("generation evaluated",
			"generation", gen,
			"best_fitness", stats.BestFitness,
			"mean_fitness", stats.MeanFitness,
			"best_id", pop[0].ID,
		)

		if e.config.CheckpointPath != "" && e.checkpointDue(gen) {
			if err := WriteCheckpoint(e.config.CheckpointPath, gen, best, result.History, false); err != nil {
				return nil, err
			}
		}

		if best.Fitness >= e.config.FitnessTarget {
			result.Converged = true
			break
		}
		if gen == e.config.Generations-1 {
			break
		}

		next, err := e.breed(pop, gen+1)
		if err != nil {
			return nil, err
		}
		pop = next
	}

	result.FinalPopulation = pop
	if haveBest && best.Fitness > 0 {
		result.Best = &best
	}

	if e.config.CheckpointPath != "" && haveBest {
		if err := WriteCheckpoint(e.config.CheckpointPath, result.Generations-1, best, result.History, result.Converged); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (e *Engine) checkpointDue(gen int) bool {
	every := e.config.CheckpointEvery
	if every <= 0 {
		every = 1
	}
	return gen%every == 0
}

// evaluatePopulation scores every individual, fanning work out to the
// configured number of workers. The first evaluation error wins.
func (e *Engine) evaluatePopulation(ctx context.Context, pop []models.Individual) error {
	jobs := make(chan int, len(pop))
	for i := range pop {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < e.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if _, err := e.evaluator.Evaluate(ctx, &pop[i]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// breed builds the next generation: elites carried unchanged, the remainder
// bred by selection, crossover, and mutation.
func (e *Engine) breed(ranked []models.Individual, generation int) ([]models.Individual, error) {
	next := make([]models.Individual, 0, e.config.PopulationSize)
	for i := 0; i < e.config.ElitismCount && i < len(ranked); i++ {
		elite := ranked[i]
		elite.Edges = ranked[i].CloneEdges()
		next = append(next, elite)
	}

	for len(next) < e.config.PopulationSize {
		parents := make([]models.Individual, 0, e.crossover.Parents())
		parentIDs := make([]string, 0, e.crossover.Parents())
		for len(parents) < e.crossover.Parents() {
			parent, err := e.selector.Pick(e.rng, ranked, next)
			if err != nil {
				return nil, err
			}
			parents = append(parents, parent)
			parentIDs = append(parentIDs, parent.ID)
		}

		var edges map[string]models.Edge
		if e.rng.Float64() < e.config.CrossoverRate {
			combined, err := e.crossover.Combine(e.rng, parents)
			if err != nil {
				return nil, err
			}
			edges = combined
		} else {
			edges = parents[0].CloneEdges()
			parentIDs = parentIDs[:1]
		}

		child := NewIndividual(edges, generation, parentIDs...)

		graph := e.graph
		graph.Rank = parentRank(ranked, parents[0].ID)
		if err := e.mutator.Mutate(e.rng, &child, graph); err != nil {
			return nil, err
		}
		next = append(next, child)
	}
	return next, nil
}

// parentRank positions an individual within its ranked generation, 0.0 for
// the best through 1.0 for the worst.
func parentRank(ranked []models.Individual, id string) float64 {
	if len(ranked) < 2 {
		return 0
	}
	for i := range ranked {
		if ranked[i].ID == id {
			return float64(i) / float64(len(ranked)-1)
		}
	}
	return 1
}

// rankByFitness sorts descending by fitness, breaking ties by ID so the
// order is stable across runs.
func rankByFitness(pop []models.Individual) {
	sort.Slice(pop, func(i, j int) bool {
		if pop[i].Fitness != pop[j].Fitness {
			return pop[i].Fitness > pop[j].Fitness
		}
		return pop[i].ID < pop[j].ID
	})
}

func generationStats(generation int, pop []models.Individual) models.GenerationStats {
	stats := models.GenerationStats{
		Generation: generation,
		MinFitness: math.MaxFloat64,
		Timestamp:  time.Now(),
	}

	sum := 0.0
	for _, ind := range pop {
		sum += ind.Fitness
		if ind.Fitness < stats.MinFitness {
			stats.MinFitness = ind.Fitness
		}
		if ind.Fitness > stats.MaxFitness {
			stats.MaxFitness = ind.Fitness
		}
	}
	stats.MeanFitness = sum / float64(len(pop))
	stats.BestFitness = stats.MaxFitness

	variance := 0.0
	for _, ind := range pop {
		d := ind.Fitness - stats.MeanFitness
		variance += d * d
	}
	stats.StdFitness = math.Sqrt(variance / float64(len(pop)))
	return stats
}
