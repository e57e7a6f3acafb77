package performance

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wonny/acadport/backend/internal/risk"
)

// ProbabilitySpread bound of the uniform noise added to risk probabilities
const ProbabilitySpread = 0.05

// NewSeededNoise returns a goroutine-safe uniform noise source in
// [-ProbabilitySpread, ProbabilitySpread) with a fixed seed (0 = clock)
func NewSeededNoise(seed int64) risk.Noise {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))

	return risk.UniformNoise(func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return rng.Float64()
	}, ProbabilitySpread)
}
