package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var phraseAdjectives = []string{
	"amber", "bold", "brave", "brisk", "calm", "clever", "cosmic", "crisp",
	"daring", "eager", "fancy", "fuzzy", "gentle", "glad", "golden", "grand",
	"happy", "humble", "jolly", "keen", "lively", "lucky", "mellow", "mighty",
	"noble", "plucky", "proud", "quick", "quiet", "rapid", "shiny", "silent",
	"snappy", "solid", "sturdy", "sunny", "swift", "tidy", "vivid", "witty",
}

var phraseNouns = []string{
	"badger", "beacon", "comet", "cricket", "falcon", "ferret", "galaxy",
	"gecko", "glacier", "harbor", "heron", "lantern", "lemur", "magnet",
	"marmot", "meadow", "nebula", "orbit", "osprey", "otter", "panda",
	"pebble", "pelican", "pickle", "prairie", "puffin", "quartz", "raven",
	"rocket", "saddle", "sparrow", "summit", "thicket", "tiger", "trellis",
	"walnut", "weasel", "willow", "wombat", "zephyr",
}

// Phrases is the default claim-token source: lowercase adjective-noun-number
// strings ("lucky-otter-42"), distinct within each batch.
type Phrases struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPhrases() *Phrases {
	return &Phrases{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Generate returns up to n distinct phrases. The draw loop carries a hard
// budget, so a request exceeding the phrase space returns short instead of
// spinning; callers needing exactly n must treat a short batch as exhaustion.
func (p *Phrases) Generate(n int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	space := len(phraseAdjectives) * len(phraseNouns) * 90
	budget := 10 * n
	if budget < 1000 {
		budget = 1000
	}

	out := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for draws := 0; len(out) < n && len(out) < space && draws < budget; draws++ {
		phrase := fmt.Sprintf("%s-%s-%d",
			phraseAdjectives[p.rng.Intn(len(phraseAdjectives))],
			phraseNouns[p.rng.Intn(len(phraseNouns))],
			p.rng.Intn(90)+10,
		)
		if seen[phrase] {
			continue
		}
		seen[phrase] = true
		out = append(out, phrase)
	}
	return out
}
