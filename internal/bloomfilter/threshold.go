package bloomfilter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// NeverDetect is the sentinel threshold meaning "detection degenerates to
// never flags": no τ in {-K,…,0} reached the required recall during
// threshold search.
const NeverDetect = 1

const thresholdFileName = "bloomFilter.json"

type thresholdFile struct {
	Threshold int `json:"threshold"`
}

func writeThreshold(dir string, tau int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(thresholdFile{Threshold: tau})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, thresholdFileName), data, 0o644)
}

func readThreshold(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, thresholdFileName))
	if err != nil {
		return 0, err
	}
	var tf thresholdFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return 0, fmt.Errorf("bloomfilter: parse %s: %w", thresholdFileName, err)
	}
	return tf.Threshold, nil
}

// LabeledScore pairs an SFBL query score with its ground-truth label (1 for
// a held-out vulnerable function, 0 for benign) for threshold search.
type LabeledScore struct {
	Score int
	Label int
}

// FindThreshold returns the largest τ ∈ {-K,…,0} whose recall over scored
// meets requiredRecall, and true. A positive counts as recalled at τ when
// its score is at least τ (precision-recall-curve threshold semantics). If
// no such τ exists it returns (NeverDetect, false): detection should
// degenerate to never flagging.
func FindThreshold(scored []LabeledScore, k int, requiredRecall float64) (int, bool) {
	positives := 0
	for _, s := range scored {
		if s.Label == 1 {
			positives++
		}
	}
	if positives == 0 {
		return NeverDetect, false
	}
	for tau := 0; tau >= -k; tau-- {
		hits := 0
		for _, s := range scored {
			if s.Label == 1 && s.Score >= tau {
				hits++
			}
		}
		recall := float64(hits) / float64(positives)
		if recall >= requiredRecall {
			return tau, true
		}
	}
	return NeverDetect, false
}
