package report

import (
	"slices"
	"strings"

	"kasirdemo/backend/internal/domain"
)

// Pair says how often Target was on an order that also held Source.
type Pair struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	TargetID   string  `json:"target_id"`
	TargetName string  `json:"target_name"`
	Together   int     `json:"together"`
	Affinity   float64 `json:"affinity"`
}

type pairKey struct {
	source string
	target string
}

// TopPairs computes item affinity over charged orders: the share of orders
// containing the source that also contain the target. Pairs below minAffinity
// are dropped; limit < 1 keeps all.
func TopPairs(state domain.AppState, minAffinity float64, limit int) []Pair {
	names := make(map[string]string, len(state.Items))
	for _, item := range state.Items {
		names[item.ID] = item.Name
	}

	sourceCount := map[string]int{}
	pairCount := map[pairKey]int{}
	for _, order := range state.Orders {
		if order.Status != domain.OrderStatusCharged {
			continue
		}
		seen := make([]string, 0, len(order.Items))
		for _, line := range order.Items {
			if !slices.Contains(seen, line.ItemID) {
				seen = append(seen, line.ItemID)
			}
		}
		for _, source := range seen {
			sourceCount[source]++
			for _, target := range seen {
				if source != target {
					pairCount[pairKey{source, target}]++
				}
			}
		}
	}

	pairs := make([]Pair, 0, len(pairCount))
	for key, cnt := range pairCount {
		affinity := float64(cnt) / float64(sourceCount[key.source])
		if affinity < minAffinity {
			continue
		}
		pairs = append(pairs, Pair{
			SourceID:   key.source,
			SourceName: names[key.source],
			TargetID:   key.target,
			TargetName: names[key.target],
			Together:   cnt,
			Affinity:   affinity,
		})
	}

	slices.SortFunc(pairs, func(a, b Pair) int {
		if a.Together != b.Together {
			return b.Together - a.Together
		}
		if a.Affinity != b.Affinity {
			if a.Affinity > b.Affinity {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.SourceName, b.SourceName); c != 0 {
			return c
		}
		return strings.Compare(a.TargetName, b.TargetName)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
