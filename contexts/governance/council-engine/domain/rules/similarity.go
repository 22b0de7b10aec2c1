package rules

import "strings"

const (
	topicWeight  = 0.6
	domainWeight = 0.4
)

// DissentSimilarity blends topic token overlap with affected-domain overlap.
// Scores land in [0,1].
func DissentSimilarity(topicA, topicB string, domainsA, domainsB []string) float64 {
	return topicWeight*tokenOverlap(topicA, topicB) + domainWeight*setOverlap(domainsA, domainsB)
}

func tokenOverlap(a, b string) float64 {
	return setOverlap(strings.Fields(strings.ToLower(a)), strings.Fields(strings.ToLower(b)))
}

// setOverlap is intersection over union of the two string sets, with empty
// inputs scoring zero.
func setOverlap(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, item := range a {
		item = strings.TrimSpace(strings.ToLower(item))
		if item != "" {
			setA[item] = true
		}
	}
	setB := make(map[string]bool, len(b))
	for _, item := range b {
		item = strings.TrimSpace(strings.ToLower(item))
		if item != "" {
			setB[item] = true
		}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for item := range setA {
		if setB[item] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
