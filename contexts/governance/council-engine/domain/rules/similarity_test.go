package rules

import (
	"math"
	"testing"
)

func TestDissentSimilarity(t *testing.T) {
	cases := []struct {
		name     string
		topicA   string
		topicB   string
		domainsA []string
		domainsB []string
		want     float64
	}{
		{
			name:     "identical topic and domains",
			topicA:   "budget freeze proposal",
			topicB:   "budget freeze proposal",
			domainsA: []string{"treasury"},
			domainsB: []string{"treasury"},
			want:     1.0,
		},
		{
			name:     "partial topic overlap with shared domain",
			topicA:   "budget freeze proposal",
			topicB:   "budget freeze extension",
			domainsA: []string{"treasury"},
			domainsB: []string{"treasury"},
			want:     0.6*0.5 + 0.4*1.0,
		},
		{
			name:     "no overlap at all",
			topicA:   "budget freeze proposal",
			topicB:   "incident response drill",
			domainsA: []string{"treasury"},
			domainsB: []string{"infrastructure"},
			want:     0,
		},
		{
			name:     "empty domains score zero on the domain term",
			topicA:   "budget freeze",
			topicB:   "budget freeze",
			domainsA: nil,
			domainsB: []string{"treasury"},
			want:     0.6,
		},
		{
			name:     "case insensitive matching",
			topicA:   "Budget Freeze",
			topicB:   "budget freeze",
			domainsA: []string{"Treasury"},
			domainsB: []string{"treasury"},
			want:     1.0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DissentSimilarity(tc.topicA, tc.topicB, tc.domainsA, tc.domainsB)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected similarity %f, got %f", tc.want, got)
			}
		})
	}
}

func TestSetOverlapIsSymmetric(t *testing.T) {
	a := []string{"treasury", "infrastructure"}
	b := []string{"infrastructure", "personnel"}
	if setOverlap(a, b) != setOverlap(b, a) {
		t.Fatalf("expected symmetric overlap")
	}
}
