package usecase

import (
	"fmt"
	"strings"

	"TrendRadar/internal/ports"
	"TrendRadar/internal/trend"
)

const (
	defaultTopClusters = 10
	linksPerCluster    = 2
	maxSentinels       = 5
)

// RenderDigest formats a report as a compact Markdown digest: the top clusters
// with weighted score, duration, direction and stream evidence, then sentinels.
func RenderDigest(report ports.Report, top int) string {
	if top <= 0 {
		top = defaultTopClusters
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", report.Title)

	if len(report.Clusters) == 0 {
		b.WriteString("\nNo trends detected.\n")
	}

	for i, c := range report.Clusters {
		if i == top {
			break
		}
		arrow := ""
		if c.DurationDays > 1 {
			arrow = " ↓"
			if c.IsRising {
				arrow = " ↑"
			}
		}
		fmt.Fprintf(&b, "\n%d. *%s* score %.1f, %dd%s", i+1, c.MainTopic, trend.WeightedScore(c), c.DurationDays, arrow)
		if n := len(c.StreamEvidence); n > 0 {
			fmt.Fprintf(&b, ", %d stream mentions", n)
		}
		b.WriteString("\n")
		for j, link := range c.RelatedLinks {
			if j == linksPerCluster {
				break
			}
			fmt.Fprintf(&b, "   %s\n", link)
		}
	}

	if len(report.Sentinels) > 0 {
		b.WriteString("\n*Emerging*\n")
		for i, s := range report.Sentinels {
			if i == maxSentinels {
				break
			}
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	return b.String()
}
