package llm

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"TrendRadar/internal/domain"
)

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// rawPayload is the provider's reply before validation.
type rawPayload struct {
	Summary string     `json:"summary"`
	KeyInfo []rawTopic `json:"keyInfo"`
}

type rawTopic struct {
	Topic     string   `json:"topic"`
	Entities  []string `json:"entities"`
	HeatScore float64  `json:"heatScore"`
	Category  string   `json:"category"`
	NewsIDs   []string `json:"newsIds"`
}

// decodePayload parses the reply, retrying once on a repaired copy. When the
// repaired copy fails too, the original error is returned.
func decodePayload(content string) (rawPayload, error) {
	var payload rawPayload
	err := json.Unmarshal([]byte(content), &payload)
	if err == nil {
		return payload, nil
	}

	var repaired rawPayload
	if repairErr := json.Unmarshal([]byte(repairJSON(content)), &repaired); repairErr != nil {
		return rawPayload{}, err
	}
	return repaired, nil
}

// repairJSON strips markdown fences and prose around the outermost object and
// drops trailing commas.
func repairJSON(content string) string {
	text := strings.TrimSpace(content)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	return trailingComma.ReplaceAllString(text, "$1")
}

// toSummary validates the payload against the batch: topics without a label are
// dropped, heat scores are clamped and member ids outside the batch removed.
func (p rawPayload) toSummary(items []domain.IndexedItem, now time.Time) domain.TopicSummary {
	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
	}

	summary := domain.TopicSummary{
		Timestamp: now,
		Narrative: strings.TrimSpace(p.Summary),
		Topics:    make([]domain.Topic, 0, len(p.KeyInfo)),
	}

	for _, t := range p.KeyInfo {
		label := strings.TrimSpace(t.Topic)
		if label == "" {
			continue
		}

		topic := domain.Topic{
			Label:     label,
			Entities:  []string{},
			HeatScore: clampHeat(t.HeatScore),
			Category:  strings.TrimSpace(t.Category),
			MemberIDs: []string{},
		}
		for _, e := range t.Entities {
			if e = strings.TrimSpace(e); e != "" {
				topic.Entities = append(topic.Entities, e)
			}
		}
		seen := map[string]struct{}{}
		for _, id := range t.NewsIDs {
			id = strings.TrimSpace(id)
			if _, ok := known[id]; !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			topic.MemberIDs = append(topic.MemberIDs, id)
		}
		summary.Topics = append(summary.Topics, topic)
	}

	return summary
}

func clampHeat(score float64) float64 {
	switch {
	case score < domain.MinHeatScore:
		return domain.MinHeatScore
	case score > domain.MaxHeatScore:
		return domain.MaxHeatScore
	default:
		return score
	}
}
