package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
)

var batch = []domain.IndexedItem{
	{ID: "1", Title: "Chip export rules tightened", Sources: []string{"weibo", "zhihu"}, MaxRank: 1},
	{ID: "2", Title: "Storm reaches coast", Sources: []string{"weibo"}, MaxRank: 4},
}

func newClient(t *testing.T, handler http.HandlerFunc) *ChatGPTClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewChatGPTClient(config.LLMConfig{Endpoint: server.URL, Model: "test-model", APIKey: "sk-test"})
	c.httpClient = server.Client()
	c.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func reply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}
}

func TestAnalyzeBatchBuildsSummary(t *testing.T) {
	t.Parallel()

	var captured chatRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		reply(`{"summary":" Trade and weather ","keyInfo":[
			{"topic":"Chip exports","entities":["US"," ","China"],"heatScore":140,"category":"tech","newsIds":["1","1","99"]},
			{"topic":"  ","entities":[],"heatScore":10,"category":"x","newsIds":["2"]},
			{"topic":"Storm","entities":[],"heatScore":0,"category":"weather","newsIds":["2"]}]}`)(w, r)
	})

	summary, err := c.AnalyzeBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[1].Content, "ID: 1 | [weibo, zhihu] Rank: 1 | Chip export rules tightened")

	assert.Equal(t, "Trade and weather", summary.Narrative)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), summary.Timestamp)
	require.Len(t, summary.Topics, 2)
	assert.Equal(t, domain.Topic{
		Label: "Chip exports", Entities: []string{"US", "China"}, HeatScore: 100, Category: "tech", MemberIDs: []string{"1"},
	}, summary.Topics[0])
	assert.Equal(t, 1.0, summary.Topics[1].HeatScore)
}

func TestAnalyzeBatchRepairsFencedPayload(t *testing.T) {
	t.Parallel()

	c := newClient(t, reply("Here you go:\n```json\n{\"summary\":\"ok\",\"keyInfo\":[{\"topic\":\"Storm\",\"entities\":[],\"heatScore\":50,\"category\":\"weather\",\"newsIds\":[\"2\",],},]}\n```"))

	summary, err := c.AnalyzeBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, summary.Topics, 1)
	assert.Equal(t, []string{"2"}, summary.Topics[0].MemberIDs)
}

func TestAnalyzeBatchUnrepairablePayload(t *testing.T) {
	t.Parallel()

	c := newClient(t, reply("I cannot help with that"))

	_, err := c.AnalyzeBatch(context.Background(), batch)
	require.Error(t, err)
	assert.False(t, domain.IsContentPolicy(err))
}

func TestAnalyzeBatchContentPolicyRejection(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Content Exists Risk"}}`))
	})

	_, err := c.AnalyzeBatch(context.Background(), batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContentPolicy)
}

func TestAnalyzeBatchGenericHTTPError(t *testing.T) {
	t.Parallel()

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.AnalyzeBatch(context.Background(), batch)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrContentPolicy)
	assert.True(t, strings.Contains(err.Error(), "503"))
}

func TestAnalyzeBatchMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewChatGPTClient(config.LLMConfig{}).AnalyzeBatch(context.Background(), batch)
	require.Error(t, err)
}

func TestRepairJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":[1,2]}`, repairJSON("```\n{\"a\":[1,2,],}\n```"))
	assert.Equal(t, `{"a":1}`, repairJSON(`sure! {"a":1} hope that helps`))
}
