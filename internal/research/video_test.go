package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/search"
)

func TestFilterVideos(t *testing.T) {
	in := []search.Video{
		{URL: "https://youtube.com/watch?v=a", ViewCount: 500},
		{URL: "https://youtube.com/watch?v=b", ViewCount: 10_000},
		{URL: "https://youtube.com/watch?v=c", ViewCount: 3_000_000},
		{URL: "https://youtube.com/watch?v=a", ViewCount: 999_999},
		{URL: "", ViewCount: 42},
		{URL: "https://youtube.com/watch?v=d", ViewCount: 2_000_000},
	}

	got := FilterVideos(in)
	require.Len(t, got, 2)
	assert.Equal(t, "https://youtube.com/watch?v=b", got[0].URL)
	assert.Equal(t, "https://youtube.com/watch?v=a", got[1].URL)
	assert.Equal(t, int64(500), got[1].ViewCount, "first occurrence wins")
}

func TestFilterVideos_Cap(t *testing.T) {
	var in []search.Video
	for i := range 80 {
		in = append(in, search.Video{URL: fmt.Sprintf("https://youtube.com/watch?v=%d", i), ViewCount: int64(i)})
	}
	got := FilterVideos(in)
	require.Len(t, got, maxCandidateVideos)
	assert.Equal(t, int64(79), got[0].ViewCount)
	assert.Equal(t, int64(30), got[49].ViewCount)
}

func TestVideoMiner_DropsSummariesForSaturatedVideos(t *testing.T) {
	videos := []search.Video{
		{Title: "small", URL: "https://youtube.com/watch?v=a", ViewCount: 500},
		{Title: "mid", URL: "https://youtube.com/watch?v=b", ViewCount: 10_000},
		{Title: "viral", URL: "https://youtube.com/watch?v=c", ViewCount: 3_000_000},
	}
	gw := new(mockGateway)
	gw.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Phase == "video" && !strings.Contains(r.User, "watch?v=c")
	})).Return(mustJSON(t, videoInsightsFixture(
		"https://youtube.com/watch?v=a",
		"https://youtube.com/watch?v=b",
		"https://youtube.com/watch?v=c",
	)), nil)

	m := &VideoMiner{Videos: &fakeVideos{videos: videos}, LLM: gw}
	res, err := m.Run(context.Background(), transcriptFixture())
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.Insights.VideoSummaries), 2)
	for _, s := range res.Insights.VideoSummaries {
		assert.NotEqual(t, "https://youtube.com/watch?v=c", s.URL)
	}
	require.Len(t, res.RawVideos, 2)
	assert.Equal(t, int64(10_000), res.RawVideos[0].ViewCount)
	gw.AssertExpectations(t)
}

func TestVideoMiner_WebFallback(t *testing.T) {
	ti := transcriptFixture()
	web := &fakeWeb{results: map[string][]search.WebResult{
		ti.SearchKeywords[0] + " site:youtube.com": {
			{Title: "Delegation tips", URL: "https://www.youtube.com/watch?v=x1", Description: "how to delegate", Content: "full transcript"},
			{Title: "Not a video", URL: "https://blog.example/post", Description: "blog"},
		},
		ti.SearchKeywords[1] + " site:youtube.com": {
			{Title: "Delegation tips", URL: "https://www.youtube.com/watch?v=x1"},
		},
	}}
	gw := new(mockGateway)
	gw.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Phase == "video" && strings.Contains(r.User, "Delegation tips\\nhow to delegate\\nfull transcript")
	})).Return(mustJSON(t, videoInsightsFixture("https://www.youtube.com/watch?v=x1")), nil)

	m := &VideoMiner{Videos: &fakeVideos{}, Web: web, LLM: gw, Concurrency: 2}
	res, err := m.Run(context.Background(), ti)
	require.NoError(t, err)

	assert.Len(t, web.queries, maxFallbackKeywords)
	require.Len(t, res.RawVideos, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=x1", res.RawVideos[0].URL)
	assert.Len(t, res.Insights.VideoSummaries, 1)
	gw.AssertExpectations(t)
}

func TestVideoMiner_Placeholder(t *testing.T) {
	gw := new(mockGateway)
	m := &VideoMiner{Videos: &fakeVideos{}, Web: &fakeWeb{}, LLM: gw}

	res, err := m.Run(context.Background(), transcriptFixture())
	require.NoError(t, err)
	require.NotNil(t, res.Insights)
	assert.Len(t, res.Insights.Problems, 6)
	assert.Len(t, res.Insights.Desires, 6)
	assert.Equal(t, "No data", res.Insights.Problems[0].Name)
	assert.Equal(t, "YouTube research returned no results.", res.Insights.Desires[5].Description)
	assert.Empty(t, res.Insights.VideoSummaries)
	assert.Empty(t, res.RawVideos)
	gw.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
}

func TestVideoMiner_LLMError(t *testing.T) {
	gw := new(mockGateway)
	gw.On("CompleteJSON", mock.Anything, phase("video")).Return(nil, errors.New("rate limited"))

	m := &VideoMiner{Videos: &fakeVideos{videos: []search.Video{{URL: "https://youtube.com/watch?v=a", ViewCount: 1}}}, LLM: gw}
	_, err := m.Run(context.Background(), transcriptFixture())
	assert.EqualError(t, err, "rate limited")
}

func TestVideoPrompt_CapsItems(t *testing.T) {
	var videos []search.Video
	for i := range 30 {
		videos = append(videos, search.Video{Title: fmt.Sprintf("v%02d", i), URL: fmt.Sprintf("https://youtube.com/watch?v=%d", i), Subtitles: strings.Repeat("t", 5000)})
	}
	p := videoPrompt(transcriptFixture(), videos)
	assert.Contains(t, p, `"v19"`)
	assert.NotContains(t, p, `"v20"`)
	assert.NotContains(t, p, strings.Repeat("t", maxVideoTranscript+1))
}
