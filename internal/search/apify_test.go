package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/pkg/apify"
)

func testApify(client apify.Client) *Apify {
	return NewApify(client, ApifyConfig{RunTimeout: time.Second, PollInterval: time.Millisecond})
}

func TestSearchVideos(t *testing.T) {
	client := new(mockApifyClient)
	client.On("StartRun", mock.Anything, DefaultYouTubeActor, mock.MatchedBy(func(in map[string]any) bool {
		qs, ok := in["searchQueries"].([]string)
		return ok && len(qs) == 5 && in["maxResults"] == 3 && in["subtitleFormat"] == "plaintext"
	})).Return(&apify.Run{ID: "run1", Status: apify.StatusRunning}, nil)
	client.On("GetRun", mock.Anything, "run1").Return(&apify.Run{ID: "run1", Status: apify.StatusSucceeded, DefaultDatasetID: "ds1"}, nil)
	client.On("DatasetItems", mock.Anything, "ds1", 200).Return(json.RawMessage(
		`[{"id":"v1","title":"Closing faster","url":"https://youtube.com/watch?v=1","channelName":"FinOps","viewCount":12000,"subtitles":"we closed in 4 days"}]`,
	), nil)

	videos := testApify(client).SearchVideos(context.Background(), []string{"a", "b", "c", "d", "e", "f", "g"})
	if assert.Len(t, videos, 1) {
		assert.Equal(t, int64(12000), videos[0].ViewCount)
		assert.Equal(t, "we closed in 4 days", videos[0].Subtitles)
	}
}

func TestSearchVideos_RunFailureIsEmpty(t *testing.T) {
	client := new(mockApifyClient)
	client.On("StartRun", mock.Anything, mock.Anything, mock.Anything).Return(&apify.Run{ID: "run1"}, nil)
	client.On("GetRun", mock.Anything, "run1").Return(&apify.Run{ID: "run1", Status: apify.StatusFailed}, nil)

	assert.Nil(t, testApify(client).SearchVideos(context.Background(), []string{"a"}))
	client.AssertNotCalled(t, "DatasetItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestScrapeThreads(t *testing.T) {
	client := new(mockApifyClient)
	client.On("StartRun", mock.Anything, DefaultRedditActor, mock.MatchedBy(func(in map[string]any) bool {
		start, ok := in["startUrls"].([]map[string]string)
		return ok && len(start) == 2 && start[0]["url"] == "https://reddit.com/r/a/comments/1/x" &&
			in["scrapeComments"] == false
	})).Return(&apify.Run{ID: "r"}, nil)
	client.On("GetRun", mock.Anything, "r").Return(&apify.Run{ID: "r", Status: apify.StatusSucceeded, DefaultDatasetID: "d"}, nil)
	client.On("DatasetItems", mock.Anything, "d", 200).Return(json.RawMessage(
		`[{"id":"p1","title":"Month-end is killing me","url":"https://reddit.com/r/a/comments/1/x","body":"every month we"}]`,
	), nil)

	posts := testApify(client).ScrapeThreads(context.Background(), []string{
		"https://reddit.com/r/a/comments/1/x", "https://reddit.com/r/a/comments/2/y",
	})
	if assert.Len(t, posts, 1) {
		assert.Equal(t, "every month we", posts[0].Content())
	}
}

func TestScrapeThreads_NoURLs(t *testing.T) {
	client := new(mockApifyClient)
	assert.Nil(t, testApify(client).ScrapeThreads(context.Background(), nil))
	client.AssertNotCalled(t, "StartRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryingApify_RetriesTransientStart(t *testing.T) {
	client := new(mockApifyClient)
	client.On("StartRun", mock.Anything, "act", mock.Anything).Return(nil, &apify.APIError{StatusCode: 503}).Once()
	client.On("StartRun", mock.Anything, "act", mock.Anything).Return(&apify.Run{ID: "ok"}, nil).Once()

	run, err := (&retryingApify{Client: client}).StartRun(context.Background(), "act", nil)
	assert.NoError(t, err)
	assert.Equal(t, "ok", run.ID)
}

func TestRetryingApify_PermanentErrorNotRetried(t *testing.T) {
	client := new(mockApifyClient)
	client.On("StartRun", mock.Anything, "act", mock.Anything).Return(nil, &apify.APIError{StatusCode: 401})

	_, err := (&retryingApify{Client: client}).StartRun(context.Background(), "act", nil)
	var apiErr *apify.APIError
	assert.True(t, errors.As(err, &apiErr))
	client.AssertNumberOfCalls(t, "StartRun", 1)
}

func TestPostContent(t *testing.T) {
	assert.Equal(t, "text", Post{Text: "text", Body: "body"}.Content())
	assert.Equal(t, "body", Post{Body: "body"}.Content())
}
