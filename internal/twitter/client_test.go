package twitter_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagwatch/tagwatch/internal/twitter"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, sessions ...*twitter.Session) *twitter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return twitter.NewClient(sessions, zap.NewNop(),
		twitter.WithBaseURL(server.URL),
		twitter.WithTimeout(5*time.Second),
		twitter.WithRetry(0, time.Millisecond, time.Millisecond),
	)
}

func session(username string) *twitter.Session {
	return &twitter.Session{
		Username:  username,
		AuthToken: "token-" + username,
		CSRFToken: "csrf-" + username,
	}
}

func TestSearchRotatesPastExhaustedSession(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token-alpha" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		fmt.Fprint(w, `{"tweets":[{"id":"1","url":"https://x.com/p/1","username":"author"}],"nextCursor":""}`)
	}

	alpha, bravo := session("alpha"), session("bravo")

	client := newTestClient(t, handler, alpha, bravo)

	tweets, err := client.Search(t.Context(), "#tag lang:en", 10)
	require.NoError(t, err)

	require.Len(t, tweets, 1)
	assert.Equal(t, "https://x.com/p/1", tweets[0].URL)
	assert.True(t, alpha.Exhausted)
	assert.False(t, bravo.Exhausted)
}

func TestSearchReportsCapacityWhenAllSessionsExhaust(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}

	client := newTestClient(t, handler, session("alpha"), session("bravo"))

	_, err := client.Search(t.Context(), "#tag lang:en", 10)
	require.Error(t, err)

	assert.True(t, twitter.IsCapacityExhausted(err))
	assert.NotEmpty(t, twitter.ExhaustedUsername(err))
}

func TestSearchWithZeroSessionsReportsCapacity(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	client := newTestClient(t, handler)

	_, err := client.Search(t.Context(), "#tag lang:en", 10)
	require.Error(t, err)

	assert.True(t, twitter.IsCapacityExhausted(err))
	assert.Empty(t, twitter.ExhaustedUsername(err))
}

func TestSearchZeroLimitStillReportsEmptyPool(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	client := newTestClient(t, handler)

	_, err := client.Search(t.Context(), "#tag lang:en", 0)
	require.Error(t, err)

	assert.True(t, twitter.IsCapacityExhausted(err))
}

func TestSearchClampsOversizedPage(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tweets":[{"id":"1","url":"https://x.com/p/1"},`+
			`{"id":"2","url":"https://x.com/p/2"},`+
			`{"id":"3","url":"https://x.com/p/3"}],"nextCursor":"c1"}`)
	}

	client := newTestClient(t, handler, session("alpha"))

	tweets, err := client.Search(t.Context(), "#tag lang:en", 2)
	require.NoError(t, err)

	require.Len(t, tweets, 2, "a server ignoring count must not push past the limit")
	assert.Equal(t, "https://x.com/p/2", tweets[1].URL)
}

func TestSearchPagesThroughResults(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"tweets":[{"id":"1","url":"https://x.com/p/1"}],"nextCursor":"c1"}`)
			return
		}

		fmt.Fprint(w, `{"tweets":[{"id":"2","url":"https://x.com/p/2"}],"nextCursor":""}`)
	}

	client := newTestClient(t, handler, session("alpha"))

	tweets, err := client.Search(t.Context(), "#tag lang:en", 10)
	require.NoError(t, err)

	require.Len(t, tweets, 2)
	assert.Equal(t, "https://x.com/p/1", tweets[0].URL)
	assert.Equal(t, "https://x.com/p/2", tweets[1].URL)
}

func TestSearchTransientOnServerError(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	alpha := session("alpha")

	client := newTestClient(t, handler, alpha)

	_, err := client.Search(t.Context(), "#tag lang:en", 10)
	require.ErrorIs(t, err, twitter.ErrTransient)

	assert.False(t, alpha.Exhausted, "server errors must not burn the session")
}
