package comfy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comfycam/internal/testutil"
)

func TestPollHistoryReturnsOutput(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.OutputFilename = "out.png"
	fake.OutputType = "output"

	client := New(fake.Host())
	ref, err := client.PollHistory(context.Background(), "pid1", PollOptions{
		Timeout:    2 * time.Second,
		Interval:   10 * time.Millisecond,
		OutputNode: "9",
	})
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "out.png", ref.Filename)
	assert.Equal(t, "", ref.Subfolder)
	assert.Equal(t, "output", ref.Type)
}

func TestPollHistoryReadyAfterKPolls(t *testing.T) {
	const k = 3
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.HistoryReadyAfter = k

	client := New(fake.Host())
	ref, err := client.PollHistory(context.Background(), "pid1", PollOptions{
		Timeout:    5 * time.Second,
		Interval:   5 * time.Millisecond,
		OutputNode: "9",
	})
	require.NoError(t, err)
	require.NotNil(t, ref)

	// The success exit fires on attempt k+1, never earlier.
	assert.Equal(t, k+1, fake.HistoryCalls)
}

func TestPollHistoryTimeout(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.HistoryReadyAfter = 1 << 30 // never ready

	client := New(fake.Host())
	timeout := 100 * time.Millisecond
	start := time.Now()
	ref, err := client.PollHistory(context.Background(), "pid1", PollOptions{
		Timeout:    timeout,
		Interval:   10 * time.Millisecond,
		OutputNode: "9",
	})
	elapsed := time.Since(start)

	// Timeout is a distinct non-error outcome, reached no sooner than the
	// configured ceiling.
	require.NoError(t, err)
	assert.Nil(t, ref)
	assert.GreaterOrEqual(t, elapsed, timeout)
}

func TestPollHistoryWatchesDesignatedNodeOnly(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.OutputNode = "7" // output published by a different node

	client := New(fake.Host())
	ref, err := client.PollHistory(context.Background(), "pid1", PollOptions{
		Timeout:    80 * time.Millisecond,
		Interval:   10 * time.Millisecond,
		OutputNode: "9",
	})
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestPollHistoryContextCancel(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.HistoryReadyAfter = 1 << 30

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	client := New(fake.Host())
	_, err := client.PollHistory(ctx, "pid1", PollOptions{
		Timeout:    10 * time.Second,
		Interval:   10 * time.Millisecond,
		OutputNode: "9",
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollHistoryScenario(t *testing.T) {
	// The exact wire shape of a finished entry.
	body := `{"pid1":{"outputs":{"9":{"images":[{"filename":"out.png","subfolder":"","type":"output"}]}}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/history/pid1", r.URL.Path)
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	client := New(srv.URL)
	ref, err := client.PollHistory(context.Background(), "pid1", PollOptions{
		Timeout:    time.Second,
		Interval:   10 * time.Millisecond,
		OutputNode: "9",
	})
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, ArtifactRef{Filename: "out.png", Subfolder: "", Type: "output"}, *ref)
}

func TestPollHistoryRetriesOnBadResponses(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			fmt.Fprint(w, "not json")
		default:
			fmt.Fprint(w, `{"pid1":{"outputs":{"9":{"images":[{"filename":"out.png"}]}}}}`)
		}
	}))
	defer srv.Close()

	client := New(srv.URL)
	ref, err := client.PollHistory(context.Background(), "pid1", PollOptions{
		Timeout:    2 * time.Second,
		Interval:   5 * time.Millisecond,
		OutputNode: "9",
	})
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, 3, calls)
}
