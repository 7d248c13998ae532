package comfy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comfycam/internal/testutil"
	"comfycam/internal/workflow"
)

func TestSubmitPrompt(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.SubmitBody = `{"prompt_id":"pid42"}`

	graph, err := workflow.Parse([]byte(testutil.SampleGraphJSON))
	require.NoError(t, err)

	client := New(fake.Host(), WithClientID("token-1"))
	id, err := client.SubmitPrompt(context.Background(), graph)
	require.NoError(t, err)
	assert.Equal(t, "pid42", id)

	require.Len(t, fake.Prompts, 1)
	sent := fake.Prompts[0]
	assert.Equal(t, "token-1", sent.ClientID)
	assert.Contains(t, sent.Graph, "10")
	assert.Contains(t, sent.Graph, "9")
}

func TestSubmitPromptCarriesUploadedName(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()

	graph, err := workflow.Parse([]byte(testutil.SampleGraphJSON))
	require.NoError(t, err)
	doc, err := graph.WithInputImage("10", "frame123.png")
	require.NoError(t, err)

	client := New(fake.Host())
	_, err = client.SubmitPrompt(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, fake.Prompts, 1)
	var node struct {
		Inputs map[string]any `json:"inputs"`
	}
	require.NoError(t, json.Unmarshal(fake.Prompts[0].Graph["10"], &node))
	assert.Equal(t, "frame123.png", node.Inputs["image"])
}

func TestSubmitPromptMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing prompt_id", body: `{"error":"bad graph"}`},
		{name: "empty prompt_id", body: `{"prompt_id":""}`},
		{name: "not json", body: `<html>boom</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeComfy()
			defer fake.Close()
			fake.SubmitBody = tt.body

			graph, err := workflow.Parse([]byte(testutil.SampleGraphJSON))
			require.NoError(t, err)

			client := New(fake.Host())
			_, err = client.SubmitPrompt(context.Background(), graph)
			require.Error(t, err)

			var merr *MalformedResponseError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, "Bad submission response", merr.Message)
			assert.Contains(t, err.Error(), "Bad submission response: ")
			assert.Contains(t, err.Error(), tt.body)
		})
	}
}

func TestSubmitPromptErrorStatusStillReportsBody(t *testing.T) {
	fake := testutil.NewFakeComfy()
	defer fake.Close()
	fake.SubmitStatus = 400
	fake.SubmitBody = `{"error":"invalid prompt"}`

	graph, err := workflow.Parse([]byte(testutil.SampleGraphJSON))
	require.NoError(t, err)

	client := New(fake.Host())
	_, err = client.SubmitPrompt(context.Background(), graph)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prompt")
}
