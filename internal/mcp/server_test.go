package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/unified-inbox/internal/config"
	"github.com/brandon/unified-inbox/internal/inbox"
	"github.com/brandon/unified-inbox/internal/tools"
	"github.com/brandon/unified-inbox/pkg/types"
)

type emptySource struct{}

func (emptySource) FetchConversationMessages(context.Context, types.FilterOptions) ([]types.Message, error) {
	return nil, nil
}

func (emptySource) FetchMessages(context.Context, string) ([]types.Message, error) {
	return nil, nil
}

func (emptySource) ThreadStamp(context.Context, string) (types.ThreadStamp, error) {
	return types.ThreadStamp{}, nil
}

type emptyHidden struct{}

func (emptyHidden) HiddenThreadIDs(context.Context) ([]string, error) { return nil, nil }
func (emptyHidden) AddHiddenThreads(context.Context, []string) error { return nil }
func (emptyHidden) RemoveHiddenThreads(context.Context, []string) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	session, err := inbox.NewSession(emptySource{}, inbox.NewRegistry(emptyHidden{}, logger), inbox.DefaultOptions(), logger)
	require.NoError(t, err)

	registry := tools.NewRegistry(tools.Deps{
		Config:  &config.Config{SearchResultLimit: 10},
		Session: session,
		Logger:  logger,
	})
	return NewServer(registry, "test", logger)
}

func run(t *testing.T, s *Server, requests ...string) []map[string]interface{} {
	t.Helper()
	var out bytes.Buffer
	err := s.Run(context.Background(), strings.NewReader(strings.Join(requests, "\n")), &out)
	require.NoError(t, err)

	var responses []map[string]interface{}
	dec := json.NewDecoder(&out)
	for dec.More() {
		var resp map[string]interface{}
		require.NoError(t, dec.Decode(&resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServerInitializeAndList(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, responses, 2, "notifications get no response")

	info := responses[0]["result"].(map[string]interface{})["serverInfo"].(map[string]interface{})
	assert.Equal(t, "unified-inbox", info["name"])
	assert.Equal(t, "test", info["version"])

	toolList := responses[1]["result"].(map[string]interface{})["tools"].([]interface{})
	assert.NotEmpty(t, toolList)
}

func TestServerToolCall(t *testing.T) {
	s := newTestServer(t)
	responses := run(t, s,
		`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"list_conversations","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":"b","method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":"c","method":"tools/call","params":{"name":"get_thread","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":"d","method":"bogus"}`,
	)
	require.Len(t, responses, 4)

	content := responses[0]["result"].(map[string]interface{})["content"].([]interface{})
	text := content[0].(map[string]interface{})["text"].(string)
	assert.Contains(t, text, `"conversations":[]`)

	assert.EqualValues(t, codeMethodNotFound, responses[1]["error"].(map[string]interface{})["code"])
	assert.Equal(t, "c", responses[2]["id"])
	assert.EqualValues(t, codeInternalError, responses[2]["error"].(map[string]interface{})["code"])
	assert.EqualValues(t, codeMethodNotFound, responses[3]["error"].(map[string]interface{})["code"])
}

func TestServerParseError(t *testing.T) {
	s := newTestServer(t)
	var out bytes.Buffer
	err := s.Run(context.Background(), strings.NewReader(`{not json`), &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Parse error")
}
