package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LevelDebug, Out: &buf})
	require.NoError(t, err)

	log := l.Component("animator")
	log.Debug().Str("instance", "a1").Msg("bones resolved")

	out := buf.String()
	assert.Contains(t, out, `"component":"animator"`)
	assert.Contains(t, out, `"instance":"a1"`)
	assert.Contains(t, out, `"app":"cortexrig"`)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LevelWarn, Out: &buf})
	require.NoError(t, err)

	log := l.Component("scene")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestHistoryIsBounded(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LevelInfo, MaxHistory: 3, Out: &buf})
	require.NoError(t, err)

	log := l.Component("scene")
	for _, m := range []string{"one", "two", "three", "four"} {
		log.Info().Msg(m)
	}
	h := l.History(0)
	require.Len(t, h, 3)
	assert.Equal(t, "two", h[0].Message)
	assert.Equal(t, "four", h[2].Message)
	assert.Equal(t, "scene", h[2].Component)
	assert.Equal(t, "info", h[2].Level)

	assert.Len(t, l.History(2), 2)
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Dir: dir, Level: LevelInfo})
	require.NoError(t, err)

	log := l.Component("cli")
	log.Info().Msg("to disk")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to disk"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel(LevelDebug).String())
	assert.Equal(t, "error", ParseLevel(LevelError).String())
	assert.Equal(t, "info", ParseLevel("verbose").String())
}

func TestHistoryHandler(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: LevelInfo, Out: &buf})
	require.NoError(t, err)
	log := l.Component("stream")
	for _, m := range []string{"one", "two", "three"} {
		log.Info().Msg(m)
	}
	srv := httptest.NewServer(l.HistoryHandler(2))
	defer srv.Close()

	get := func(query string) (int, HistoryResponse) {
		resp, err := http.Get(srv.URL + query)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body HistoryResponse
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		}
		return resp.StatusCode, body
	}

	code, body := get("")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "two", body.Entries[0].Message)
	assert.Equal(t, "stream", body.Entries[1].Component)
	assert.Empty(t, body.Path)

	_, body = get("?limit=0")
	assert.Len(t, body.Entries, 3)

	code, _ = get("?limit=many")
	assert.Equal(t, http.StatusBadRequest, code)
}
