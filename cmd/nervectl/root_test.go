package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNerve maps known texts to fixed vectors.
func fakeNerve(t *testing.T) *httptest.Server {
	t.Helper()
	vectors := map[string][]float32{
		"hello world": {1, 0},
		"hello there": {1, 0},
		"goodbye":     {0, 1},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vec, ok := vectors[req.Text]
		if !ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","text"],"msg":"unknown","type":"value_error"}]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEmbedCommand(t *testing.T) {
	srv := fakeNerve(t)
	defer srv.Close()

	out, err := execute(t, "", "--url", srv.URL, "embed", "hello world")
	require.NoError(t, err)
	assert.JSONEq(t, `{"embedding":[1,0]}`, out)
}

func TestEmbedCommandReadsStdin(t *testing.T) {
	srv := fakeNerve(t)
	defer srv.Close()

	out, err := execute(t, "goodbye\n", "--url", srv.URL, "embed")
	require.NoError(t, err)
	assert.JSONEq(t, `{"embedding":[0,1]}`, out)
}

func TestEmbedCommandSurfacesAPIErrors(t *testing.T) {
	srv := fakeNerve(t)
	defer srv.Close()

	_, err := execute(t, "", "--url", srv.URL, "--attempts", "1", "embed", "unknown text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestSimilarityCommand(t *testing.T) {
	srv := fakeNerve(t)
	defer srv.Close()

	out, err := execute(t, "", "--url", srv.URL, "similarity", "hello world", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "1.0000\n", out)

	out, err = execute(t, "", "--url", srv.URL, "similarity", "hello world", "goodbye")
	require.NoError(t, err)
	assert.Equal(t, "0.0000\n", out)
}

func TestSimilarityCommandNeedsTwoArgs(t *testing.T) {
	_, err := execute(t, "", "similarity", "only one")
	assert.Error(t, err)
}

func TestInputText(t *testing.T) {
	got, err := inputText(strings.NewReader("ignored"), []string{"arg"})
	require.NoError(t, err)
	assert.Equal(t, "arg", got)

	got, err = inputText(strings.NewReader("from stdin\r\n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)
}
