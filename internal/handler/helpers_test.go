package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(buf)
}

func decodeTask(t *testing.T, resp *http.Response) model.Task {
	t.Helper()
	var task model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	return task
}
