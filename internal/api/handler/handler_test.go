package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/gamehub/internal/api"
)

// call dispatches body through the session and returns the decoded response
func call(t *testing.T, sess api.Session, body map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	op, _ := body["op"].(string)
	resp := sess.Router().Dispatch(context.Background(), op, raw)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	return decoded
}

func code(resp map[string]any) string {
	c, _ := resp["code"].(string)
	return c
}

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
