package lmssdk_test

import (
	"encoding/json"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/stretchr/testify/require"
)

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	t.Parallel()

	var v struct {
		A lmssdk.ID `json:"a"`
		B lmssdk.ID `json:"b"`
		C lmssdk.ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":42,"b":"abc-1","c":null}`), &v))
	require.Equal(t, lmssdk.ID("42"), v.A)
	require.Equal(t, lmssdk.ID("abc-1"), v.B)
	require.Equal(t, lmssdk.ID(""), v.C)

	out, err := json.Marshal(map[string]lmssdk.ID{"num": "42", "str": "abc-1", "padded": "007"})
	require.NoError(t, err)
	require.JSONEq(t, `{"num":42,"str":"abc-1","padded":"007"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestPageDecodesBothShapes(t *testing.T) {
	t.Parallel()

	var bare lmssdk.Page[lmssdk.Course]
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"title":"A"},{"id":2,"title":"B"}]`), &bare))
	require.Len(t, bare.Items, 2)
	require.Equal(t, 2, bare.Total)

	var wrapped lmssdk.Page[lmssdk.Course]
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"id":"x","title":"A"}],"total":9,"page":2,"per_page":1}`), &wrapped))
	require.Len(t, wrapped.Items, 1)
	require.Equal(t, lmssdk.ID("x"), wrapped.Items[0].ID)
	require.Equal(t, 9, wrapped.Total)
	require.Equal(t, 2, wrapped.Page)

	var empty lmssdk.Page[lmssdk.Course]
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	require.NotNil(t, empty.Items)
	require.Empty(t, empty.Items)
}
