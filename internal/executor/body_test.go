package executor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restgate/agent/internal/types"
)

func inactive() *bool {
	b := false
	return &b
}

func TestBuildBody(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		payload, ct, err := BuildBody(types.BodySpec{Type: types.BodyNone})
		require.NoError(t, err)
		assert.Nil(t, payload)
		assert.Empty(t, ct)
	})

	t.Run("empty type treated as none", func(t *testing.T) {
		payload, ct, err := BuildBody(types.BodySpec{})
		require.NoError(t, err)
		assert.Nil(t, payload)
		assert.Empty(t, ct)
	})

	t.Run("raw", func(t *testing.T) {
		payload, ct, err := BuildBody(types.BodySpec{Type: types.BodyRaw, Raw: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", string(payload))
		assert.Equal(t, "text/plain", ct)
	})

	t.Run("json object serialized", func(t *testing.T) {
		payload, ct, err := BuildBody(types.BodySpec{
			Type: types.BodyJSON,
			JSON: json.RawMessage(`{"a":1}`),
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(payload))
		assert.Equal(t, "application/json", ct)
	})

	t.Run("json string passed through as text", func(t *testing.T) {
		payload, ct, err := BuildBody(types.BodySpec{
			Type: types.BodyJSON,
			JSON: json.RawMessage(`"{\"pre\":true}"`),
		})
		require.NoError(t, err)
		assert.Equal(t, `{"pre":true}`, string(payload))
		assert.Equal(t, "application/json", ct)
	})

	t.Run("form fields encoded in order", func(t *testing.T) {
		payload, ct, err := BuildBody(types.BodySpec{
			Type: types.BodyFormURL,
			Form: []types.KV{
				{Key: "user name", Value: "a&b"},
				{Key: "skip", Value: "me", Active: inactive()},
				{Key: "z", Value: "1"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "user+name=a%26b&z=1", string(payload))
		assert.Equal(t, "application/x-www-form-urlencoded", ct)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, _, err := BuildBody(types.BodySpec{Type: "multipart"})
		assert.Error(t, err)
	})
}

func TestMergeQuery(t *testing.T) {
	t.Run("appends after existing query", func(t *testing.T) {
		merged, err := MergeQuery("https://api.example.com/v1?a=1", []types.KV{
			{Key: "b", Value: "2"},
			{Key: "c", Value: "3"},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1?a=1&b=2&c=3", merged)
	})

	t.Run("skips inactive params", func(t *testing.T) {
		merged, err := MergeQuery("https://api.example.com/v1", []types.KV{
			{Key: "a", Value: "1", Active: inactive()},
			{Key: "b", Value: "2"},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1?b=2", merged)
	})

	t.Run("escapes keys and values", func(t *testing.T) {
		merged, err := MergeQuery("https://api.example.com/", []types.KV{
			{Key: "q", Value: "a b&c"},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/?q=a+b%26c", merged)
	})

	t.Run("no params leaves url unchanged", func(t *testing.T) {
		merged, err := MergeQuery("https://api.example.com/v1?x=y", nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/v1?x=y", merged)
	})
}
