package clickthrough

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_DecodesBack(t *testing.T) {
	p := Payload{
		ID:         "17",
		Type:       "page",
		Tags:       []string{"web"},
		Query:      "hello world",
		RequestID:  "req-1",
		DocumentID: "doc-1",
		EngineName: "content-prod",
	}

	link, err := Link("/_click/", p)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "/_click?d="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	got, err := Decode(u.Query().Get(Param))
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.True(t, got.Loggable())
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"not base64":   "%%%",
		"not json":     base64.StdEncoding.EncodeToString([]byte("nope")),
		"missing type": base64.StdEncoding.EncodeToString([]byte(`{"id":"1"}`)),
		"missing id":   base64.StdEncoding.EncodeToString([]byte(`{"type":"page"}`)),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDecode_IDForms(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"string id", `{"id":"17","type":"page"}`, "17"},
		{"numeric id", `{"id":17,"type":"page","query":"q"}`, "17"},
		{"large numeric id", `{"id":9007199254740993,"type":"file"}`, "9007199254740993"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(base64.StdEncoding.EncodeToString([]byte(tt.json)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.ID)
		})
	}

	_, err := Decode(base64.StdEncoding.EncodeToString([]byte(`{"id":true,"type":"page"}`)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPayload_Loggable(t *testing.T) {
	assert.False(t, Payload{ID: "1", Type: "page", Query: "q", DocumentID: "d"}.Loggable())
	assert.False(t, Payload{ID: "1", Type: "page", EngineName: "e", DocumentID: "d"}.Loggable())
	assert.True(t, Payload{EngineName: "e", Query: "q", DocumentID: "d"}.Loggable())
}
