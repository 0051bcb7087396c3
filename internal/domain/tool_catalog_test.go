package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToolDescriptor_MarshalCanonical(t *testing.T) {
	desc := NewToolDescriptor("a", "d", nil)
	raw, err := json.Marshal(desc)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"a","description":"d","parameters":{}}`, string(raw))
}

func TestToolDescriptor_MarshalPassthrough(t *testing.T) {
	desc := PassthroughToolDescriptor("b", "", nil, json.RawMessage(`{"name":"b","extra":1}`))
	raw, err := json.Marshal(desc)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"b","extra":1}`, string(raw))
}

func TestToolCatalog_EventNeverNullTools(t *testing.T) {
	raw, err := json.Marshal(ToolCatalog{}.Event())
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"tools","tools":[]}`, string(raw))
}

func TestToolCatalog_LookupAndAge(t *testing.T) {
	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	catalog := ToolCatalog{
		Tools:     []ToolDescriptor{NewToolDescriptor("a", "", nil), NewToolDescriptor("b", "", nil)},
		FetchedAt: fetched,
	}
	require.Equal(t, []string{"a", "b"}, catalog.Names())
	_, ok := catalog.Lookup("b")
	require.True(t, ok)
	_, ok = catalog.Lookup("c")
	require.False(t, ok)
	require.Equal(t, time.Minute, catalog.Age(fetched.Add(time.Minute)))
	require.False(t, catalog.IsZero())
	require.True(t, ToolCatalog{}.IsZero())
}
