package hashutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
)

func TestToolsETag(t *testing.T) {
	a := []domain.ToolDescriptor{
		domain.NewToolDescriptor("get_orders", "List orders", json.RawMessage(`{"type":"object"}`)),
		domain.NewToolDescriptor("send_email", "Send", nil),
	}
	same := []domain.ToolDescriptor{
		domain.NewToolDescriptor("get_orders", "List orders", json.RawMessage(`{"type":"object"}`)),
		domain.NewToolDescriptor("send_email", "Send", nil),
	}
	reordered := []domain.ToolDescriptor{a[1], a[0]}
	changed := []domain.ToolDescriptor{a[0], domain.NewToolDescriptor("send_email", "Send mail", nil)}

	etag := ToolsETag(zap.NewNop(), a)
	assert.Len(t, etag, 64)
	assert.Equal(t, etag, ToolsETag(nil, same))
	assert.NotEqual(t, etag, ToolsETag(nil, reordered))
	assert.NotEqual(t, etag, ToolsETag(nil, changed))
	assert.Equal(t, ToolsETag(nil, nil), ToolsETag(nil, []domain.ToolDescriptor{}))
}

func TestJSONHash_Error(t *testing.T) {
	_, err := JSONHash(func() {})
	assert.Error(t, err)
	assert.Empty(t, hashWithLogger(zap.NewNop(), "broken", func() (string, error) {
		return JSONHash(make(chan int))
	}))
}
