package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"mcpbridge/internal/domain"
)

// ToolsETag returns a content hash of an ordered tool list and logs on failure.
// Equal lists hash equally regardless of when they were fetched.
func ToolsETag(logger *zap.Logger, tools []domain.ToolDescriptor) string {
	return hashWithLogger(logger, "tools", func() (string, error) {
		if tools == nil {
			tools = []domain.ToolDescriptor{}
		}
		return JSONHash(tools)
	})
}

// JSONHash returns the hex sha256 of the JSON encoding of value.
func JSONHash(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	etag, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return etag
}
