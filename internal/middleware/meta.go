package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-lifecycle-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

// ResponseMeta seeds per-request envelope metadata. Handlers read it back
// through Meta when rendering.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{"started_at": time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaMap(c)["cache_hit"] = hit
}

// Meta returns the envelope metadata for the current request, or nil when
// the ResponseMeta middleware is not installed.
func Meta(c *gin.Context) map[string]interface{} {
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	stored, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}

	meta := make(map[string]interface{}, len(stored)+2)
	for k, v := range stored {
		if k == "started_at" {
			if started, ok := v.(time.Time); ok {
				meta["processing_time_ms"] = time.Since(started).Milliseconds()
			}
			continue
		}
		meta[k] = v
	}
	if id := requestid.Value(c); id != "" {
		meta["request_id"] = id
	}
	return meta
}

func metaMap(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if stored, ok := value.(map[string]interface{}); ok {
			return stored
		}
	}
	stored := map[string]interface{}{}
	c.Set(responseMetaKey, stored)
	return stored
}
