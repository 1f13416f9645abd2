package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"fridge-vision/internal/pkg/common"
)

// Deduplicator 在時間窗內拒絕相同的 POST 請求
type Deduplicator struct {
	window time.Duration
	seen   *gocache.Cache
}

// NewDeduplicator 創建去重器，window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		window: window,
		seen:   gocache.New(window, 10*window),
	}
}

// fingerprint 方法、路徑、查詢字串與請求體雜湊
func fingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + "?" + r.URL.RawQuery + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Middleware 請求去重中間件，只處理 POST 請求
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				abort(c, common.ErrRequestTooLarge.Wrap(err))
				return
			}
			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		// Add 在鍵已存在且未過期時回傳錯誤
		if err := d.seen.Add(fingerprint(c.Request, body), time.Now(), d.window); err != nil {
			common.LogWarn("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			abort(c, common.ErrConflict)
			return
		}

		c.Next()
	}
}
