// Package handlers HTTP 處理器共用的回應與參數解析
package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"fridge-vision/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Success 回傳成功響應，data 的欄位併入最外層
func Success(c *gin.Context, status int, message string, data gin.H) {
	body := gin.H{
		"status":     common.StatusSuccess,
		"request_id": requestid.Get(c),
	}
	if message != "" {
		body["message"] = message
	}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error 將錯誤轉為統一的錯誤響應
func Error(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	_ = c.Error(err)

	fields := []zap.Field{
		zap.String("code", ce.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.Error(err),
	}
	if ce.Status >= 500 {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求被拒絕", fields...)
	}
	c.AbortWithStatusJSON(ce.Status, ce.Response())
}

// IntQuery 讀取整數查詢參數並檢查範圍
func IntQuery(c *gin.Context, name string, def, lo, hi int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, common.NewValidationError(fmt.Sprintf("%s must be an integer", name))
	}
	if v < lo || v > hi {
		return 0, common.NewValidationError(fmt.Sprintf("%s must be within [%d,%d]", name, lo, hi))
	}
	return v, nil
}

// FloatQuery 讀取浮點數查詢參數並檢查範圍
func FloatQuery(c *gin.Context, name string, def, lo, hi float64) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, common.NewValidationError(fmt.Sprintf("%s must be a number", name))
	}
	if v < lo || v > hi {
		return 0, common.NewValidationError(fmt.Sprintf("%s must be within [%g,%g]", name, lo, hi))
	}
	return v, nil
}

// BoolQuery 讀取布林查詢參數
func BoolQuery(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, common.NewValidationError(fmt.Sprintf("%s must be a boolean", name))
	}
	return v, nil
}

// ListQuery 讀取可重複或以逗號分隔的查詢參數
func ListQuery(c *gin.Context, name string) []string {
	return common.SplitList(c.QueryArray(name))
}
