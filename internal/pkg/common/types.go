package common

// 響應狀態
const (
	StatusSuccess = "success"
)
