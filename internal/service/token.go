package service

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenBytes 验证 token 的随机字节数，hex 编码后为 64 个字符
const TokenBytes = 32

// NewVerificationToken 生成不可预测的验证 token
// 随机源不可用时无法安全继续，直接 panic
func NewVerificationToken() string {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("service: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
