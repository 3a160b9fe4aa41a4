package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// OTPLength はワンタイムパスワードの桁数。
	OTPLength = 6
	// ClientIDLength はクライアントIDの桁数。
	ClientIDLength = 10
)

var ten = big.NewInt(10)

// RandomDigits は暗号的に安全な乱数からn桁の数字文字列を生成する。
// 先頭の0も桁として保持する。
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("digit count must be positive: %d", n)
	}
	b := make([]byte, n)
	for i := range b {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		b[i] = byte('0' + d.Int64())
	}
	return string(b), nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
