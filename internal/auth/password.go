package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes は bcrypt が扱える入力の上限です。
const maxPasswordBytes = 72

// PasswordHasher は bcrypt によるハッシュ化と検証を提供します。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher は指定コストの PasswordHasher を作成します。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash はパスワードの bcrypt ハッシュを返します。
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify はパスワードがハッシュと一致するかを返します。
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
