package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophgallery/internal/common"
)

// bcryptCost is a seam so tests can hash with bcrypt.MinCost.
var bcryptCost = bcrypt.DefaultCost

// HashPassword returns a salted bcrypt digest of password. bcrypt only
// reads 72 bytes; longer passwords are common.ErrPasswordTooLong.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.ErrPasswordTooLong
		}
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether password matches the bcrypt digest hash.
// bcrypt compares in constant time.
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
