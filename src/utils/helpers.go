package utils

import (
	"cwms/src/config"
	"cwms/src/models"
	"cwms/src/types"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gosimple/slug"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

// GenerateToken signs a session token for the user. MemberID is zero for
// guests.
func GenerateToken(user *models.User, memberID uint) (string, error) {
	claims := types.Claims{
		Username: user.Email,
		Role:     user.Role,
		MemberID: memberID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(jwtKey)
}

// ParseTime parses request timestamps in the wire format.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(config.TIME_PARSE_FORMAT, value)
}

// MakeSlug builds a url-safe slug from the name.
func MakeSlug(name string) string {
	return slug.Make(name)
}

// OwnerFromContext reads the authenticated principal set by the auth
// middleware as an owner reference. Members book as members, anyone else as
// a plain user.
func OwnerFromContext(ctx *gin.Context) types.OwnerRef {
	memberID := ctx.GetUint("member_id")
	if memberID > 0 {
		return types.OwnerRef{Kind: types.OWNER_MEMBER, ID: memberID}
	}
	return types.OwnerRef{Kind: types.OWNER_USER, ID: ctx.GetUint("id")}
}
