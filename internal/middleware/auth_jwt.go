package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"supplychain/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey   = "user_id"  // int64
	CtxIdentityKey = "identity" // model.Identity
)

// bearerAuth用のJWT検証ミドルウェア（発行は認証サービス側）。
// claims: sub, roles, active_role
func AuthJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//claimsを取り出す
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			ident, err := identityFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存
			c.Set(CtxUserIDKey, ident.UserID)
			c.Set(CtxIdentityKey, ident)

			return next(c)
		}
	}
}

// handlerから利用者を取り出す
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	ident, ok := c.Get(CtxIdentityKey).(model.Identity)
	if !ok || ident.UserID <= 0 {
		return model.Identity{}, false
	}
	return ident, true
}

func identityFromClaims(claims jwt.MapClaims) (model.Identity, error) {
	//user_idを取り出す
	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return model.Identity{}, errors.New("invalid sub")
	}

	roles, err := parseRoles(claims["roles"])
	if err != nil {
		return model.Identity{}, err
	}

	//active_roleがなければrolesが1つのときだけそれを使う
	activeRaw, _ := claims["active_role"].(string)
	active := model.Role(strings.ToUpper(strings.TrimSpace(activeRaw)))
	if active == "" && len(roles) == 1 {
		active = roles[0]
	}
	if !active.Valid() {
		return model.Identity{}, errors.New("invalid active_role")
	}

	ident := model.Identity{UserID: userID, ActiveRole: active, Roles: roles}
	//持っていないロールでは動けない
	if len(roles) > 0 && !ident.HasRole(active) {
		return model.Identity{}, errors.New("active_role not granted")
	}
	if len(roles) == 0 {
		ident.Roles = []model.Role{active}
	}
	return ident, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseRoles(v interface{}) ([]model.Role, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, errors.New("invalid roles")
	}
	out := make([]model.Role, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, errors.New("invalid roles")
		}
		r := model.Role(strings.ToUpper(strings.TrimSpace(s)))
		if !r.Valid() {
			return nil, errors.New("invalid roles")
		}
		out = append(out, r)
	}
	return out, nil
}
