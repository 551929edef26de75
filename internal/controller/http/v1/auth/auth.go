package auth

import (
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"laberion/backend/foundation/web"
	"laberion/backend/internal/repository/postgres/user"
)

var ErrCredentials = errors.New("incorrect login or password")

type Controller struct {
	user   User
	tokens Tokens
}

func NewController(user User, tokens Tokens) *Controller {
	return &Controller{user: user, tokens: tokens}
}

func (uc Controller) SignIn(c *web.Context) error {
	var data user.SignInRequest

	err := c.BindFunc(&data, "Login", "Password")
	if err != nil {
		return c.RespondError(err)
	}

	detail, err := uc.user.GetByLogin(c.Ctx, data.Login)
	if err != nil {
		return c.RespondError(err)
	}

	if detail.Password == nil || detail.Role == nil {
		return c.RespondError(web.NewRequestError(ErrCredentials, http.StatusUnauthorized))
	}

	if err = bcrypt.CompareHashAndPassword([]byte(*detail.Password), []byte(data.Password)); err != nil {
		return c.RespondError(web.NewRequestError(ErrCredentials, http.StatusUnauthorized))
	}

	accessToken, refreshToken, err := uc.tokens.GenerateTokens(detail.ID, *detail.Role)
	if err != nil {
		return c.RespondError(web.NewRequestError(errors.Wrap(err, "generating tokens"), http.StatusInternalServerError))
	}

	return c.Respond(map[string]interface{}{
		"status": true,
		"data": map[string]string{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"role":          *detail.Role,
		},
	}, http.StatusOK)
}

func (uc Controller) RefreshToken(c *web.Context) error {
	var data user.RefreshTokenRequest

	err := c.BindFunc(&data, "RefreshToken")
	if err != nil {
		return c.RespondError(err)
	}

	accessToken, refreshToken, err := uc.tokens.Refresh(data.RefreshToken)
	if err != nil {
		return c.RespondError(web.NewRequestError(err, http.StatusUnauthorized))
	}

	return c.Respond(map[string]interface{}{
		"status": true,
		"data": map[string]string{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
		},
	}, http.StatusOK)
}
