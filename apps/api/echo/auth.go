package echoapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/ratiba/core"
)

const audience = "Ratiba Admin"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

func NewClaims(conf *core.Config, username string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   username,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: username,
		IsAdmin:  true,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// authenticator checks the configured admin credential.
// The password is only kept as a bcrypt hash.
type authenticator struct {
	conf      *core.Config
	username  string
	pwdHash   []byte
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, logger core.Logger) *authenticator {
	a := &authenticator{
		conf:     conf,
		username: core.CleanString(conf.Admin.Username, true /* lower */),
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
	if conf.Admin.Password == "" {
		logger.Warn("admin password not configured, login disabled")
		return a
	}

	cost := bcrypt.DefaultCost
	if conf.TestMode {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(conf.Admin.Password), cost)
	if err != nil {
		logger.Error("hashing admin password, login disabled", err)
		return a
	}
	a.pwdHash = hash
	return a
}

func (a *authenticator) authenticate(uname, pwd string) (*Claims, error) {
	if a.pwdHash == nil || subtle.ConstantTimeCompare([]byte(uname), []byte(a.username)) != 1 {
		return nil, errAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword(a.pwdHash, []byte(pwd)); err != nil {
		return nil, errAuthenticationFailed
	}
	return NewClaims(a.conf, a.username), nil
}

var contextTokenKey = "userToken"

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

type authApi struct {
	auth     *authenticator
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, auth *authenticator, validate *validator.Validate) {
	api := authApi{auth: auth, validate: validate}

	// TODO: rate limit `/login`
	g.POST("/auth/login", api.login)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.auth.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
