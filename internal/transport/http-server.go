package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/acervo-digital/biblioteca-back/internal/config"
	"github.com/acervo-digital/biblioteca-back/internal/db"
	"github.com/acervo-digital/biblioteca-back/internal/graphql"
	"github.com/acervo-digital/biblioteca-back/internal/service"
)

type (
	ErrorResp struct {
		Error string `json:"error"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		auth     *service.Auth
		users    *service.Users
		library  *service.Library
		projects *service.Projects
		catalog  *service.Catalog
		logger   *zap.SugaredLogger
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	auth *service.Auth,
	users *service.Users,
	library *service.Library,
	projects *service.Projects,
	catalog *service.Catalog,
	gql *graphql.Server,
	logger *zap.SugaredLogger,
) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		auth:     auth,
		users:    users,
		library:  library,
		projects: projects,
		catalog:  catalog,
		logger:   logger,
	}

	e.POST("/auth/register", instance.Register)
	e.POST("/auth/login", instance.Login)

	userG := e.Group("/users")
	userG.POST("", instance.UserCreate)
	userG.GET("", instance.UserList)
	userG.GET("/:id", instance.UserGet)
	userG.PUT("/:id", instance.UserUpdate)
	userG.DELETE("/:id", instance.UserDelete)

	profileG := e.Group("/profiles")
	profileG.POST("", instance.ProfileCreate)
	profileG.GET("/:userId", instance.ProfileGet)
	profileG.PUT("/:userId", instance.ProfileUpdate)
	profileG.DELETE("/:userId", instance.ProfileDelete)

	bookG := e.Group("/books", instance.AuthMiddleware)
	bookG.POST("", instance.BookCreate)
	bookG.GET("", instance.BookList)
	bookG.GET("/:id", instance.BookGet)
	bookG.PUT("/:id", instance.BookUpdate)
	bookG.DELETE("/:id", instance.BookDelete)
	bookG.POST("/:id/borrow", instance.BookBorrow)
	bookG.POST("/:id/return", instance.BookReturn)

	categoryG := e.Group("/categories")
	categoryG.POST("", instance.CategoryCreate)
	categoryG.GET("", instance.CategoryList)
	categoryG.GET("/:id", instance.CategoryGet)
	categoryG.PUT("/:id", instance.CategoryUpdate)
	categoryG.DELETE("/:id", instance.CategoryDelete)

	productG := e.Group("/products")
	productG.POST("", instance.ProductCreate)
	productG.GET("", instance.ProductList)
	productG.GET("/:id", instance.ProductGet)
	productG.PUT("/:id", instance.ProductUpdate)
	productG.DELETE("/:id", instance.ProductDelete)

	personG := e.Group("/persons")
	personG.POST("", instance.PersonCreate)
	personG.GET("", instance.PersonList)
	personG.GET("/:id", instance.PersonGet)
	personG.PUT("/:id", instance.PersonUpdate)
	personG.DELETE("/:id", instance.PersonDelete)

	taskG := e.Group("/tasks")
	taskG.POST("", instance.TaskCreate)
	taskG.GET("", instance.TaskList)
	taskG.GET("/:id", instance.TaskGet)
	taskG.PUT("/:id", instance.TaskUpdate)
	taskG.DELETE("/:id", instance.TaskDelete)

	projectG := e.Group("/projects")
	projectG.POST("", instance.ProjectCreate)
	projectG.GET("", instance.ProjectList)
	projectG.GET("/:id", instance.ProjectGet)
	projectG.PUT("/:id", instance.ProjectUpdate)
	projectG.DELETE("/:id", instance.ProjectDelete)

	e.POST("/graphql", gql.Handle)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(RequestIDMiddleware)
	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if len(reqBody) > 0 {
			logger.Debugw("request body", "path", c.Path(), "body", string(censorBody(reqBody)))
		}
	}))

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = instance.ErrorHandler

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

// ErrorHandler renders every error as {"error": message} with the status
// dictated by the error class. Unclassified errors become an opaque 500.
func (s *HTTPServer) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	httpErr := &echo.HTTPError{}
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		msg = fmt.Sprintf("%v", httpErr.Message)
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		code = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		code = http.StatusUnauthorized
		msg = err.Error()
	default:
		s.logger.Errorw("unhandled error", "path", c.Path(), "err", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResp{Error: msg})
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return service.Unauthorized("missing bearer token")
		}

		email, err := s.auth.VerifyToken(parts[1])
		if err != nil {
			return err
		}

		user, err := s.users.GetUserByEmail(email)
		if err != nil {
			return service.Unauthorized("invalid token")
		}

		c.Set("user", user)
		return next(c)
	}
}

func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := uuid.New().String()
		c.Set("request_id", id)
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return err
	}
	return nil
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, _ := c.Get("user").(*db.User)
	if user == nil {
		return nil, service.Unauthorized("no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid path param '%s'", name))
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid path param '%s'", name))
	}
	return vv, nil
}

// censorBody blanks credential fields before a request body reaches the log.
func censorBody(b []byte) []byte {
	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return b
	}
	if _, ok := m["password"]; ok {
		m["password"] = "$censored"
	}
	out, err := json.Marshal(m)
	if err != nil {
		return b
	}
	return out
}
