package graphql

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	gql "github.com/graphql-go/graphql"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/acervo-digital/biblioteca-back/internal/db"
	"github.com/acervo-digital/biblioteca-back/internal/service"
)

type (
	Server struct {
		schema gql.Schema
		auth   *service.Auth
		users  *service.Users
		logger *zap.SugaredLogger
	}

	Request struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	emailContextKey struct{}
)

func NewServer(auth *service.Auth, users *service.Users, logger *zap.SugaredLogger) (*Server, error) {
	instance := Server{
		auth:   auth,
		users:  users,
		logger: logger,
	}

	schema, err := instance.buildSchema()
	if err != nil {
		return nil, errors.Wrap(err, "build schema")
	}
	instance.schema = schema

	return &instance, nil
}

// Handle serves a single GraphQL request on the main HTTP server. A bearer
// token, when present, must be valid; its email lands in the resolver
// context.
func (s *Server) Handle(c echo.Context) error {
	req := Request{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return service.Unauthorized("invalid token")
		}
		email, err := s.auth.VerifyToken(parts[1])
		if err != nil {
			return err
		}
		ctx = context.WithValue(ctx, emailContextKey{}, email)
	}

	result := gql.Do(gql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})
	if len(result.Errors) > 0 {
		s.logger.Debugw("graphql request finished with errors", "operation", req.OperationName, "errors", result.Errors)
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) buildSchema() (gql.Schema, error) {
	userType := gql.NewObject(gql.ObjectConfig{
		Name: "User",
		Fields: gql.Fields{
			"id": &gql.Field{
				Type: gql.NewNonNull(gql.ID),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					user, err := userFromSource(p.Source)
					if err != nil {
						return nil, err
					}
					return strconv.FormatUint(user.ID, 10), nil
				},
			},
			"name": &gql.Field{
				Type: gql.NewNonNull(gql.String),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					user, err := userFromSource(p.Source)
					if err != nil {
						return nil, err
					}
					return user.Name, nil
				},
			},
			"email": &gql.Field{
				Type: gql.NewNonNull(gql.String),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					user, err := userFromSource(p.Source)
					if err != nil {
						return nil, err
					}
					return user.Email, nil
				},
			},
		},
	})

	authPayloadType := gql.NewObject(gql.ObjectConfig{
		Name: "AuthPayload",
		Fields: gql.Fields{
			"user":  &gql.Field{Type: gql.NewNonNull(userType)},
			"token": &gql.Field{Type: gql.NewNonNull(gql.String)},
		},
	})

	queryType := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"me": &gql.Field{
				Type: userType,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					email, _ := p.Context.Value(emailContextKey{}).(string)
					if email == "" {
						return nil, errors.New("not authenticated")
					}
					return s.users.GetUserByEmail(email)
				},
			},
			"users": &gql.Field{
				Type: gql.NewList(gql.NewNonNull(userType)),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return s.users.GetUsers()
				},
			},
			"user": &gql.Field{
				Type: userType,
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "id")
					if err != nil {
						return nil, err
					}
					return s.users.GetUser(id)
				},
			},
		},
	})

	mutationType := gql.NewObject(gql.ObjectConfig{
		Name: "Mutation",
		Fields: gql.Fields{
			"register": &gql.Field{
				Type: gql.NewNonNull(userType),
				Args: gql.FieldConfigArgument{
					"name":     &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"email":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"password": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					name, _ := p.Args["name"].(string)
					email, _ := p.Args["email"].(string)
					password, _ := p.Args["password"].(string)
					return s.users.CreateUserWithProfile(name, email, password, "", "")
				},
			},
			"login": &gql.Field{
				Type: gql.NewNonNull(authPayloadType),
				Args: gql.FieldConfigArgument{
					"email":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
					"password": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.String)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					email, _ := p.Args["email"].(string)
					password, _ := p.Args["password"].(string)
					user, token, err := s.auth.Login(email, password)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"user":  user,
						"token": token,
					}, nil
				},
			},
			"updateUser": &gql.Field{
				Type: gql.NewNonNull(userType),
				Args: gql.FieldConfigArgument{
					"id":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
					"name":  &gql.ArgumentConfig{Type: gql.String},
					"email": &gql.ArgumentConfig{Type: gql.String},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "id")
					if err != nil {
						return nil, err
					}
					var name, email *string
					if v, ok := p.Args["name"].(string); ok {
						name = &v
					}
					if v, ok := p.Args["email"].(string); ok {
						email = &v
					}
					return s.users.UpdateUser(id, name, email)
				},
			},
			"deleteUser": &gql.Field{
				Type: gql.NewNonNull(gql.Boolean),
				Args: gql.FieldConfigArgument{
					"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.ID)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "id")
					if err != nil {
						return nil, err
					}
					if err := s.users.DeleteUser(id); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
		},
	})

	return gql.NewSchema(gql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func userFromSource(source interface{}) (*db.User, error) {
	switch u := source.(type) {
	case *db.User:
		return u, nil
	case db.User:
		return &u, nil
	case map[string]interface{}:
		if inner, ok := u["user"]; ok {
			return userFromSource(inner)
		}
	}
	return nil, errors.Errorf("unexpected source type %T", source)
}

func idArg(p gql.ResolveParams, name string) (uint64, error) {
	raw, _ := p.Args[name].(string)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, service.Invalid("id is invalid")
	}
	return id, nil
}
