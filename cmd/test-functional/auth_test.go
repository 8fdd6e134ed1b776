package test_functional

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	u := AppBaseURL
	u.Path = "/auth/register"

	t.Run("successful register", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		type Resp struct {
			ID    uint64 `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&Resp{}).
			SetBody(`
			{"name": "Test User", "email": "test@gmail.com", "password": "111111111111"}
		`).
			Post(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode())

		got, ok := resp.Result().(*Resp)
		assert.True(t, ok)
		assert.NotZero(t, got.ID)
		assert.Equal(t, "test@gmail.com", got.Email)

		var (
			email     string
			profileID *uint64
		)
		row := DBConn.Raw("SELECT email, profile_id FROM users WHERE id = ?", got.ID).Row()
		assert.Nil(t, row.Scan(&email, &profileID))
		assert.Equal(t, "test@gmail.com", email)
		assert.NotNil(t, profileID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		body := `{"name": "Test User", "email": "dup@gmail.com", "password": "111111111111"}`

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(body).
			Post(u.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode())

		resp, err = resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(body).
			Post(u.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	})

	t.Run("bad body", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(`
			{"something": "???"}
		`).
			Post(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	})
}

func TestLogin(t *testing.T) {
	registerURL := AppBaseURL
	registerURL.Path = "/auth/register"
	loginURL := AppBaseURL
	loginURL.Path = "/auth/login"

	t.Run("successful login", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(`{"name": "Login User", "email": "login@gmail.com", "password": "111111111111"}`).
			Post(registerURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode())

		type Resp struct {
			Token string `json:"token"`
			User  struct {
				Email string `json:"email"`
			} `json:"user"`
		}

		resp, err = resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetResult(&Resp{}).
			SetBody(`{"email": "login@gmail.com", "password": "111111111111"}`).
			Post(loginURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())

		got, ok := resp.Result().(*Resp)
		assert.True(t, ok)
		assert.NotEmpty(t, got.Token)
		assert.Equal(t, "login@gmail.com", got.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(`{"name": "Login User", "email": "login2@gmail.com", "password": "111111111111"}`).
			Post(registerURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode())

		resp, err = resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(`{"email": "login2@gmail.com", "password": "999999999999"}`).
			Post(loginURL.String())
		assert.Nil(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})
}
