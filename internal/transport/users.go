package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

type (
	RegisterReq struct {
		Name           string `json:"name" validate:"required"`
		Email          string `json:"email" validate:"required,email"`
		Password       string `json:"password" validate:"required"`
		Bio            string `json:"bio"`
		ProfilePicture string `json:"profilePicture"`
	}

	LoginReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	UserUpdateReq struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}

	UserResp struct {
		ID            uint64        `json:"id"`
		Name          string        `json:"name"`
		Email         string        `json:"email"`
		Profile       *ProfileResp  `json:"profile,omitempty"`
		BorrowedBooks []uint64      `json:"borrowedBooks"`
	}

	LoginResp struct {
		User  UserResp `json:"user"`
		Token string   `json:"token"`
	}

	ProfileCreateReq struct {
		UserID         uint64 `json:"userId" validate:"required"`
		Bio            string `json:"bio"`
		ProfilePicture string `json:"profilePicture"`
	}

	ProfileUpdateReq struct {
		Bio            *string `json:"bio"`
		ProfilePicture *string `json:"profilePicture"`
	}

	ProfileResp struct {
		ID      uint64 `json:"id"`
		UserID  uint64 `json:"userId"`
		Bio     string `json:"bio"`
		Picture string `json:"profilePicture"`
	}
)

func (s *HTTPServer) Register(c echo.Context) error {
	req := RegisterReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := s.users.CreateUserWithProfile(req.Name, req.Email, req.Password, req.Bio, req.ProfilePicture)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toUserResp(user))
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := LoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, LoginResp{
		User:  toUserResp(user),
		Token: token,
	})
}

func (s *HTTPServer) UserCreate(c echo.Context) error {
	return s.Register(c)
}

func (s *HTTPServer) UserList(c echo.Context) error {
	users, err := s.users.GetUsers()
	if err != nil {
		return err
	}

	resp := make([]UserResp, len(users))
	for i := range users {
		resp[i] = toUserResp(&users[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) UserGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	user, err := s.users.GetUser(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toUserResp(user))
}

func (s *HTTPServer) UserUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := UserUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := s.users.UpdateUser(id, req.Name, req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toUserResp(user))
}

func (s *HTTPServer) UserDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.users.DeleteUser(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) ProfileCreate(c echo.Context) error {
	req := ProfileCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := s.users.CreateProfile(req.UserID, req.Bio, req.ProfilePicture)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toProfileResp(profile))
}

func (s *HTTPServer) ProfileGet(c echo.Context) error {
	userID, err := GetAndParseParam(c, "userId")
	if err != nil {
		return err
	}

	profile, err := s.users.GetProfile(userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProfileResp(profile))
}

func (s *HTTPServer) ProfileUpdate(c echo.Context) error {
	userID, err := GetAndParseParam(c, "userId")
	if err != nil {
		return err
	}

	req := ProfileUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := s.users.UpdateProfile(userID, req.Bio, req.ProfilePicture)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProfileResp(profile))
}

func (s *HTTPServer) ProfileDelete(c echo.Context) error {
	userID, err := GetAndParseParam(c, "userId")
	if err != nil {
		return err
	}

	if err := s.users.DeleteProfile(userID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func toUserResp(user *db.User) UserResp {
	resp := UserResp{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		BorrowedBooks: make([]uint64, len(user.BorrowedBooks)),
	}
	for i := range user.BorrowedBooks {
		resp.BorrowedBooks[i] = user.BorrowedBooks[i].ID
	}
	if user.Profile != nil {
		p := toProfileResp(user.Profile)
		resp.Profile = &p
	}
	return resp
}

func toProfileResp(profile *db.Profile) ProfileResp {
	return ProfileResp{
		ID:      profile.ID,
		UserID:  profile.UserID,
		Bio:     profile.Bio,
		Picture: profile.Picture,
	}
}
