package transport

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

type (
	BookReq struct {
		Title      string   `json:"title" validate:"required"`
		Author     string   `json:"author" validate:"required"`
		Categories []string `json:"categories"`
	}

	BookUpdateReq struct {
		Title      *string  `json:"title"`
		Author     *string  `json:"author"`
		Categories []string `json:"categories"`
	}

	BorrowReq struct {
		UserID uint64 `json:"userId" validate:"required"`
	}

	BookResp struct {
		ID          uint64   `json:"id"`
		Title       string   `json:"title"`
		Author      string   `json:"author"`
		Categories  []string `json:"categories"`
		BorrowedBy  *uint64  `json:"borrowedBy"`
		IsAvailable bool     `json:"isAvailable"`
	}

	CategoryReq struct {
		Name string `json:"name" validate:"required"`
	}

	CategoryUpdateReq struct {
		Name *string `json:"name"`
	}

	BookRef struct {
		ID     uint64 `json:"id"`
		Title  string `json:"title"`
		Author string `json:"author"`
	}

	CategoryResp struct {
		ID    uint64    `json:"id"`
		Name  string    `json:"name"`
		Books []BookRef `json:"books"`
	}
)

func (s *HTTPServer) BookCreate(c echo.Context) error {
	req := BookReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	book, err := s.library.CreateBook(req.Title, req.Author, req.Categories)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toBookResp(book))
}

func (s *HTTPServer) BookList(c echo.Context) error {
	var category *string
	if v := c.QueryParam("category"); v != "" {
		category = &v
	}
	var available *bool
	if v := c.QueryParam("available"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid query param 'available'")
		}
		available = &parsed
	}

	books, err := s.library.ListBooks(category, available)
	if err != nil {
		return err
	}

	resp := make([]BookResp, len(books))
	for i := range books {
		resp[i] = toBookResp(&books[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	book, err := s.library.GetBook(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookResp(book))
}

func (s *HTTPServer) BookUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := BookUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	book, err := s.library.UpdateBook(id, req.Title, req.Author, req.Categories)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookResp(book))
}

func (s *HTTPServer) BookDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.library.DeleteBook(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) BookBorrow(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := BorrowReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	book, err := s.library.BorrowBook(id, req.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookResp(book))
}

func (s *HTTPServer) BookReturn(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	book, err := s.library.ReturnBook(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookResp(book))
}

func (s *HTTPServer) CategoryCreate(c echo.Context) error {
	req := CategoryReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := s.library.CreateCategory(req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toCategoryResp(category))
}

func (s *HTTPServer) CategoryList(c echo.Context) error {
	categories, err := s.library.GetCategories()
	if err != nil {
		return err
	}

	resp := make([]CategoryResp, len(categories))
	for i := range categories {
		resp[i] = toCategoryResp(&categories[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) CategoryGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	category, err := s.library.GetCategory(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toCategoryResp(category))
}

func (s *HTTPServer) CategoryUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := CategoryUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := s.library.UpdateCategory(id, req.Name)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toCategoryResp(category))
}

func (s *HTTPServer) CategoryDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.library.DeleteCategory(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func toBookResp(book *db.Book) BookResp {
	resp := BookResp{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Categories:  make([]string, len(book.Categories)),
		BorrowedBy:  book.BorrowedByID,
		IsAvailable: book.IsAvailable,
	}
	for i := range book.Categories {
		resp.Categories[i] = book.Categories[i].Name
	}
	return resp
}

func toCategoryResp(category *db.Category) CategoryResp {
	resp := CategoryResp{
		ID:    category.ID,
		Name:  category.Name,
		Books: make([]BookRef, len(category.Books)),
	}
	for i := range category.Books {
		resp.Books[i] = BookRef{
			ID:     category.Books[i].ID,
			Title:  category.Books[i].Title,
			Author: category.Books[i].Author,
		}
	}
	return resp
}
