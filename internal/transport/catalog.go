package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

type (
	ProductReq struct {
		Name        string   `json:"name" validate:"required"`
		Price       *float64 `json:"price" validate:"required"`
		Description *string  `json:"description"`
	}

	ProductUpdateReq struct {
		Name        *string  `json:"name"`
		Price       *float64 `json:"price"`
		Description *string  `json:"description"`
	}

	ProductResp struct {
		ID          uint64  `json:"id"`
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		Description *string `json:"description,omitempty"`
	}

	PersonReq struct {
		Name  string  `json:"name" validate:"required"`
		Email *string `json:"email"`
	}

	PersonUpdateReq struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}

	PersonResp struct {
		ID    uint64  `json:"id"`
		Name  string  `json:"name"`
		Email *string `json:"email,omitempty"`
	}
)

func (s *HTTPServer) ProductCreate(c echo.Context) error {
	req := ProductReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := s.catalog.CreateProduct(req.Name, *req.Price, req.Description)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toProductResp(product))
}

func (s *HTTPServer) ProductList(c echo.Context) error {
	products, err := s.catalog.GetProducts()
	if err != nil {
		return err
	}

	resp := make([]ProductResp, len(products))
	for i := range products {
		resp[i] = toProductResp(&products[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) ProductGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	product, err := s.catalog.GetProduct(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProductResp(product))
}

func (s *HTTPServer) ProductUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := ProductUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	product, err := s.catalog.UpdateProduct(id, req.Name, req.Price, req.Description)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toProductResp(product))
}

func (s *HTTPServer) ProductDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.catalog.DeleteProduct(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) PersonCreate(c echo.Context) error {
	req := PersonReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	person, err := s.catalog.CreatePerson(req.Name, req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toPersonResp(person))
}

func (s *HTTPServer) PersonList(c echo.Context) error {
	persons, err := s.catalog.GetPersons()
	if err != nil {
		return err
	}

	resp := make([]PersonResp, len(persons))
	for i := range persons {
		resp[i] = toPersonResp(&persons[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) PersonGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	person, err := s.catalog.GetPerson(id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toPersonResp(person))
}

func (s *HTTPServer) PersonUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	req := PersonUpdateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	person, err := s.catalog.UpdatePerson(id, req.Name, req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toPersonResp(person))
}

func (s *HTTPServer) PersonDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.catalog.DeletePerson(id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func toProductResp(product *db.Product) ProductResp {
	return ProductResp{
		ID:          product.ID,
		Name:        product.Name,
		Price:       product.Price,
		Description: product.Description,
	}
}

func toPersonResp(person *db.Person) PersonResp {
	return PersonResp{
		ID:    person.ID,
		Name:  person.Name,
		Email: person.Email,
	}
}
