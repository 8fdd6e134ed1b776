package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

// Catalog covers the plain single-document resources: products and persons.
// No cross-entity invariants live here.
type Catalog struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewCatalog(gdb *gorm.DB, l *zap.SugaredLogger) *Catalog {
	return &Catalog{
		db:     gdb,
		logger: l,
	}
}

func (s *Catalog) CreateProduct(name string, price float64, description *string) (*db.Product, error) {
	if name == "" {
		return nil, Invalid("product name is required")
	}
	if price < 0 {
		return nil, Invalid("price must not be negative")
	}

	product := db.Product{
		Name:        name,
		Price:       price,
		Description: description,
	}
	if err := s.db.Create(&product).Error; err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &product, nil
}

func (s *Catalog) GetProducts() ([]db.Product, error) {
	products := make([]db.Product, 0)
	if err := s.db.Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	return products, nil
}

func (s *Catalog) GetProduct(id uint64) (*db.Product, error) {
	product := db.Product{}
	res := s.db.First(&product, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("product not found")
		}
		return nil, errors.Wrap(res.Error, "find product")
	}
	return &product, nil
}

func (s *Catalog) UpdateProduct(id uint64, name *string, price *float64, description *string) (*db.Product, error) {
	if price != nil && *price < 0 {
		return nil, Invalid("price must not be negative")
	}

	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		if *name == "" {
			return nil, Invalid("product name is required")
		}
		updates["name"] = *name
	}
	if price != nil {
		updates["price"] = *price
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.Model(product).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return product, nil
}

func (s *Catalog) DeleteProduct(id uint64) error {
	product, err := s.GetProduct(id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(product).Error; err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

func (s *Catalog) CreatePerson(name string, email *string) (*db.Person, error) {
	if name == "" {
		return nil, Invalid("person name is required")
	}

	person := db.Person{
		Name:  name,
		Email: email,
	}
	if err := s.db.Create(&person).Error; err != nil {
		return nil, errors.Wrap(err, "create person")
	}
	return &person, nil
}

func (s *Catalog) GetPerson(id uint64) (*db.Person, error) {
	person := db.Person{}
	res := s.db.First(&person, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("person not found")
		}
		return nil, errors.Wrap(res.Error, "find person")
	}
	return &person, nil
}

func (s *Catalog) GetPersons() ([]db.Person, error) {
	persons := make([]db.Person, 0)
	if err := s.db.Find(&persons).Error; err != nil {
		return nil, errors.Wrap(err, "find persons")
	}
	return persons, nil
}

func (s *Catalog) UpdatePerson(id uint64, name *string, email *string) (*db.Person, error) {
	person := db.Person{}
	if err := s.db.First(&person, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("person not found")
		}
		return nil, errors.Wrap(err, "find person")
	}

	updates := map[string]interface{}{}
	if name != nil {
		if *name == "" {
			return nil, Invalid("person name is required")
		}
		updates["name"] = *name
	}
	if email != nil {
		updates["email"] = *email
	}
	if len(updates) == 0 {
		return &person, nil
	}

	if err := s.db.Model(&person).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "update person")
	}
	return &person, nil
}

func (s *Catalog) DeletePerson(id uint64) error {
	person := db.Person{}
	if err := s.db.First(&person, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("person not found")
		}
		return errors.Wrap(err, "find person")
	}
	if err := s.db.Delete(&person).Error; err != nil {
		return errors.Wrap(err, "delete person")
	}
	return nil
}
