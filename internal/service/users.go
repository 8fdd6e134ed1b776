package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

const DefaultProfilePicture = "default-profile.jpg"

var (
	nameRegexp  = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ\s]+$`)
	emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type Users struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewUsers(gdb *gorm.DB, l *zap.SugaredLogger) *Users {
	return &Users{
		db:     gdb,
		logger: l,
	}
}

// CreateUserWithProfile registers a user and its profile as one transaction:
// the user row, the profile row, and the user's back-reference to the profile
// either all exist afterwards or none do. The password never leaves this
// layer unhashed.
func (s *Users) CreateUserWithProfile(name, email, password, bio, picture string) (*db.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, Invalid("name, email and password are required")
	}
	if err := validateUserName(name); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(bio) > bioMaxLen {
		return nil, Invalid("bio must be at most 500 characters")
	}
	if picture == "" {
		picture = DefaultProfilePicture
	}

	hash, err := bcryptGen(password)
	if err != nil {
		return nil, err
	}

	user := db.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check email")
		}
		if count > 0 {
			return Conflict("email is already in use")
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("email is already in use")
			}
			return errors.Wrap(err, "create user")
		}

		profile := db.Profile{
			UserID:  user.ID,
			Bio:     bio,
			Picture: picture,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return errors.Wrap(err, "create profile")
		}

		if err := tx.Model(&user).Update("profile_id", profile.ID).Error; err != nil {
			return errors.Wrap(err, "link profile")
		}
		user.Profile = &profile

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Users) GetUsers() ([]db.User, error) {
	users := make([]db.User, 0)
	if err := s.db.Preload("Profile").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "find users")
	}
	return users, nil
}

func (s *Users) GetUser(id uint64) (*db.User, error) {
	user := db.User{}
	res := s.db.Preload("Profile").Preload("BorrowedBooks").First(&user, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, errors.Wrap(res.Error, "find user")
	}
	return &user, nil
}

func (s *Users) GetUserByEmail(email string) (*db.User, error) {
	user := db.User{}
	res := s.db.Preload("Profile").Where("email = ?", normalizeEmail(email)).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, errors.Wrap(res.Error, "find user")
	}
	return &user, nil
}

// UpdateUser changes name and/or email. Nil means "leave unchanged".
func (s *Users) UpdateUser(id uint64, name, email *string) (*db.User, error) {
	if name != nil {
		if err := validateUserName(*name); err != nil {
			return nil, err
		}
	}
	if email != nil {
		*email = normalizeEmail(*email)
		if err := validateEmail(*email); err != nil {
			return nil, err
		}
	}

	user := db.User{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return errors.Wrap(err, "find user")
		}

		updates := map[string]interface{}{}
		if name != nil {
			updates["name"] = *name
		}
		if email != nil {
			var count int64
			if err := tx.Model(&db.User{}).Where("email = ? AND id <> ?", *email, id).Count(&count).Error; err != nil {
				return errors.Wrap(err, "check email")
			}
			if count > 0 {
				return Conflict("email is already in use")
			}
			updates["email"] = *email
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("email is already in use")
			}
			return errors.Wrap(err, "update user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// DeleteUser removes the user, its profile and every trace of it as a
// borrower: books it held become available again. One transaction, so no
// book is ever left pointing at a missing user.
func (s *Users) DeleteUser(id uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		user := db.User{}
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return errors.Wrap(err, "find user")
		}

		res := tx.Model(&db.Book{}).
			Where("borrowed_by_id = ?", id).
			Updates(map[string]interface{}{"borrowed_by_id": nil, "is_available": true})
		if res.Error != nil {
			return errors.Wrap(res.Error, "release borrowed books")
		}

		// The profile reference must go before the profile row does, or the
		// store rejects the delete.
		if err := tx.Model(&user).Update("profile_id", nil).Error; err != nil {
			return errors.Wrap(err, "unlink profile")
		}

		if err := tx.Where("user_id = ?", id).Delete(&db.Profile{}).Error; err != nil {
			return errors.Wrap(err, "delete profile")
		}

		if err := tx.Delete(&user).Error; err != nil {
			return errors.Wrap(err, "delete user")
		}
		return nil
	})
}

// CreateProfile binds a profile to an existing user that has none yet.
func (s *Users) CreateProfile(userID uint64, bio, picture string) (*db.Profile, error) {
	if len(bio) > bioMaxLen {
		return nil, Invalid("bio must be at most 500 characters")
	}
	if picture == "" {
		picture = DefaultProfilePicture
	}

	profile := db.Profile{
		UserID:  userID,
		Bio:     bio,
		Picture: picture,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		user := db.User{}
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return errors.Wrap(err, "find user")
		}

		var count int64
		if err := tx.Model(&db.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check profile")
		}
		if count > 0 {
			return Conflict("this user already has a profile")
		}

		if err := tx.Create(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("this user already has a profile")
			}
			return errors.Wrap(err, "create profile")
		}

		if err := tx.Model(&user).Update("profile_id", profile.ID).Error; err != nil {
			return errors.Wrap(err, "link profile")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (s *Users) GetProfile(userID uint64) (*db.Profile, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}

	profile := db.Profile{}
	res := s.db.Where("user_id = ?", userID).First(&profile)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("profile not found")
		}
		return nil, errors.Wrap(res.Error, "find profile")
	}
	return &profile, nil
}

func (s *Users) UpdateProfile(userID uint64, bio, picture *string) (*db.Profile, error) {
	if bio != nil && len(*bio) > bioMaxLen {
		return nil, Invalid("bio must be at most 500 characters")
	}

	profile, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if bio != nil {
		updates["bio"] = *bio
	}
	if picture != nil {
		updates["picture"] = *picture
	}
	if len(updates) == 0 {
		return profile, nil
	}

	if err := s.db.Model(profile).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return profile, nil
}

// DeleteProfile removes the profile and clears the user's back-reference in
// one transaction.
func (s *Users) DeleteProfile(userID uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		user := db.User{}
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return errors.Wrap(err, "find user")
		}

		profile := db.Profile{}
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("profile not found")
			}
			return errors.Wrap(err, "find profile")
		}

		if err := tx.Model(&user).Update("profile_id", nil).Error; err != nil {
			return errors.Wrap(err, "unlink profile")
		}

		if err := tx.Delete(&profile).Error; err != nil {
			return errors.Wrap(err, "delete profile")
		}
		return nil
	})
}

const bioMaxLen = 500

func validateUserName(name string) error {
	if len(name) < 2 || len(name) > 50 {
		return Invalid("name must be between 2 and 50 characters")
	}
	if !nameRegexp.MatchString(name) {
		return Invalid("name must contain only letters and spaces")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRegexp.MatchString(email) {
		return Invalid(fmt.Sprintf("email is invalid: %s", email))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
