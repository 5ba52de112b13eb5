package repository

import (
	"hbpos/internal/model"

	"gorm.io/gorm"
)

// CustomerRepository is only used from inside the sale transaction.
type CustomerRepository interface {
	FindByEmailTx(tx *gorm.DB, email string) (*model.Customer, error)
	FindByPhoneTx(tx *gorm.DB, phone string) (*model.Customer, error)
	CreateTx(tx *gorm.DB, c *model.Customer) error
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) FindByEmailTx(tx *gorm.DB, email string) (*model.Customer, error) {
	var c model.Customer
	err := tx.Where("email = ?", email).First(&c).Error
	return &c, err
}

func (r *customerRepo) FindByPhoneTx(tx *gorm.DB, phone string) (*model.Customer, error) {
	var c model.Customer
	err := tx.Where("phone = ?", phone).First(&c).Error
	return &c, err
}

func (r *customerRepo) CreateTx(tx *gorm.DB, c *model.Customer) error {
	return tx.Create(c).Error
}
