package repository

import "gorm.io/gorm"

type Repository struct {
	DB        *gorm.DB
	Orders    OrderRepo
	Products  ProductRepo
	Addresses AddressRepo
	Carts     CartRepo
}

func New(db *gorm.DB) *Repository {
	return &Repository{
		DB:        db,
		Orders:    NewOrderRepo(db),
		Products:  NewProductRepo(db),
		Addresses: NewAddressRepo(db),
		Carts:     NewCartRepo(db),
	}
}
