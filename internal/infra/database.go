package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and applies the
// schema. TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates every table, index and constraint. Each statement is
// idempotent so it runs on every start. GORM AutoMigrate is not used against
// postgres: decimal precision, CHECKs and the circular sales ↔ vouchers
// foreign keys are spelled out here.
func RunMigrations(db *gorm.DB) error {
	for _, p := range schema {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("schema %q: %w", p.descr, err)
		}
	}
	return nil
}

var schema = []struct{ descr, sql string }{
	{"colors", `
CREATE TABLE IF NOT EXISTS colors (
  id         BIGSERIAL PRIMARY KEY,
  name       VARCHAR(100) NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"products", `
CREATE TABLE IF NOT EXISTS products (
  id             BIGSERIAL PRIMARY KEY,
  name           VARCHAR(255) NOT NULL,
  barcode        VARCHAR(64)  NOT NULL DEFAULT '',
  code           VARCHAR(64)  NOT NULL DEFAULT '',
  color_id       BIGINT REFERENCES colors(id) ON DELETE SET NULL,
  size_id        BIGINT,
  category_id    BIGINT,
  supplier_id    BIGINT,
  cost_price     DECIMAL(12,2) NOT NULL DEFAULT 0,
  selling_price  DECIMAL(12,2) NOT NULL DEFAULT 0,
  stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
  expire_date    DATE,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_products_barcode", `CREATE INDEX IF NOT EXISTS idx_products_barcode ON products (barcode)`},
	{"idx_products_code", `CREATE INDEX IF NOT EXISTS idx_products_code ON products (code)`},
	{"stock_transactions", `
CREATE TABLE IF NOT EXISTS stock_transactions (
  id               BIGSERIAL PRIMARY KEY,
  product_id       BIGINT NOT NULL REFERENCES products(id),
  transaction_type VARCHAR(20) NOT NULL,
  quantity         INTEGER NOT NULL,
  transaction_date TIMESTAMPTZ NOT NULL,
  supplier_id      BIGINT,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_stock_transactions_product", `CREATE INDEX IF NOT EXISTS idx_stock_transactions_product_id ON stock_transactions (product_id)`},
	{"customers", `
CREATE TABLE IF NOT EXISTS customers (
  id             BIGSERIAL PRIMARY KEY,
  name           VARCHAR(255) NOT NULL DEFAULT '',
  email          VARCHAR(160) UNIQUE,
  phone          VARCHAR(40)  UNIQUE,
  address        VARCHAR(255) NOT NULL DEFAULT '',
  member_since   DATE,
  loyalty_points INTEGER NOT NULL DEFAULT 0,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"voucher_categories", `
CREATE TABLE IF NOT EXISTS voucher_categories (
  id          BIGSERIAL PRIMARY KEY,
  name        VARCHAR(255) NOT NULL,
  amount      DECIMAL(12,2) NOT NULL CHECK (amount >= 0),
  description TEXT,
  is_active   BOOLEAN NOT NULL DEFAULT false,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"sales", `
CREATE TABLE IF NOT EXISTS sales (
  id                     BIGSERIAL PRIMARY KEY,
  customer_id            BIGINT REFERENCES customers(id) ON DELETE SET NULL,
  employee_id            BIGINT NOT NULL,
  user_id                BIGINT NOT NULL,
  order_code             VARCHAR(32) UNIQUE,
  total_amount           DECIMAL(12,2) NOT NULL,
  total_cost             DECIMAL(12,2) NOT NULL,
  discount               DECIMAL(12,2) NOT NULL DEFAULT 0,
  payment_method         VARCHAR(30) NOT NULL,
  cash                   DECIMAL(12,2),
  custom_discount        DECIMAL(12,2),
  custom_discount_type   VARCHAR(20) NOT NULL DEFAULT 'fixed',
  sale_date              DATE NOT NULL,
  has_vouchers           BOOLEAN NOT NULL DEFAULT false,
  paid_with_voucher      BOOLEAN NOT NULL DEFAULT false,
  redeemed_voucher_id    BIGINT,
  voucher_payment_amount DECIMAL(12,2) NOT NULL DEFAULT 0,
  voucher_categories     JSONB,
  created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT chk_sales_discount CHECK (discount >= 0 AND total_amount >= discount)
)`},
	{"idx_sales_customer", `CREATE INDEX IF NOT EXISTS idx_sales_customer_id ON sales (customer_id)`},
	{"sale_items", `
CREATE TABLE IF NOT EXISTS sale_items (
  id          BIGSERIAL PRIMARY KEY,
  sale_id     BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
  product_id  BIGINT REFERENCES products(id) ON DELETE SET NULL,
  quantity    INTEGER NOT NULL CHECK (quantity > 0),
  unit_price  DECIMAL(12,2) NOT NULL,
  total_price DECIMAL(12,2) NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_sale_items_sale", `CREATE INDEX IF NOT EXISTS idx_sale_items_sale_id ON sale_items (sale_id)`},
	{"vouchers", `
CREATE TABLE IF NOT EXISTS vouchers (
  id                  BIGSERIAL PRIMARY KEY,
  voucher_category_id BIGINT NOT NULL REFERENCES voucher_categories(id) ON DELETE CASCADE,
  voucher_code        VARCHAR(16) NOT NULL UNIQUE,
  quantity            INTEGER NOT NULL DEFAULT 1,
  sale_id             BIGINT REFERENCES sales(id) ON DELETE SET NULL,
  issued_at           TIMESTAMPTZ,
  is_used             BOOLEAN NOT NULL DEFAULT false,
  used_at             TIMESTAMPTZ,
  redeemed_sale_id    BIGINT REFERENCES sales(id) ON DELETE SET NULL,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	// Reservation scans available vouchers of one category in id order.
	{"idx_vouchers_available", `
CREATE INDEX IF NOT EXISTS idx_vouchers_available
  ON vouchers (voucher_category_id, id)
  WHERE is_used = false AND sale_id IS NULL`},
	{"idx_vouchers_sale", `CREATE INDEX IF NOT EXISTS idx_vouchers_sale_id ON vouchers (sale_id)`},
	// sales is created before vouchers, so this FK is added afterwards.
	{"fk_sales_redeemed_voucher", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_sales_redeemed_voucher') THEN
    ALTER TABLE sales
      ADD CONSTRAINT fk_sales_redeemed_voucher
      FOREIGN KEY (redeemed_voucher_id) REFERENCES vouchers(id) ON DELETE SET NULL;
  END IF;
END $$`},
}
