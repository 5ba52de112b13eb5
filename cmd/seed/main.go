// cmd/seed/main.go: creates the default voucher categories and a few
// unissued vouchers per category. Safe to run repeatedly.
// Usage: go run ./cmd/seed [-vouchers 5]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"hbpos/internal/config"
	"hbpos/internal/dto"
	"hbpos/internal/infra"
	"hbpos/internal/repository"
	"hbpos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var defaultCategories = []int64{1000, 3000, 5000, 10000}

func main() {
	perCategory := flag.Int("vouchers", 5, "unissued vouchers to create per new category")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	categories := repository.NewVoucherCategoryRepository(db)
	vouchers := service.NewVoucherService(repository.NewVoucherRepository(db), categories, nil, service.VoucherOptions{
		CodePrefix: cfg.VoucherCodePrefix,
	})

	ctx := context.Background()
	for _, amount := range defaultCategories {
		name := fmt.Sprintf("Rs. %d", amount)
		_, err := categories.FindByName(ctx, name)
		if err == nil {
			log.Info().Str("category", name).Msg("exists, skipped")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatal().Err(err).Str("category", name).Msg("lookup failed")
		}

		desc := fmt.Sprintf("Gift voucher worth Rs. %d", amount)
		created, err := vouchers.CreateCategory(ctx, dto.CreateVoucherCategoryRequest{
			Name:        name,
			Amount:      decimal.NewFromInt(amount),
			Description: &desc,
		})
		if err != nil {
			log.Fatal().Err(err).Str("category", name).Msg("create category failed")
		}
		if *perCategory > 0 {
			if _, err := vouchers.CreateVouchers(ctx, dto.CreateVouchersRequest{
				VoucherCategoryID: created.ID,
				Quantity:          *perCategory,
			}); err != nil {
				log.Fatal().Err(err).Str("category", name).Msg("create vouchers failed")
			}
		}
		log.Info().Str("category", name).Int("vouchers", *perCategory).Msg("seeded")
	}
}
