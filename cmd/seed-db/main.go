package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
	"github.com/doce-emergencia/storefront/internal/domain/poll"
	"github.com/doce-emergencia/storefront/internal/domain/product"
	"github.com/doce-emergencia/storefront/internal/storage/postgres"
)

type seedFile struct {
	Products []productJSON `json:"products"`
	Coupons  []couponJSON  `json:"coupons"`
	Rewards  []rewardJSON  `json:"rewards"`
	Polls    []pollJSON    `json:"polls"`
}

type productJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Weight      string `json:"weight"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}

type couponJSON struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PointsValue int    `json:"points_value"`
	MaxUses     *int   `json:"max_uses"`
}

type rewardJSON struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PointsCost    int    `json:"points_cost"`
	Category      string `json:"category"`
	StockQuantity *int   `json:"stock_quantity"`
	ImageURL      string `json:"image_url"`
}

type pollJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Options     []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	} `json:"options"`
}

type adminAccount struct {
	Email    string
	Password string
}

func main() {
	var (
		databaseURL string
		seedPath    string
		admin       adminAccount
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/seed.json", "path to the seed JSON file")
	flag.StringVar(&admin.Email, "admin-email", "", "email of the admin account to create (or DOCE_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&admin.Password, "admin-password", "", "password of the admin account (or DOCE_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if admin.Email == "" {
		admin.Email = os.Getenv("DOCE_SEED_ADMIN_EMAIL")
	}
	if admin.Password == "" {
		admin.Password = os.Getenv("DOCE_SEED_ADMIN_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, seedPath, admin); err != nil {
		lg.Fatal("seed failed", zap.Error(err))
	}
	lg.Info("seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, seedPath string, admin adminAccount) error {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	lg.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	loyaltySvc, err := loyalty.NewService(
		postgres.NewBackend(pool),
		postgres.NewProfileRepository(pool),
		postgres.NewCouponRepository(pool),
		postgres.NewRewardRepository(pool),
		noop.NewMeterProvider().Meter("seed"),
	)
	if err != nil {
		return errors.Wrap(err, "create loyalty service")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, lg, loyaltySvc, seed.Coupons); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedRewards(ctx, lg, loyaltySvc, seed.Rewards); err != nil {
		return errors.Wrap(err, "seed rewards")
	}
	if err := seedPolls(ctx, lg, poll.NewService(postgres.NewPollRepository(pool)), seed.Polls); err != nil {
		return errors.Wrap(err, "seed polls")
	}
	if admin.Email != "" {
		if err := seedAdmin(ctx, lg, postgres.NewAuthRepository(pool), admin); err != nil {
			return errors.Wrap(err, "seed admin")
		}
	}
	return nil
}

// seedProducts fills an empty catalog. A catalog that already has products
// is left untouched so product ids stay stable.
func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, products []productJSON) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		lg.Info("catalog already seeded", zap.Int("products", len(existing)))
		return nil
	}

	for _, p := range products {
		item := &product.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Weight:      p.Weight,
			Category:    p.Category,
			Image:       p.Image,
		}
		if err := repo.Insert(ctx, item); err != nil {
			return err
		}
		lg.Info("inserted product", zap.Int64("id", item.ID), zap.String("name", item.Name))
	}
	return nil
}

func seedCoupons(ctx context.Context, lg *zap.Logger, svc *loyalty.Service, coupons []couponJSON) error {
	for _, c := range coupons {
		created, err := svc.CreateCoupon(ctx, loyalty.CouponInput{
			Code:        c.Code,
			Name:        c.Name,
			Description: c.Description,
			PointsValue: c.PointsValue,
			MaxUses:     c.MaxUses,
		})
		switch {
		case errors.Is(err, loyalty.ErrCouponExists):
			lg.Info("coupon already exists", zap.String("code", c.Code))
		case err != nil:
			return errors.Wrapf(err, "create coupon %s", c.Code)
		default:
			lg.Info("created coupon", zap.String("code", created.Code), zap.Int("points", created.PointsValue))
		}
	}
	return nil
}

func seedRewards(ctx context.Context, lg *zap.Logger, svc *loyalty.Service, rewards []rewardJSON) error {
	existing, err := svc.ListRewards(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		names[r.Name] = struct{}{}
	}

	for _, r := range rewards {
		if _, ok := names[r.Name]; ok {
			continue
		}
		created, err := svc.CreateReward(ctx, loyalty.RewardInput{
			Name:          r.Name,
			Description:   r.Description,
			PointsCost:    r.PointsCost,
			Category:      r.Category,
			StockQuantity: r.StockQuantity,
			ImageURL:      r.ImageURL,
		})
		if err != nil {
			return errors.Wrapf(err, "create reward %q", r.Name)
		}
		lg.Info("created reward", zap.String("name", created.Name), zap.Int("cost", created.PointsCost))
	}
	return nil
}

func seedPolls(ctx context.Context, lg *zap.Logger, svc *poll.Service, polls []pollJSON) error {
	existing, err := svc.ListAll(ctx)
	if err != nil {
		return err
	}
	titles := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		titles[p.Title] = struct{}{}
	}

	for _, p := range polls {
		if _, ok := titles[p.Title]; ok {
			continue
		}
		in := poll.CreateInput{Title: p.Title, Description: p.Description}
		for _, o := range p.Options {
			in.Options = append(in.Options, poll.OptionInput{
				Title:       o.Title,
				Description: o.Description,
				ImageURL:    o.ImageURL,
			})
		}
		created, err := svc.Create(ctx, in)
		if err != nil {
			return errors.Wrapf(err, "create poll %q", p.Title)
		}
		lg.Info("created poll", zap.Stringer("id", created.ID), zap.String("title", created.Title))
	}
	return nil
}

// seedAdmin creates the admin account when missing and grants it the admin
// role.
func seedAdmin(ctx context.Context, lg *zap.Logger, repo *postgres.AuthRepository, admin adminAccount) error {
	// Only SignUp is used, so the signing secret is never observable.
	svc, err := auth.NewService(repo, []byte(uuid.NewString()), time.Hour)
	if err != nil {
		return err
	}

	var userID uuid.UUID
	u, err := svc.SignUp(ctx, auth.SignUpRequest{
		Email:           admin.Email,
		Password:        admin.Password,
		ConfirmPassword: admin.Password,
		DisplayName:     "Admin",
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		existing, err := repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(admin.Email)))
		if err != nil {
			return err
		}
		userID = existing.ID
	case err != nil:
		return err
	default:
		userID = u.ID
	}

	if err := repo.GrantRole(ctx, userID, auth.RoleAdmin); err != nil {
		return err
	}
	lg.Info("admin role granted", zap.String("email", admin.Email), zap.Stringer("user_id", userID))
	return nil
}
