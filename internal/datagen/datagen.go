// Package datagen produces synthetic user profiles, products and
// transactions. Text comes from gofakeit; all randomness flows from a
// single seeded source so a seed reproduces a dataset exactly.
package datagen

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/basekick-labs/formatbench/pkg/models"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoUserIDs    = errors.New("no user ids to reference")
	ErrNoProductIDs = errors.New("no product ids to reference")
)

// Value ranges drawn by the generator.
const (
	MinPrice             = 10.0
	MaxPrice             = 1000.0
	MinAmount            = 10.0
	MaxAmount            = 10000.0
	MaxStock             = 500
	MaxDescriptionLength = 200
	TransactionWords     = 6
)

// Options control determinism.
type Options struct {
	Seed int64            // 0 seeds from the clock
	Now  func() time.Time // defaults to time.Now
}

// Generator is not safe for concurrent use.
type Generator struct {
	faker  *gofakeit.Faker
	now    func() time.Time
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Generator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{
		faker:  gofakeit.New(seed),
		now:    now,
		logger: logger,
	}
}

// GenerateUserProfile creates one profile created this decade
func (g *Generator) GenerateUserProfile() models.UserProfile {
	now := g.now()
	p := models.UserProfile{
		UserID:    g.uuid(),
		Username:  g.faker.Username(),
		Email:     g.faker.Email(),
		CreatedAt: g.faker.DateRange(startOfDecade(now), now),
	}
	if e := g.logger.Debug(); e.Enabled() {
		e.Fields(p.Map()).Msg("Generated user profile")
	}
	return p
}

// GenerateProduct creates one product created this year
func (g *Generator) GenerateProduct() models.Product {
	now := g.now()
	p := models.Product{
		ProductID:   g.uuid(),
		ProductName: capitalize(g.faker.Word()),
		Category:    g.faker.RandomString(models.ProductCategories),
		Price:       round2(g.faker.Float64Range(MinPrice, MaxPrice)),
		Stock:       int64(g.faker.IntRange(0, MaxStock)),
		Description: g.text(MaxDescriptionLength),
		CreatedAt:   g.faker.DateRange(startOfYear(now), now),
	}
	if e := g.logger.Debug(); e.Enabled() {
		e.Fields(p.Map()).Msg("Generated product")
	}
	return p
}

// GenerateTransaction creates one transaction referencing a random user and product
func (g *Generator) GenerateTransaction(userIDs, productIDs []string) (models.Transaction, error) {
	if len(userIDs) == 0 {
		return models.Transaction{}, ErrNoUserIDs
	}
	if len(productIDs) == 0 {
		return models.Transaction{}, ErrNoProductIDs
	}

	now := g.now()
	t := models.Transaction{
		TransactionID:   g.uuid(),
		UserID:          userIDs[g.faker.IntRange(0, len(userIDs)-1)],
		ProductID:       productIDs[g.faker.IntRange(0, len(productIDs)-1)],
		Amount:          round2(g.faker.Float64Range(MinAmount, MaxAmount)),
		TransactionType: g.faker.RandomString(models.TransactionTypes),
		Date:            g.faker.DateRange(startOfYear(now), now),
		Description:     g.faker.Sentence(TransactionWords),
	}
	if e := g.logger.Debug(); e.Enabled() {
		e.Fields(t.Map()).Msg("Generated transaction")
	}
	return t, nil
}

// Generate builds n profiles, n products and n transactions that reference them.
// Only the transactions are kept in the dataset.
func (g *Generator) Generate(n int) (models.Dataset, error) {
	if n < 0 {
		return models.Dataset{}, fmt.Errorf("record count must not be negative, got %d", n)
	}

	g.logger.Info().Msg("Generating user profiles.")
	userIDs := make([]string, n)
	for i := range userIDs {
		userIDs[i] = g.GenerateUserProfile().UserID
	}

	g.logger.Info().Msg("Generating products.")
	productIDs := make([]string, n)
	for i := range productIDs {
		productIDs[i] = g.GenerateProduct().ProductID
	}

	g.logger.Info().Msg("Generating transactions.")
	ds := models.Dataset{Transactions: make([]models.Transaction, n)}
	for i := range ds.Transactions {
		t, err := g.GenerateTransaction(userIDs, productIDs)
		if err != nil {
			return models.Dataset{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		ds.Transactions[i] = t
	}
	return ds, nil
}

func (g *Generator) uuid() string {
	id, err := uuid.NewRandomFromReader(g.faker.Rand)
	if err != nil {
		// math/rand never fails to read
		panic(err)
	}
	return id.String()
}

// text returns whole sentences totalling at most limit characters
func (g *Generator) text(limit int) string {
	var sb strings.Builder
	for {
		s := g.faker.Sentence(g.faker.IntRange(4, 12))
		need := len(s)
		if sb.Len() > 0 {
			need++
		}
		if sb.Len()+need > limit {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	if sb.Len() == 0 {
		return truncate(g.faker.Sentence(4), limit)
	}
	return sb.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func startOfYear(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}

func startOfDecade(now time.Time) time.Time {
	return time.Date(now.Year()-now.Year()%10, time.January, 1, 0, 0, 0, 0, now.Location())
}
