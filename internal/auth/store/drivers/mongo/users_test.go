//go:build integration

package mongo_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/certtrack/certtrack/internal/auth/domain"
	"github.com/certtrack/certtrack/internal/auth/store"
	mongostore "github.com/certtrack/certtrack/internal/auth/store/drivers/mongo"
	"github.com/certtrack/certtrack/pkg/idx"
)

func newUser(email string) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Ada Lovelace",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("Users", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("CreateUser", func() {
		It("stores a user retrievable by email and id", func() {
			u := newUser("create-" + idx.New().String() + "@x.com")
			Expect(env.store.Users().CreateUser(ctx, u)).To(Succeed())

			byEmail, err := env.store.Users().GetUserByEmail(ctx, u.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(u.ID))
			Expect(byEmail.PasswordHash).To(Equal(u.PasswordHash))
			Expect(byEmail.CreatedAt).To(BeTemporally("~", u.CreatedAt, time.Millisecond))

			byID, err := env.store.Users().GetUserByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.Email).To(Equal(u.Email))
		})

		It("rejects a duplicate email and keeps the original", func() {
			email := "dup-" + idx.New().String() + "@x.com"
			first := newUser(email)
			Expect(env.store.Users().CreateUser(ctx, first)).To(Succeed())

			second := newUser(email)
			second.PasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$b3RoZXI$b3RoZXI"
			Expect(env.store.Users().CreateUser(ctx, second)).To(MatchError(store.ErrAlreadyExists))

			got, err := env.store.Users().GetUserByEmail(ctx, email)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(first.ID))
			Expect(got.PasswordHash).To(Equal(first.PasswordHash))
		})

		It("lets exactly one of many concurrent inserts win", func() {
			email := "race-" + idx.New().String() + "@x.com"

			const n = 16
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- env.store.Users().CreateUser(ctx, newUser(email))
				}()
			}
			wg.Wait()
			close(errs)

			var ok int
			for err := range errs {
				if err == nil {
					ok++
					continue
				}
				Expect(err).To(MatchError(store.ErrAlreadyExists))
			}
			Expect(ok).To(Equal(1))
		})
	})

	Describe("lookups", func() {
		It("returns ErrNotFound for unknown users", func() {
			_, err := env.store.Users().GetUserByEmail(ctx, "nobody@x.com")
			Expect(err).To(MatchError(store.ErrNotFound))

			_, err = env.store.Users().GetUserByID(ctx, idx.New().String())
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("connectivity", func() {
		It("pings the server", func() {
			Expect(env.store.Ping(ctx)).To(Succeed())
		})

		It("re-applying indexes is a no-op", func() {
			Expect(env.store.ApplyMigrations(ctx)).To(Succeed())
		})

		It("fails fast with ErrUnavailable when nothing listens", func() {
			_, err := mongostore.NewStore(ctx, mongostore.Config{
				URI:            "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200",
				Database:       "nowhere",
				ConnectTimeout: 2 * time.Second,
				MaxRetries:     1,
			})
			Expect(err).To(MatchError(store.ErrUnavailable))
		})
	})
})
