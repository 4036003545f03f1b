//go:build integration

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package postgres_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/auth/postgres"
)

var _ = Describe("auth repositories", func() {
	var (
		users    *postgres.UserRepository
		accounts *postgres.AccountRepository
		sessions *postgres.SessionRepository
		resets   *postgres.ResetTokenRepository
		now      time.Time
	)

	BeforeEach(func() {
		truncateAll()
		users = postgres.NewUserRepository(testPool)
		accounts = postgres.NewAccountRepository(testPool)
		sessions = postgres.NewSessionRepository(testPool)
		resets = postgres.NewResetTokenRepository(testPool)
		now = time.Now().UTC().Truncate(time.Microsecond)
	})

	newUser := func(email string) *auth.User {
		hash := "$argon2id$integration"
		u, err := auth.NewUser(email, &hash, false, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, u)).To(Succeed())
		return u
	}

	Describe("users", func() {
		It("round-trips a user and rejects a duplicate email", func() {
			u := newUser("a@example.com")

			got, err := users.GetByEmail(suiteCtx, "a@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(u.ID))
			Expect(got.CreatedAt).To(BeTemporally("==", now))

			dup, err := auth.NewUser("a@example.com", nil, true, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(suiteCtx, dup)).To(MatchError(auth.ErrDuplicate))
		})

		It("rejects an unknown role at the database", func() {
			u := newUser("role@example.com")
			Expect(users.UpdateRole(suiteCtx, u.ID, auth.Role("ROOT"))).NotTo(Succeed())
		})
	})

	Describe("CreateWithAccount", func() {
		It("leaves no user behind when the account is taken", func() {
			first, err := auth.NewUser("first@example.com", nil, true, now)
			Expect(err).NotTo(HaveOccurred())
			acct, err := auth.NewAccount(first.ID, "google", "sub", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.CreateWithAccount(suiteCtx, first, acct)).To(Succeed())

			second, err := auth.NewUser("second@example.com", nil, true, now)
			Expect(err).NotTo(HaveOccurred())
			clash, err := auth.NewAccount(second.ID, "google", "sub", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.CreateWithAccount(suiteCtx, second, clash)).To(MatchError(auth.ErrDuplicate))

			_, err = users.GetByEmail(suiteCtx, "second@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("sessions", func() {
		It("joins the owner and cascades on user delete", func() {
			u := newUser("s@example.com")
			sess, err := auth.NewSession(u.ID, "digest", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(suiteCtx, sess)).To(Succeed())

			gotSession, owner, err := sessions.GetByTokenHash(suiteCtx, "digest")
			Expect(err).NotTo(HaveOccurred())
			Expect(gotSession.ID).To(Equal(sess.ID))
			Expect(owner.Email).To(Equal("s@example.com"))

			_, err = testPool.Exec(suiteCtx, `DELETE FROM users WHERE id = $1`, u.ID.String())
			Expect(err).NotTo(HaveOccurred())
			_, _, err = sessions.GetByTokenHash(suiteCtx, "digest")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("reaps only expired rows", func() {
			u := newUser("reap@example.com")
			old, err := auth.NewSession(u.ID, "old", now.Add(-auth.SessionTTL))
			Expect(err).NotTo(HaveOccurred())
			fresh, err := auth.NewSession(u.ID, "fresh", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(suiteCtx, old)).To(Succeed())
			Expect(sessions.Create(suiteCtx, fresh)).To(Succeed())

			n, err := sessions.DeleteExpired(suiteCtx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})
	})

	Describe("reset tokens", func() {
		It("keeps one live token per email", func() {
			newUser("r@example.com")
			first, err := auth.NewPasswordResetToken("r@example.com", "h1", now)
			Expect(err).NotTo(HaveOccurred())
			second, err := auth.NewPasswordResetToken("r@example.com", "h2", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(resets.Replace(suiteCtx, first)).To(Succeed())
			Expect(resets.Replace(suiteCtx, second)).To(Succeed())

			_, err = resets.Redeem(suiteCtx, "h1", "newhash", now)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("redeems once, updates the password and revokes sessions", func() {
			u := newUser("once@example.com")
			sess, err := auth.NewSession(u.ID, "live", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(suiteCtx, sess)).To(Succeed())
			tok, err := auth.NewPasswordResetToken("once@example.com", "h", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(resets.Replace(suiteCtx, tok)).To(Succeed())

			id, err := resets.Redeem(suiteCtx, "h", "newhash", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(u.ID))

			got, err := users.GetByID(suiteCtx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.PasswordHash).To(Equal("newhash"))

			_, _, err = sessions.GetByTokenHash(suiteCtx, "live")
			Expect(err).To(MatchError(auth.ErrNotFound))

			_, err = resets.Redeem(suiteCtx, "h", "again", now)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("lets exactly one concurrent redeem win", func() {
			newUser("race@example.com")
			tok, err := auth.NewPasswordResetToken("race@example.com", "h", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(resets.Replace(suiteCtx, tok)).To(Succeed())

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					if _, err := resets.Redeem(suiteCtx, "h", "newhash", now); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(wins).To(Equal(1))
		})

		It("deletes an expired token when it is presented", func() {
			newUser("late@example.com")
			tok, err := auth.NewPasswordResetToken("late@example.com", "h", now.Add(-2*auth.ResetTokenTTL))
			Expect(err).NotTo(HaveOccurred())
			Expect(resets.Replace(suiteCtx, tok)).To(Succeed())

			_, err = resets.Redeem(suiteCtx, "h", "newhash", now)
			Expect(err).To(MatchError(auth.ErrTokenExpired))
			_, err = resets.Redeem(suiteCtx, "h", "newhash", now)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("accounts", func() {
		It("lists links for a user", func() {
			u := newUser("links@example.com")
			a, err := auth.NewAccount(u.ID, "google", "g", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts.Create(suiteCtx, a)).To(Succeed())
			Expect(accounts.Create(suiteCtx, a)).To(MatchError(auth.ErrDuplicate))

			list, err := accounts.ListByUser(suiteCtx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})
	})
})
