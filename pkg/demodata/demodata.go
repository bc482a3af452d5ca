// Package demodata seeds a repository with a fixed synthetic user set so
// the demo is explorable right after startup. Every account signs in
// with the password "demo123"; the first account is promoted to admin.
package demodata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/internal/domain/repository"
)

// DemoPassword is the credential stored for every seeded account.
const DemoPassword = "demo123"

var names = []string{
	"Alice Wonderland", "Bob Builder", "Charlie Chaplin", "Diana Prince",
	"Ethan Hunt", "Fiona Shrek", "Gordon Freeman", "Harry Potter",
	"Iris West", "Jack Sparrow", "Katniss Everdeen", "Luke Skywalker",
	"Mary Poppins", "Neo Anderson", "Olivia Pope", "Peter Parker",
	"Quinn Fabray", "Rey Skywalker", "Steve Rogers", "Tony Stark",
}

var emails = []string{
	"alice@wonderland.com", "bob@construction.com", "charlie@comedy.com", "diana@themyscira.com",
	"ethan@impossible.com", "fiona@swamp.com", "gordon@blackmesa.com", "harry@hogwarts.com",
	"iris@centralcity.com", "jack@pirate.com", "katniss@district12.com", "luke@rebellion.com",
	"mary@magical.com", "neo@matrix.com", "olivia@gladiator.com", "peter@spider.com",
	"quinn@glee.com", "rey@resistance.com", "steve@shield.com", "tony@stark.com",
}

var avatarSeeds = []string{
	"Alice", "Bob", "Charlie", "Diana", "Ethan", "Fiona", "Gordon", "Harry",
	"Iris", "Jack", "Katniss", "Luke", "Mary", "Neo", "Olivia", "Peter",
	"Quinn", "Rey", "Steve", "Tony",
}

func randomDate(rng *rand.Rand, start, end time.Time) time.Time {
	delta := end.Sub(start)
	return start.Add(time.Duration(rng.Int63n(int64(delta))))
}

// 70% user, 20% admin, 10% guest
func randomRole(rng *rand.Rand) entity.UserRole {
	r := rng.Float64()
	switch {
	case r < 0.7:
		return entity.RoleUser
	case r < 0.9:
		return entity.RoleAdmin
	default:
		return entity.RoleGuest
	}
}

// GenerateUser builds the i-th synthetic user.
func GenerateUser(rng *rand.Rand, i int) entity.CreateUser {
	now := time.Now().UTC()
	sixMonthsAgo := now.Add(-180 * 24 * time.Hour)
	createdAt := randomDate(rng, sixMonthsAgo, now)
	lastLogin := randomDate(rng, createdAt, now)

	theme := "light"
	if rng.Float64() > 0.5 {
		theme = "dark"
	}

	return entity.CreateUser{
		ID:            fmt.Sprintf("mock_user_%d", i+1),
		Email:         emails[i],
		DisplayName:   names[i],
		PhotoURL:      "https://api.dicebear.com/7.x/avataaars/svg?seed=" + avatarSeeds[i],
		EmailVerified: rng.Float64() > 0.3,
		Metadata: &entity.UserMetadata{
			IsActive:       rng.Float64() > 0.1,
			Role:           randomRole(rng),
			LastLoginAt:    &lastLogin,
			SignInProvider: "password",
			Preferences: &entity.UserPreferences{
				Theme:    theme,
				Language: "en",
				Notifications: &entity.NotificationPreferences{
					Email: rng.Float64() > 0.3,
					Push:  rng.Float64() > 0.5,
					SMS:   rng.Float64() > 0.7,
				},
			},
		},
	}
}

// Seed populates repo with count synthetic users (at most the fixed set
// size) and their demo credentials. Seeding is skipped when the store
// already holds users.
func Seed(repo repository.UserRepository, count int, logger *logrus.Logger) error {
	existing, err := repo.FindAll()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		if logger != nil {
			logger.WithField("users", len(existing)).Info("demo data already present, skipping seed")
		}
		return nil
	}

	if count <= 0 || count > len(names) {
		count = len(names)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < count; i++ {
		data := GenerateUser(rng, i)
		if i == 0 {
			// A known admin account for the demo walkthrough.
			data.Metadata.Role = entity.RoleAdmin
			data.Metadata.IsActive = true
		}
		user, err := repo.Create(data)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", data.Email, err)
		}
		if err := repo.SetCredential(user.ID, DemoPassword); err != nil {
			return fmt.Errorf("seed credential for %s: %w", user.ID, err)
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"users":    count,
			"password": DemoPassword,
			"admin":    emails[0],
		}).Info("demo data seeded")
	}
	return nil
}
