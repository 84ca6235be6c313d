package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"notify-service/internal/auth"
	"notify-service/internal/config"
	"notify-service/internal/database"
	"notify-service/internal/models"
	"notify-service/internal/notifier"
	"notify-service/internal/repositories/postgres"
	"notify-service/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// seed creates a handful of local users, gives them some stored notifications and prints a
// token per user so the push endpoint can be tried with wscat or a browser.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting database seeding...")

	db, err := database.NewPostgresConnection(cfg.Database, log)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Create test users
	testUsers := []models.User{
		{Username: "alice", FullName: "Alice Liddell", IsActive: true},
		{Username: "bob", FullName: "Bob Builder", IsActive: true},
		{Username: "charlie", IsActive: true},
	}
	users := make(map[string]*models.User, len(testUsers))
	for i := range testUsers {
		user, err := ensureUser(ctx, db, &testUsers[i])
		if err != nil {
			log.Error("Failed to create user", "username", testUsers[i].Username, "error", err)
			os.Exit(1)
		}
		users[user.Username] = user
		log.Info("User ready", "username", user.Username, "id", user.ID)
	}

	// Seed sample notifications
	repo := postgres.NewNotificationRepository(db)
	alice, bob, charlie := users["alice"], users["bob"], users["charlie"]
	samples := []models.Notification{
		{UserID: alice.ID, Type: models.NotificationNewFollower, Message: notifier.FollowerText(bob.Username), RelatedID: &bob.ID, RelatedUsername: &bob.Username},
		{UserID: alice.ID, Type: models.NotificationNewLike, Message: notifier.LikeText(charlie.Username), RelatedUsername: &charlie.Username},
		{UserID: bob.ID, Type: models.NotificationNewMessage, Message: notifier.MessageText(alice.DisplayName()), RelatedUsername: &alice.Username},
	}
	for i := range samples {
		if err := repo.Create(ctx, &samples[i]); err != nil {
			log.Warn("Failed to create notification", "userID", samples[i].UserID, "error", err)
		}
	}

	// Print development tokens
	for _, u := range testUsers {
		token, err := devToken(cfg.JWT.Secret, users[u.Username])
		if err != nil {
			log.Error("Failed to sign token", "username", u.Username, "error", err)
			continue
		}
		fmt.Printf("%s\t%s\n", u.Username, token)
	}

	log.Info("Database seeding completed successfully!")
}

func ensureUser(ctx context.Context, db *gorm.DB, user *models.User) (*models.User, error) {
	existing, err := auth.NewAuthRepository(db).FindByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func devToken(secret string, user *models.User) (string, error) {
	if user == nil {
		return "", errors.New("user not seeded")
	}
	claims := auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
