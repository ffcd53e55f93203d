package main

import (
	"context"
	"fmt"
	"log"

	"github.com/tkdhub/chatcore/internal/config"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"github.com/tkdhub/chatcore/internal/service"
	"github.com/tkdhub/chatcore/internal/ws"
	"github.com/tkdhub/chatcore/migrations"
	"github.com/tkdhub/chatcore/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const seedUsers = 6

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// Common password for all users
	password := "password123"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	log.Printf("🌱 Seeding %d users...", seedUsers)
	users := make([]model.User, 0, seedUsers)
	for i := 1; i <= seedUsers; i++ {
		role := model.RoleStudent
		if i == 1 {
			role = model.RoleInstructor
		}
		user := model.User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@chatcore.local", i),
			PasswordHash: string(hashedPassword),
			Role:         role,
		}
		if err := db.Where(model.User{Email: user.Email}).FirstOrCreate(&user).Error; err != nil {
			log.Fatalf("❌ Failed to create user %s: %v", user.Username, err)
		}
		users = append(users, user)
	}

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	relRepo := repository.NewRelationshipRepository(db)

	// No connections exist while seeding; events go to an empty hub
	chatService := service.NewChatService(convRepo, msgRepo, relRepo, userRepo, ws.NewHub(), cfg.Chat)
	relService := service.NewRelationshipService(relRepo, userRepo)

	seedFriendship(ctx, relRepo, relService, users[0], users[1])
	seedBlock(ctx, relService, users[4], users[5])
	seedDirectChat(ctx, chatService, users[0], users[1])
	seedGroupChat(ctx, db, chatService, users[:4])

	authService := service.NewAuthService(userRepo, auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry), nil)
	log.Println("🔑 Dev tokens:")
	for i := range users {
		u := users[i]
		token, err := authService.IssueToken(&u)
		if err != nil {
			log.Fatalf("❌ Failed to sign token for %s: %v", u.Username, err)
		}
		fmt.Printf("%-6s id=%-3d pass=%s token=%s\n", u.Username, u.ID, password, token)
	}

	log.Println("🎉 Seeding completed!")
}

func seedFriendship(ctx context.Context, relRepo *repository.RelationshipRepository, relService *service.RelationshipService, from, to model.User) {
	friends, err := relService.AreFriends(ctx, from.ID, to.ID)
	if err != nil {
		log.Fatalf("❌ Failed to check friendship: %v", err)
	}
	if friends {
		return
	}

	req := &model.FriendRequest{FromUserID: from.ID, ToUserID: to.ID, Message: "hi!"}
	if err := relRepo.CreateFriendRequest(ctx, req); err != nil {
		log.Fatalf("❌ Failed to create friend request: %v", err)
	}
	if _, err := relService.AcceptFriendRequest(ctx, req.ID, to.ID); err != nil {
		log.Fatalf("❌ Failed to accept friend request: %v", err)
	}
	log.Printf("🤝 %s and %s are friends", from.Username, to.Username)
}

func seedBlock(ctx context.Context, relService *service.RelationshipService, blocker, blocked model.User) {
	if err := relService.BlockUser(ctx, blocker.ID, blocked.ID); err != nil {
		log.Fatalf("❌ Failed to block: %v", err)
	}
	log.Printf("🚫 %s blocks %s", blocker.Username, blocked.Username)
}

func seedDirectChat(ctx context.Context, chatService *service.ChatService, a, b model.User) {
	conv, created, err := chatService.GetOrCreateOneToOne(ctx, a.ID, b.ID)
	if err != nil {
		log.Fatalf("❌ Failed to create direct chat: %v", err)
	}
	if !created {
		return
	}
	for _, text := range []string{"Hey!", "Ready for tomorrow's class?"} {
		if _, err := chatService.SendMessage(ctx, conv.ID, a.ID, text); err != nil {
			log.Fatalf("❌ Failed to send message: %v", err)
		}
	}
	if _, err := chatService.SendMessage(ctx, conv.ID, b.ID, "Almost, see you there"); err != nil {
		log.Fatalf("❌ Failed to send message: %v", err)
	}
	log.Printf("💬 Direct chat %d between %s and %s", conv.ID, a.Username, b.Username)
}

func seedGroupChat(ctx context.Context, db *gorm.DB, chatService *service.ChatService, members []model.User) {
	const name = "Study Group"

	var count int64
	db.Model(&model.Conversation{}).Where("name = ? AND is_group = ?", name, true).Count(&count)
	if count > 0 {
		log.Println("ℹ️  Group chat already exists")
		return
	}

	ids := make([]int64, 0, len(members)-1)
	for _, m := range members[1:] {
		ids = append(ids, m.ID)
	}
	conv, _, err := chatService.CreateConversation(ctx, members[0].ID, model.CreateConversationRequest{
		IsGroup: true,
		Name:    name,
		Users:   ids,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create group: %v", err)
	}
	if _, err := chatService.SendMessage(ctx, conv.ID, members[0].ID, "Welcome to the group!"); err != nil {
		log.Fatalf("❌ Failed to send message: %v", err)
	}
	log.Printf("👥 Created group chat %q with %d members", name, len(members))
}
