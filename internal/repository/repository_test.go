package repository

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/migrations"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB stays nil when no container runtime is available; DB tests skip then.
var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chatcore"),
		postgres.WithUsername("chatcore"),
		postgres.WithPassword("chatcore"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("⚠️  postgres container unavailable, skipping DB tests: %v", err)
		os.Exit(m.Run())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}
	if err := migrations.Run(connStr); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	testDB, err = gorm.Open(gormpg.Open(connStr), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %v", err)
	}
	os.Exit(code)
}

// requireDB skips the test without a database and truncates every table after it
func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	t.Cleanup(func() {
		err := testDB.Exec(`TRUNCATE TABLE friend_requests, friendships, blocks, messages,
			conversation_participants, conversations, users RESTART IDENTITY CASCADE`).Error
		require.NoError(t, err)
	})
	return testDB
}

func seedUsers(t *testing.T, db *gorm.DB, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		u := model.User{Username: name, Email: name + "@chat.test", Role: model.RoleStudent}
		require.NoError(t, db.Create(&u).Error)
		ids = append(ids, u.ID)
	}
	return ids
}

func seedConversation(t *testing.T, db *gorm.DB, isGroup bool, userIDs ...int64) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{IsGroup: isGroup}
	if isGroup {
		conv.Name = "group"
	} else {
		key := model.PairKey(userIDs[0], userIDs[1])
		conv.PairKey = &key
	}
	require.NoError(t, NewConversationRepository(db).Create(context.Background(), conv, userIDs))
	return conv
}

// insertMessageAt writes a message with an explicit created_at, bypassing Create's clock
func insertMessageAt(t *testing.T, db *gorm.DB, convID, senderID int64, content string, at time.Time) model.Message {
	t.Helper()
	msg := model.Message{ConversationID: convID, SenderID: senderID, Content: content, CreatedAt: at}
	require.NoError(t, db.Omit("Sender").Create(&msg).Error)
	return msg
}
