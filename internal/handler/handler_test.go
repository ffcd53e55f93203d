package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/tkdhub/chatcore/internal/config"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"github.com/tkdhub/chatcore/internal/service"
	"github.com/tkdhub/chatcore/internal/ws"
	"github.com/tkdhub/chatcore/migrations"
	"github.com/tkdhub/chatcore/pkg/auth"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("chatcore"),
		postgres.WithUsername("chatcore"),
		postgres.WithPassword("chatcore"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("⚠️  postgres container unavailable, skipping handler tests: %v", err)
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

// testApp is the full HTTP stack over a real database and an in-process hub
type testApp struct {
	t      *testing.T
	server *httptest.Server
	hub    *ws.Hub
	jwt    *auth.JWTManager
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	t.Cleanup(func() {
		err := testDB.Exec(`TRUNCATE TABLE friend_requests, friendships, blocks, messages,
			conversation_participants, conversations, users RESTART IDENTITY CASCADE`).Error
		require.NoError(t, err)
	})

	jwtManager := auth.NewJWTManager("handler-test-secret", time.Hour)
	hub := ws.NewHub()

	userRepo := repository.NewUserRepository(testDB)
	convRepo := repository.NewConversationRepository(testDB)
	msgRepo := repository.NewMessageRepository(testDB)
	relRepo := repository.NewRelationshipRepository(testDB)

	authService := service.NewAuthService(userRepo, jwtManager, nil)
	chatService := service.NewChatService(convRepo, msgRepo, relRepo, userRepo, hub,
		config.ChatConfig{PageSize: 30, MaxPageSize: 100})
	relService := service.NewRelationshipService(relRepo, userRepo)

	router := gin.New()
	RegisterRoutes(router, Routes{
		Authn:         authService,
		Auth:          NewAuthHandler(authService),
		Chat:          NewChatHandler(chatService),
		Relationships: NewRelationshipHandler(relService),
		WS:            NewWSHandler(chatService, authService, hub, config.WSConfig{SendBuffer: 64}),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testApp{t: t, server: srv, hub: hub, jwt: jwtManager, db: testDB}
}

type testUser struct {
	ID    int64
	Token string
}

func (a *testApp) user(name string) testUser {
	a.t.Helper()
	u := model.User{Username: name, Email: name + "@chat.test", Role: model.RoleStudent}
	require.NoError(a.t, a.db.Create(&u).Error)
	token, err := a.jwt.GenerateToken(u.ID, u.Username, string(u.Role))
	require.NoError(a.t, err)
	return testUser{ID: u.ID, Token: token}
}

// do sends a JSON request and decodes the response body into out when non-nil
func (a *testApp) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testApp) direct(from, to testUser) model.ConversationResponse {
	a.t.Helper()
	var conv model.ConversationResponse
	status := a.do(http.MethodPost, "/api/v1/conversations/create", from.Token,
		model.CreateConversationRequest{Users: []int64{to.ID}}, &conv)
	require.Contains(a.t, []int{http.StatusCreated, http.StatusOK}, status)
	return conv
}

func (a *testApp) wsURL(convID int64, token string) string {
	return fmt.Sprintf("ws%s/ws/conversations/%d?token=%s",
		strings.TrimPrefix(a.server.URL, "http"), convID, token)
}

// connect dials the realtime endpoint and waits until the connection is subscribed
func (a *testApp) connect(convID int64, u testUser) *websocket.Conn {
	a.t.Helper()
	group := model.GroupName(convID)
	before := a.hub.GroupSize(group)

	conn, resp, err := websocket.DefaultDialer.Dial(a.wsURL(convID, u.Token), nil)
	require.NoError(a.t, err)
	require.Equal(a.t, http.StatusSwitchingProtocols, resp.StatusCode)
	a.t.Cleanup(func() { conn.Close() })

	require.Eventually(a.t, func() bool {
		return a.hub.GroupSize(group) == before+1
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.ChatEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev model.ChatEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// expectSilence asserts nothing arrives within a short window. The connection
// is unusable for reads afterwards.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}
