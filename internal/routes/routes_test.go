package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/llm"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/routes"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/services"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	app *fiber.App
	cfg *config.Config
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := testutil.Config()
	db := testutil.NewDB(t)
	deps := routes.NewDeps(cfg, db, llm.NewClient(cfg))

	app := routes.NewApp(cfg)
	authHandler, healthHandler, webhookHandler, legalHandler, configHandler := deps.Handlers(cfg)
	routes.Setup(app, cfg, db, authHandler, healthHandler, webhookHandler, legalHandler, configHandler, deps.Plugins())
	return &server{app: app, cfg: cfg}
}

func (s *server) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := services.SignAccessToken(s.cfg, userID, userID+"@example.com", role)
	require.NoError(t, err)
	return tok
}

// do sends body as JSON and decodes the response into out when non-nil.
func (s *server) do(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newServer(t)
	uid := uuid.NewString()

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/profile/"+uid, "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/profile/"+uid, "garbage", nil, nil))
}

func TestProfileDefaultThenUpdate(t *testing.T) {
	s := newServer(t)
	uid := uuid.NewString()
	tok := s.token(t, uid, models.RoleUser)

	var p map[string]interface{}
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/profile/"+uid, tok, nil, &p))
	assert.Equal(t, uid, p["userId"])
	assert.EqualValues(t, 0, p["karma"])

	// Karma from a regular user is ignored.
	upd := map[string]interface{}{"firstName": " Мария ", "karma": 99}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/profile/"+uid, tok, upd, &p))
	assert.Equal(t, "Мария", p["firstName"])
	assert.EqualValues(t, 0, p["karma"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/profile/"+uid, tok, nil, &p))
	assert.Equal(t, "Мария", p["firstName"])
}

func TestOtherUsersDataIsForbidden(t *testing.T) {
	s := newServer(t)
	alice, bob := uuid.NewString(), uuid.NewString()
	bobTok := s.token(t, bob, models.RoleUser)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/profile/"+alice, bobTok, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/confessions?userId="+alice, bobTok, nil, nil))

	adminTok := s.token(t, uuid.NewString(), models.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/profile/"+alice, adminTok, nil, nil))
}

func TestConfessionFlow(t *testing.T) {
	s := newServer(t)
	uid := uuid.NewString()
	tok := s.token(t, uid, models.RoleUser)

	msgs := []models.Message{
		{Role: models.RoleUserMessage, Content: "Я солгал матери и теперь каюсь"},
		{Role: models.RoleAssistantMessage, Content: "Покаяние очищает душу"},
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/confessions/active", tok, map[string]interface{}{"messages": msgs}, nil))

	var active struct {
		Confession *struct {
			Messages []models.Message `json:"messages"`
		} `json:"confession"`
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/confessions/active", tok, nil, &active))
	require.NotNil(t, active.Confession)
	assert.Len(t, active.Confession.Messages, 2)

	var fin struct {
		Confession struct {
			ID          string `json:"id"`
			Completed   bool   `json:"completed"`
			KarmaChange int    `json:"karmaChange"`
		} `json:"confession"`
		NewKarma int `json:"newKarma"`
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/confessions/finalize", tok, map[string]interface{}{}, &fin))
	assert.True(t, fin.Confession.Completed)
	assert.Equal(t, fin.Confession.KarmaChange, fin.NewKarma)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/confessions/active", tok, nil, &active))
	assert.Nil(t, active.Confession)

	// Completing again conflicts.
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPut, "/api/confessions/"+fin.Confession.ID+"/complete", tok, map[string]int{"karmaChange": 3}, nil))

	var deleted map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/confessions/"+fin.Confession.ID, tok, nil, &deleted))
	assert.EqualValues(t, 0, deleted["newKarma"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/confession/"+fin.Confession.ID, tok, nil, nil))
}

func TestConfessionOwnershipByID(t *testing.T) {
	s := newServer(t)
	alice, bob := uuid.NewString(), uuid.NewString()
	aliceTok, bobTok := s.token(t, alice, models.RoleUser), s.token(t, bob, models.RoleUser)

	var conf struct {
		ID string `json:"id"`
	}
	body := map[string]interface{}{
		"messages":    []models.Message{{Role: models.RoleUserMessage, Content: "грех"}},
		"karmaChange": 4,
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/confessions", aliceTok, body, &conf))

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/confessions/"+conf.ID+"/complete", bobTok, nil, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/confessions/"+conf.ID, bobTok, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/confessions/not-a-key", bobTok, nil, nil))
}

func TestFeedbackAnonymousAndAdmin(t *testing.T) {
	s := newServer(t)

	var submitted struct {
		Success  bool `json:"success"`
		Feedback struct {
			ID       string  `json:"id"`
			UserID   *string `json:"userId"`
			UserName string  `json:"userName"`
			Status   string  `json:"status"`
		} `json:"feedback"`
	}
	body := map[string]string{"type": "feedback", "message": "Спасибо за приложение"}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/feedback", "", body, &submitted))
	assert.True(t, submitted.Success)
	assert.Nil(t, submitted.Feedback.UserID)
	assert.Equal(t, "new", submitted.Feedback.Status)

	userTok := s.token(t, uuid.NewString(), models.RoleUser)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/admin/feedback", userTok, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/admin/feedback", "", nil, nil))

	adminTok := s.token(t, uuid.NewString(), models.RoleAdmin)
	var list struct {
		Feedback []map[string]interface{} `json:"feedback"`
	}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/admin/feedback", adminTok, nil, &list))
	assert.Len(t, list.Feedback, 1)

	var updated struct {
		Feedback struct {
			Status string `json:"status"`
		} `json:"feedback"`
	}
	path := "/api/admin/feedback/" + submitted.Feedback.ID
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, path, adminTok, map[string]string{"status": "resolved"}, &updated))
	assert.Equal(t, "resolved", updated.Feedback.Status)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, path, adminTok, map[string]string{"status": "archived"}, nil))
}

func TestFeedbackSignedInUsesCaller(t *testing.T) {
	s := newServer(t)
	uid := uuid.NewString()

	var submitted struct {
		Feedback struct {
			UserID *string `json:"userId"`
		} `json:"feedback"`
	}
	body := map[string]string{"type": "complaint", "message": "Не работает озвучка", "userId": "someone-else"}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/feedback", s.token(t, uid, models.RoleUser), body, &submitted))
	require.NotNil(t, submitted.Feedback.UserID)
	assert.Equal(t, uid, *submitted.Feedback.UserID)
}

func TestAdminTokenHeader(t *testing.T) {
	s := newServer(t)
	userTok := s.token(t, uuid.NewString(), models.RoleUser)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	req.Header.Set("X-Admin-Token", s.cfg.AdminToken)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRevenueCatWebhook(t *testing.T) {
	s := newServer(t)
	uid := uuid.NewString()
	event := map[string]interface{}{
		"event": map[string]interface{}{"type": "INITIAL_PURCHASE", "app_user_id": uid, "product_id": "premium_monthly"},
	}
	send := func(auth string) int {
		b, err := json.Marshal(event)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/revenuecat", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusUnauthorized, send("Bearer wrong"))
	assert.Equal(t, http.StatusOK, send(s.cfg.RevenueCatWebhookAuth))

	var limit map[string]interface{}
	tok := s.token(t, uid, models.RoleUser)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/confessions/check-limit", tok, nil, &limit))
	assert.Equal(t, true, limit["hasSubscription"])
	assert.Equal(t, true, limit["canConfess"])
}

func TestRemoteConfig(t *testing.T) {
	s := newServer(t)
	adminTok := s.token(t, uuid.NewString(), models.RoleAdmin)
	userTok := s.token(t, uuid.NewString(), models.RoleUser)

	body := map[string]string{"value": "5", "type": "int"}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/admin/config/daily_confession_limit", userTok, body, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/admin/config/daily_confession_limit", adminTok, body, nil))

	var cfg map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/config", "", nil, &cfg))
	assert.EqualValues(t, 5, cfg["daily_confession_limit"])

	var limit map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/confessions/check-limit", userTok, nil, &limit))
	assert.EqualValues(t, 5, limit["limit"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/admin/config/daily_confession_limit", adminTok, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/admin/config/daily_confession_limit", adminTok, nil, nil))
}

func TestChatFallsBackWithoutProvider(t *testing.T) {
	s := newServer(t)
	tok := s.token(t, uuid.NewString(), models.RoleUser)

	var reply struct {
		Response string `json:"response"`
		Source   string `json:"source"`
	}
	body := map[string]interface{}{"userMessage": "Мне страшно", "language": "Русский"}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/chat/response", tok, body, &reply))
	assert.NotEmpty(t, reply.Response)
	assert.Equal(t, "fallback", reply.Source)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/chat/response", tok, map[string]string{"userMessage": " "}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/api/chat/speak", tok, map[string]string{"text": "Мир вам"}, nil))
}

func TestAuthRegisterLogin(t *testing.T) {
	s := newServer(t)

	var reg struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	creds := map[string]string{"email": "Anna@Example.com", "password": "длинный-пароль"}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/auth/register", "", creds, &reg))
	require.NotEmpty(t, reg.AccessToken)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/auth/register", "", creds, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/auth/login", "", creds, nil))

	// The issued token opens the caller's own profile.
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/profile/"+reg.User.ID, reg.AccessToken, nil, nil))
}
