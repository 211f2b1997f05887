package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tuss-cogs/internal/config"
	"tuss-cogs/internal/game"
	"tuss-cogs/internal/logging"
	"tuss-cogs/internal/models"
	"tuss-cogs/internal/network"
	"tuss-cogs/internal/persistence"
)

type staticLevels struct {
	level models.LevelData
}

func (s staticLevels) Level(n int) (models.LevelData, error) {
	lvl := s.level
	lvl.Number = n
	return lvl, nil
}

type testResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"*"}},
		Auth:   config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Game: config.GameConfig{
			PhaseInterval:    600 * time.Millisecond,
			TickInterval:     100 * time.Millisecond,
			BaseHP:           12,
			StartCoins:       22,
			FirstWaveCoinCap: -1,
		},
	}
}

func newTestServer(t *testing.T, level models.LevelData) (*Server, *persistence.Store, *game.ManualClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := persistence.NewStore(t.TempDir())
	clock := game.NewManualClock(time.Unix(0, 0))
	s := NewServer(Deps{
		Config: testConfig(),
		Store:  store,
		Levels: staticLevels{level: level},
		Logger: logging.Discard(),
		Clock:  clock,
	})
	t.Cleanup(s.Sessions().CloseAll)
	return s, store, clock
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) (int, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res testResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, res
}

func registerAndLogin(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	creds := network.LoginRequest{Username: username, Password: "hunter22"}
	if _, res := doJSON(t, h, http.MethodPost, "/preauth/register", "", creds); res.Code != CodeSuccess {
		t.Fatalf("register: expected success, got %d %s", res.Code, res.Msg)
	}
	_, res := doJSON(t, h, http.MethodPost, "/preauth/login", "", creds)
	if res.Code != CodeSuccess {
		t.Fatalf("login: expected success, got %d %s", res.Code, res.Msg)
	}
	var login network.LoginResponse
	if err := json.Unmarshal(res.Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.Player == nil || login.Player.Username != username {
		t.Fatalf("unexpected login response %+v", login)
	}
	return login.Token
}

func TestRegisterLoginProfile(t *testing.T) {
	s, _, _ := newTestServer(t, models.LevelData{})
	h := s.Handler()
	token := registerAndLogin(t, h, "player")

	status, res := doJSON(t, h, http.MethodGet, "/auth/profile", token, nil)
	if status != http.StatusOK || res.Code != CodeSuccess {
		t.Fatalf("expected profile, got %d/%d %s", status, res.Code, res.Msg)
	}
	if strings.Contains(string(res.Data), "hashed_password") {
		t.Fatalf("profile leaks the password hash: %s", res.Data)
	}
	var profile network.PlayerProfile
	if err := json.Unmarshal(res.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Progress.CurrentLevel != 1 || profile.CharacterPrices[models.SpriteJanka] != 24 || profile.DepositPrices["beehive"] != 10 {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s, _, _ := newTestServer(t, models.LevelData{})
	h := s.Handler()
	registerAndLogin(t, h, "player")

	tests := []struct {
		name string
		path string
		body interface{}
		code int
	}{
		{"duplicate", "/preauth/register", network.LoginRequest{Username: "player", Password: "hunter22"}, CodeConflict},
		{"bad username", "/preauth/register", network.LoginRequest{Username: "a b", Password: "hunter22"}, CodeBadParams},
		{"missing password", "/preauth/register", map[string]string{"username": "other"}, CodeBadParams},
		{"wrong password", "/preauth/login", network.LoginRequest{Username: "player", Password: "nope-nope"}, CodeUnauthorized},
		{"unknown user", "/preauth/login", network.LoginRequest{Username: "ghost", Password: "hunter22"}, CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := doJSON(t, h, http.MethodPost, tt.path, "", tt.body)
			if status != http.StatusOK || res.Code != tt.code {
				t.Fatalf("expected 200/%d, got %d/%d %s", tt.code, status, res.Code, res.Msg)
			}
		})
	}
}

func TestAuthRoutesRequireToken(t *testing.T) {
	s, _, _ := newTestServer(t, models.LevelData{})
	h := s.Handler()

	if status, res := doJSON(t, h, http.MethodGet, "/auth/profile", "", nil); status != http.StatusUnauthorized || res.Msg != "missing_bearer" {
		t.Fatalf("expected 401 missing_bearer, got %d %s", status, res.Msg)
	}
	if status, res := doJSON(t, h, http.MethodGet, "/auth/profile", "garbage", nil); status != http.StatusUnauthorized || res.Msg != "invalid_token" {
		t.Fatalf("expected 401 invalid_token, got %d %s", status, res.Msg)
	}

	other := NewAuthManager(nil, "another-secret", time.Hour)
	forged, _, err := other.IssueToken(&models.PlayerAccount{Username: "player"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if status, _ := doJSON(t, h, http.MethodGet, "/auth/profile", forged, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected a token signed with another secret to be refused, got %d", status)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	am := NewAuthManager(nil, "test-secret", time.Minute)
	now := time.Unix(1_700_000_000, 0)
	am.now = func() time.Time { return now }

	token, exp, err := am.IssueToken(&models.PlayerAccount{ID: "id", Username: "player"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected expiry %v, got %v", now.Add(time.Minute), exp)
	}
	if username, err := am.ParseToken(token); err != nil || username != "player" {
		t.Fatalf("expected player, got %q %v", username, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := am.ParseToken(token); err == nil {
		t.Fatalf("expected an expired token to be refused")
	}
}

func TestProgressionUpgrades(t *testing.T) {
	s, store, _ := newTestServer(t, models.LevelData{})
	h := s.Handler()
	token := registerAndLogin(t, h, "player")

	if _, res := doJSON(t, h, http.MethodPost, "/auth/characters/janka/upgrade", token, nil); res.Code != CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %d %s", res.Code, res.Msg)
	}
	if _, res := doJSON(t, h, http.MethodPost, "/auth/deposits/unicorn/upgrade", token, nil); res.Code != CodeNotFound {
		t.Fatalf("expected unknown upgrade, got %d %s", res.Code, res.Msg)
	}

	if _, err := store.Update("player", func(acc *models.PlayerAccount) error {
		acc.Progress.Coins = 30
		acc.Progress.Deposits = 15
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, res := doJSON(t, h, http.MethodPost, "/auth/characters/janka/upgrade", token, nil)
	if res.Code != CodeSuccess {
		t.Fatalf("expected success, got %d %s", res.Code, res.Msg)
	}
	var bought struct {
		Character models.Character      `json:"character"`
		Player    network.PlayerProfile `json:"player"`
	}
	if err := json.Unmarshal(res.Data, &bought); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bought.Character.Name != models.SpriteJanka || bought.Player.Progress.Coins != 6 {
		t.Fatalf("unexpected purchase %+v", bought)
	}

	if _, res := doJSON(t, h, http.MethodPost, "/auth/deposits/nuts/upgrade", token, nil); res.Code != CodeRejected {
		t.Fatalf("expected a locked tier, got %d %s", res.Code, res.Msg)
	}
	if _, res := doJSON(t, h, http.MethodPost, "/auth/deposits/beehive/upgrade", token, nil); res.Code != CodeSuccess {
		t.Fatalf("expected success, got %d %s", res.Code, res.Msg)
	}
}

func TestGameSocketRequiresOwner(t *testing.T) {
	s, _, _ := newTestServer(t, models.LevelData{})
	h := s.Handler()
	owner := registerAndLogin(t, h, "owner")
	intruder := registerAndLogin(t, h, "intruder")

	_, res := doJSON(t, h, http.MethodPost, "/auth/game/session", owner, nil)
	var created network.SessionCreated
	if err := json.Unmarshal(res.Data, &created); err != nil || created.SessionID == "" {
		t.Fatalf("expected a session, got %s (%v)", res.Data, err)
	}

	if _, res := doJSON(t, h, http.MethodGet, "/auth/game/ws?session_id="+created.SessionID, intruder, nil); res.Code != CodeForbidden {
		t.Fatalf("expected forbidden, got %d %s", res.Code, res.Msg)
	}
	if _, res := doJSON(t, h, http.MethodGet, "/auth/game/ws?session_id=nope", owner, nil); res.Code != CodeNotFound {
		t.Fatalf("expected not found, got %d %s", res.Code, res.Msg)
	}
}

func TestCreateSessionReplacesPrevious(t *testing.T) {
	s, _, _ := newTestServer(t, models.LevelData{})
	h := s.Handler()
	token := registerAndLogin(t, h, "player")

	doJSON(t, h, http.MethodPost, "/auth/game/session", token, nil)
	doJSON(t, h, http.MethodPost, "/auth/game/session", token, nil)
	if n := s.Sessions().Len(); n != 1 {
		t.Fatalf("expected one session per player, got %d", n)
	}
}

func dialSession(t *testing.T, ts *httptest.Server, token, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/auth/game/ws?session_id=" + sessionID + "&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(network.ServerMessage) bool) network.ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg network.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg, err := network.NewClientMessage(msgType, payload)
	if err != nil {
		t.Fatalf("build %s: %v", msgType, err)
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestGameSocketPlaysLevel(t *testing.T) {
	level := models.LevelData{Rewards: models.Rewards{Coins: 7, Gems: 1, Deposits: 2}}
	s, store, _ := newTestServer(t, level)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	token := registerAndLogin(t, s.Handler(), "player")

	_, res := doJSON(t, s.Handler(), http.MethodPost, "/auth/game/session", token, nil)
	var created network.SessionCreated
	if err := json.Unmarshal(res.Data, &created); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	conn := dialSession(t, ts, token, created.SessionID)

	first := readUntil(t, conn, func(network.ServerMessage) bool { return true })
	if first.Type != network.MsgTypeState || first.SessionID != created.SessionID {
		t.Fatalf("expected an initial state, got %+v", first)
	}
	var snap game.Snapshot
	if err := first.DecodePayload(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.State != game.StateIdle || snap.Coins != 22 || len(snap.Cells) != 24 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	send(t, conn, network.MsgTypePlacePiece, network.PlacePieceCommand{Cell: 99, Code: models.PieceCog})
	rejected := readUntil(t, conn, func(m network.ServerMessage) bool { return m.Type == network.MsgTypeCommandRejected })
	var reason network.CommandRejected
	if err := rejected.DecodePayload(&reason); err != nil {
		t.Fatalf("decode rejection: %v", err)
	}
	if reason.Command != network.MsgTypePlacePiece || reason.Reason != game.ErrCellOutOfRange.Error() {
		t.Fatalf("unexpected rejection %+v", reason)
	}

	send(t, conn, network.MsgTypeStart, nil)
	readUntil(t, conn, func(m network.ServerMessage) bool {
		if m.Type != network.MsgTypeEvent {
			return false
		}
		var ev struct {
			Type game.EventType `json:"type"`
		}
		return m.DecodePayload(&ev) == nil && ev.Type == game.EventLevelComplete
	})

	acc, err := store.Load("player")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if acc.Progress.Coins != 29 || acc.Progress.Gems != 1 || acc.Progress.Deposits != 2 || acc.Progress.CurrentLevel != 2 {
		t.Fatalf("expected the payout applied once, got %+v", acc.Progress)
	}

	session, ok := s.Sessions().Get(created.SessionID)
	if !ok {
		t.Fatalf("expected the session to be running")
	}
	send(t, conn, network.MsgTypeQuit, nil)
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close after quit")
	}
	if n := s.Sessions().Len(); n != 0 {
		t.Fatalf("expected no sessions, got %d", n)
	}
}

func TestOriginChecks(t *testing.T) {
	s := &Server{cfg: config.Config{Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}}}}
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/auth/game/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := s.checkOrigin(req); got != tt.want {
			t.Fatalf("origin %q: expected %v, got %v", tt.origin, tt.want, got)
		}
	}

	if cfg := corsConfig([]string{"*"}); !cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 0 {
		t.Fatalf("expected a wildcard to allow every origin, got %+v", cfg)
	}
	if cfg := corsConfig([]string{"http://localhost:3000"}); cfg.AllowAllOrigins || cfg.AllowOrigins[0] != "http://localhost:3000" {
		t.Fatalf("expected an explicit allow-list, got %+v", cfg)
	}
}
