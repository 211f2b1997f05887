package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/network"
)

// DefaultServerURL is where the server listens out of the box.
const DefaultServerURL = "http://localhost:8080"

// APIError is a non-success answer from the HTTP API.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Code, e.Msg)
}

type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client talks to the game server: HTTP for accounts and sessions, a
// websocket for play.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger

	Token  string
	Player *network.PlayerProfile

	conn    *websocket.Conn
	writeMu sync.Mutex
	view    *View
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
		view:    NewView(),
	}
}

// View is the client's copy of the game as last reported by the server.
func (c *Client) View() *View {
	return c.view
}

// PromptCredentials reads a username and password from in, one per line.
func PromptCredentials(in io.Reader, out io.Writer) (string, string, error) {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "Enter username: ")
	username, err := reader.ReadString('\n')
	if err != nil && username == "" {
		return "", "", fmt.Errorf("read username: %w", err)
	}
	fmt.Fprint(out, "Enter password: ")
	password, err := reader.ReadString('\n')
	if err != nil && password == "" {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(username), strings.TrimSpace(password), nil
}

// Register creates an account.
func (c *Client) Register(username, password string) error {
	return c.call(http.MethodPost, "/preauth/register", network.LoginRequest{Username: username, Password: password}, nil)
}

// Login fetches an access token. The token is kept for later calls.
func (c *Client) Login(username, password string) (*network.PlayerProfile, error) {
	var res network.LoginResponse
	if err := c.call(http.MethodPost, "/preauth/login", network.LoginRequest{Username: username, Password: password}, &res); err != nil {
		return nil, err
	}
	c.Token = res.Token
	c.Player = res.Player
	c.log.WithField("player", username).Info("logged in")
	return res.Player, nil
}

// Profile refreshes the player's profile.
func (c *Client) Profile() (*network.PlayerProfile, error) {
	var p network.PlayerProfile
	if err := c.call(http.MethodGet, "/auth/profile", nil, &p); err != nil {
		return nil, err
	}
	c.Player = &p
	return &p, nil
}

// CreateSession starts a game on the player's current level.
func (c *Client) CreateSession() (network.SessionCreated, error) {
	var created network.SessionCreated
	err := c.call(http.MethodPost, "/auth/game/session", nil, &created)
	return created, err
}

func (c *Client) call(method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var res apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if res.Code != 0 {
		return &APIError{Code: res.Code, Msg: res.Msg}
	}
	if out == nil || len(res.Data) == 0 {
		return nil
	}
	return json.Unmarshal(res.Data, out)
}

// Close drops the game connection.
func (c *Client) Close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.log.Debug("game connection closed")
	}
}
