package mcsmanager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var _ Client = (*DefaultClient)(nil)

const (
	maxBodyBytes = 4 << 20
	maxErrorText = 64 << 10
)

// DefaultClient talks to the MCSManager panel REST API.
type DefaultClient struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
}

type Params struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
}

// New creates a new panel client.
func New(p Params) *DefaultClient {
	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &DefaultClient{
		baseURL:   strings.TrimRight(p.BaseURL, "/"),
		apiKey:    p.APIKey,
		userAgent: p.UserAgent,
		http:      httpClient,
	}
}

// FromConfig creates a client from an already defaulted Config.
func FromConfig(cfg Config) *DefaultClient {
	return New(Params{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		HTTPClient: cfg.HTTPClient,
	})
}

func (c *DefaultClient) Overview(ctx context.Context) (Overview, error) {
	data, err := c.get(ctx, "/api/overview", nil)
	if err != nil {
		return Overview{}, err
	}

	out := Overview{Version: data.Get("version").String()}
	data.Get("remote").ForEach(func(_, node gjson.Result) bool {
		out.Daemons = append(out.Daemons, Daemon{
			UUID:             node.Get("uuid").String(),
			IP:               node.Get("ip").String(),
			Port:             int(node.Get("port").Int()),
			Remarks:          node.Get("remarks").String(),
			Available:        node.Get("available").Bool(),
			Version:          node.Get("version").String(),
			RunningInstances: int(node.Get("instance.running").Int()),
			TotalInstances:   int(node.Get("instance.total").Int()),
		})
		return true
	})
	return out, nil
}

func (c *DefaultClient) Instance(ctx context.Context, ref InstanceRef) (InstanceStatus, error) {
	data, err := c.get(ctx, "/api/instance", instanceQuery(ref))
	if err != nil {
		return InstanceStatus{}, err
	}

	status := InstanceStatus{
		UUID:           data.Get("instanceUuid").String(),
		Nickname:       data.Get("config.nickname").String(),
		State:          InstanceState(data.Get("status").Int()),
		CurrentPlayers: -1,
		GameVersion:    data.Get("info.version").String(),
		Started:        int(data.Get("started").Int()),
	}
	if players := data.Get("info.currentPlayers"); players.Exists() {
		status.CurrentPlayers = int(players.Int())
	}
	if maxPlayers := data.Get("info.maxPlayers"); maxPlayers.Exists() {
		status.MaxPlayers = int(maxPlayers.Int())
	}
	if end := data.Get("config.endTime").Int(); end > 0 {
		status.EndTime = time.UnixMilli(end)
	}
	if status.Nickname == "" {
		status.Nickname = ref.Name
	}
	return status, nil
}

func (c *DefaultClient) Do(ctx context.Context, ref InstanceRef, action Action) error {
	switch action {
	case ActionStart, ActionStop, ActionRestart, ActionKill:
	default:
		return fmt.Errorf("mcsmanager: unsupported action %q", action)
	}
	_, err := c.get(ctx, "/api/protected_instance/"+string(action), instanceQuery(ref))
	return err
}

func (c *DefaultClient) SendCommand(ctx context.Context, ref InstanceRef, command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("mcsmanager: empty command")
	}
	query := instanceQuery(ref)
	query.Set("command", command)
	_, err := c.get(ctx, "/api/protected_instance/command", query)
	return err
}

func instanceQuery(ref InstanceRef) url.Values {
	query := url.Values{}
	query.Set("uuid", ref.UUID)
	query.Set("daemonId", ref.DaemonID)
	return query
}

// get performs a GET and unwraps the {status, data, time} envelope.
func (c *DefaultClient) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	if c.baseURL == "" {
		return gjson.Result{}, ErrNotConfigured
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return gjson.Result{}, err
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("apikey", c.apiKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("mcsmanager: invalid JSON response from %s", path)
	}

	envelope := gjson.ParseBytes(body)
	if status := envelope.Get("status"); status.Exists() && status.Int() != http.StatusOK {
		return gjson.Result{}, &APIError{Status: int(status.Int()), Message: errorMessage(body)}
	}
	return envelope.Get("data"), nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if data := gjson.GetBytes(body, "data"); data.Type == gjson.String {
			return data.String()
		}
		if msg := gjson.GetBytes(body, "message"); msg.Exists() {
			return msg.String()
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorText {
		text = strings.ToValidUTF8(text[:maxErrorText], "")
	}
	return text
}
