package instagram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// state is the device identity and login material persisted between runs
type state struct {
	UUID          string    `json:"uuid"`
	PhoneID       string    `json:"phone_id"`
	DeviceID      string    `json:"device_id"`
	AdvertisingID string    `json:"advertising_id"`
	Authorization string    `json:"authorization,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Username      string    `json:"username,omitempty"`
	Cookies       []*cookie `json:"cookies,omitempty"`

	twoFactorID string
}

type cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newState() state {
	return state{
		UUID:          uuid.NewString(),
		PhoneID:       uuid.NewString(),
		DeviceID:      "android-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		AdvertisingID: uuid.NewString(),
	}
}

// Settings serializes the device identifiers, authorization header and
// cookies
func (c *Client) Settings() ([]byte, error) {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()

	if u, err := url.Parse(c.baseURL); err == nil && c.httpClient.Jar != nil {
		st.Cookies = nil
		for _, ck := range c.httpClient.Jar.Cookies(u) {
			st.Cookies = append(st.Cookies, &cookie{Name: ck.Name, Value: ck.Value})
		}
	}

	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return data, nil
}

// LoadSettings restores state saved by Settings. Missing identifiers are
// generated.
func (c *Client) LoadSettings(data []byte) error {
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}

	fresh := newState()
	if st.UUID == "" {
		st.UUID = fresh.UUID
	}
	if st.PhoneID == "" {
		st.PhoneID = fresh.PhoneID
	}
	if st.DeviceID == "" {
		st.DeviceID = fresh.DeviceID
	}
	if st.AdvertisingID == "" {
		st.AdvertisingID = fresh.AdvertisingID
	}

	if u, err := url.Parse(c.baseURL); err == nil && c.httpClient.Jar != nil && len(st.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(st.Cookies))
		for _, ck := range st.Cookies {
			cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
		}
		c.httpClient.Jar.SetCookies(u, cookies)
	}

	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
	return nil
}

// UserID returns the pk of the logged-in account
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.UserID
}

// Username returns the logged-in account name
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Username
}
