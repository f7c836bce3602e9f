package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envHeadless   = "SOLVER_HEADLESS"
	envBaseURL    = "SOLVER_BASE_URL"
	envStorage    = "SOLVER_STORAGE"
	envTotalPages = "SOLVER_TOTAL_PAGES"
	envGroupSize  = "SOLVER_GROUP_SIZE"
	envRetries    = "SOLVER_RETRIES"
)

// ErrInvalid is returned (wrapped) by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config captures everything a solver run needs besides the problem id.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Browser    BrowserConfig    `yaml:"browser"`
	Pagination PaginationConfig `yaml:"pagination"`
	Selectors  SelectorConfig   `yaml:"selectors"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
	// ProblemPath is appended to BaseURL; {id} is replaced by the problem id.
	ProblemPath string `yaml:"problem_path"`
	// DataEndpoint is a glob matched against response URL paths; {id} is replaced by the problem id.
	DataEndpoint string `yaml:"data_endpoint"`
}

// BrowserConfig configures the playwright launch and session persistence.
type BrowserConfig struct {
	Headless     bool   `yaml:"headless"`
	Channel      string `yaml:"channel"`
	StorageState string `yaml:"storage_state"`
}

type PaginationConfig struct {
	TotalPages int `yaml:"total_pages"`
	GroupSize  int `yaml:"group_size"`
	// NextGroupLabel is the accessible name of the group-advance link.
	NextGroupLabel string `yaml:"next_group_label"`
	// DetectEnd stops early when the control for the next page is missing.
	DetectEnd bool `yaml:"detect_end"`
	// Retries is how many extra attempts a navigation timeout gets. Zero keeps the run fail-fast.
	Retries    int    `yaml:"retries"`
	RetryDelay string `yaml:"retry_delay"`
}

type SelectorConfig struct {
	Items    string `yaml:"items"`
	Answer   string `yaml:"answer"`
	Submit   string `yaml:"submit"`
	Result   string `yaml:"result"`
	LoggedIn string `yaml:"logged_in"`
}

// TimeoutConfig holds durations as strings ("10s") so the YAML stays readable.
type TimeoutConfig struct {
	Response   string `yaml:"response"`
	Items      string `yaml:"items"`
	Submit     string `yaml:"submit"`
	Settle     string `yaml:"settle"`
	Navigation string `yaml:"navigation"`
	LoginCheck string `yaml:"login_check"`
	LoginWait  string `yaml:"login_wait"`
	Linger     string `yaml:"linger"`
}

// DefaultConfig matches the deployment the solver was written for.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:      "https://www.mashangpa.com",
			ProblemPath:  "/problem-detail/{id}/",
			DataEndpoint: "**/api/problem-detail/{id}/data/**",
		},
		Browser: BrowserConfig{
			Headless:     false,
			Channel:      "chrome",
			StorageState: "mashangpa_cookies.json",
		},
		Pagination: PaginationConfig{
			TotalPages:     20,
			GroupSize:      5,
			NextGroupLabel: "下一页 »",
			RetryDelay:     "1s",
		},
		Selectors: SelectorConfig{
			Items:    "#array-container .array-item",
			Answer:   "#user-answer",
			Submit:   "button[type='submit']",
			Result:   "#result-message",
			LoggedIn: `a[href="/profile/"]`,
		},
		Timeouts: TimeoutConfig{
			Response:   "10s",
			Items:      "10s",
			Submit:     "5s",
			Settle:     "1s",
			Navigation: "60s",
			LoginCheck: "5s",
			LoginWait:  "2m",
			Linger:     "5s",
		},
	}
}

// Load reads YAML config from disk over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays SOLVER_* environment variables. Unparseable values are reported, not ignored.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup(envBaseURL); ok {
		c.Site.BaseURL = v
	}
	if v, ok := lookup(envStorage); ok {
		c.Browser.StorageState = v
	}
	if v, ok := lookup(envHeadless); ok {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envHeadless, err)
		}
		c.Browser.Headless = b
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{envTotalPages, &c.Pagination.TotalPages},
		{envGroupSize, &c.Pagination.GroupSize},
		{envRetries, &c.Pagination.Retries},
	}
	for _, it := range ints {
		v, ok := lookup(it.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.name, err)
		}
		*it.dst = n
	}
	return nil
}

// Validate ensures the run can start deterministically.
func (c *Config) Validate() error {
	if c.Pagination.GroupSize <= 0 {
		return fmt.Errorf("%w: pagination.group_size must be positive, got %d", ErrInvalid, c.Pagination.GroupSize)
	}
	if c.Pagination.TotalPages <= 0 {
		return fmt.Errorf("%w: pagination.total_pages must be positive, got %d", ErrInvalid, c.Pagination.TotalPages)
	}
	if c.Pagination.Retries < 0 {
		return fmt.Errorf("%w: pagination.retries must not be negative", ErrInvalid)
	}
	if strings.TrimSpace(c.Pagination.NextGroupLabel) == "" {
		return fmt.Errorf("%w: pagination.next_group_label is required", ErrInvalid)
	}
	if !strings.Contains(c.Site.DataEndpoint, "{id}") {
		return fmt.Errorf("%w: site.data_endpoint must contain {id}", ErrInvalid)
	}
	required := map[string]string{
		"site.base_url":       c.Site.BaseURL,
		"selectors.items":     c.Selectors.Items,
		"selectors.answer":    c.Selectors.Answer,
		"selectors.submit":    c.Selectors.Submit,
		"selectors.result":    c.Selectors.Result,
		"selectors.logged_in": c.Selectors.LoggedIn,
	}
	for name, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalid, name)
		}
	}
	durations := map[string]string{
		"timeouts.response":    c.Timeouts.Response,
		"timeouts.items":       c.Timeouts.Items,
		"timeouts.submit":      c.Timeouts.Submit,
		"timeouts.navigation":  c.Timeouts.Navigation,
		"timeouts.login_check": c.Timeouts.LoginCheck,
		"timeouts.login_wait":  c.Timeouts.LoginWait,
	}
	for name, val := range durations {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, name)
		}
	}
	return nil
}

// ProblemURL is the page the session provider opens for a problem.
func (s SiteConfig) ProblemURL(problemID string) string {
	return strings.TrimRight(s.BaseURL, "/") + strings.ReplaceAll(s.ProblemPath, "{id}", problemID)
}

// EndpointPattern returns the data endpoint glob for a problem.
func (s SiteConfig) EndpointPattern(problemID string) string {
	return strings.ReplaceAll(s.DataEndpoint, "{id}", problemID)
}

func (p PaginationConfig) RetryDelayDuration() time.Duration {
	return parseDuration(p.RetryDelay, time.Second)
}

func (t TimeoutConfig) ResponseTimeout() time.Duration {
	return parseDuration(t.Response, 10*time.Second)
}

func (t TimeoutConfig) ItemsTimeout() time.Duration {
	return parseDuration(t.Items, 10*time.Second)
}

func (t TimeoutConfig) SubmitTimeout() time.Duration {
	return parseDuration(t.Submit, 5*time.Second)
}

// SettleDelay may be zero.
func (t TimeoutConfig) SettleDelay() time.Duration {
	return parseDuration(t.Settle, time.Second)
}

func (t TimeoutConfig) NavigationTimeout() time.Duration {
	return parseDuration(t.Navigation, 60*time.Second)
}

func (t TimeoutConfig) LoginCheckTimeout() time.Duration {
	return parseDuration(t.LoginCheck, 5*time.Second)
}

func (t TimeoutConfig) LoginWaitTimeout() time.Duration {
	return parseDuration(t.LoginWait, 2*time.Minute)
}

// LingerDelay is how long the browser stays open after a run. May be zero.
func (t TimeoutConfig) LingerDelay() time.Duration {
	return parseDuration(t.Linger, 5*time.Second)
}

func parseDuration(val string, def time.Duration) time.Duration {
	if strings.TrimSpace(val) == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func lookup(name string) (string, bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", val)
	}
}
