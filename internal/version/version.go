// Package version checks GitHub for newer driverdock releases and
// compares semantic versions.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// GitHubRelease represents the relevant fields from GitHub's releases API
type GitHubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// ReleaseInfo contains version comparison results
type ReleaseInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	UpdateAvailable bool      `json:"update_available"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	ReleaseName     string    `json:"release_name,omitempty"`
	PublishedAt     time.Time `json:"published_at,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Checker handles release checking with caching.
type Checker struct {
	currentVersion string
	owner          string
	repo           string
	httpClient     *http.Client

	mu          sync.RWMutex
	cachedInfo  *ReleaseInfo
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

const (
	defaultCacheTTL    = 1 * time.Hour
	defaultHTTPTimeout = 10 * time.Second
	githubAPIURL       = "https://api.github.com/repos/%s/%s/releases/latest"
)

// NewChecker creates a release checker for the given repository.
func NewChecker(currentVersion, owner, repo string) *Checker {
	return &Checker{
		currentVersion: normalizeVersion(currentVersion),
		owner:          owner,
		repo:           repo,
		httpClient:     &http.Client{Timeout: defaultHTTPTimeout},
		cacheTTL:       defaultCacheTTL,
	}
}

// Check fetches the latest release info, using the cache when fresh. A
// fetch failure with a stale cache returns the stale data instead of an
// error.
func (c *Checker) Check() (*ReleaseInfo, error) {
	c.mu.RLock()
	if c.cachedInfo != nil && time.Now().Before(c.cacheExpiry) {
		info := *c.cachedInfo
		c.mu.RUnlock()
		return &info, nil
	}
	c.mu.RUnlock()

	info, err := c.fetchLatestRelease()
	if err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.cachedInfo != nil {
			stale := *c.cachedInfo
			stale.CheckedAt = time.Now()
			return &stale, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cachedInfo = info
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
	c.mu.Unlock()

	return info, nil
}

func (c *Checker) fetchLatestRelease() (*ReleaseInfo, error) {
	url := fmt.Sprintf(githubAPIURL, c.owner, c.repo)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", fmt.Sprintf("driverdock/%s", c.currentVersion))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// No releases yet - not an error
		return c.noUpdate(), nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release info: %w", err)
	}

	// Skip prereleases and drafts
	if release.Draft || release.Prerelease {
		return c.noUpdate(), nil
	}

	latest := normalizeVersion(release.TagName)
	return &ReleaseInfo{
		CurrentVersion:  c.currentVersion,
		LatestVersion:   latest,
		UpdateAvailable: CompareVersions(c.currentVersion, latest) < 0,
		ReleaseURL:      release.HTMLURL,
		ReleaseName:     release.Name,
		PublishedAt:     release.PublishedAt,
		CheckedAt:       time.Now(),
	}, nil
}

func (c *Checker) noUpdate() *ReleaseInfo {
	return &ReleaseInfo{
		CurrentVersion:  c.currentVersion,
		LatestVersion:   c.currentVersion,
		UpdateAvailable: false,
		CheckedAt:       time.Now(),
	}
}

// CompareVersions compares two semantic versions
// Returns: -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	parts1 := parseVersion(normalizeVersion(v1))
	parts2 := parseVersion(normalizeVersion(v2))

	for i := 0; i < 3; i++ {
		if parts1[i] < parts2[i] {
			return -1
		}
		if parts1[i] > parts2[i] {
			return 1
		}
	}

	// Compare prerelease (empty means stable, which is greater)
	pre1, pre2 := parts1[3], parts2[3]
	switch {
	case pre1 == 0 && pre2 != 0:
		return 1
	case pre1 != 0 && pre2 == 0:
		return -1
	case pre1 < pre2:
		return -1
	case pre1 > pre2:
		return 1
	}
	return 0
}

// normalizeVersion strips 'v' prefix and surrounding whitespace.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "V")
	return v
}

// parseVersion extracts major, minor, patch, and prerelease number.
// Returns [major, minor, patch, prerelease]
func parseVersion(v string) [4]int {
	var result [4]int

	// Handle prerelease suffix (-alpha.1, -beta.2, -rc.3, etc.)
	prerelease := 0
	if idx := strings.Index(v, "-"); idx != -1 {
		prePart := v[idx+1:]
		v = v[:idx]

		re := regexp.MustCompile(`(\d+)`)
		if matches := re.FindStringSubmatch(prePart); len(matches) > 1 {
			prerelease, _ = strconv.Atoi(matches[1])
		}

		// Weight by prerelease type so alpha < beta < rc
		preLower := strings.ToLower(prePart)
		switch {
		case strings.HasPrefix(preLower, "alpha"):
			prerelease += 1000
		case strings.HasPrefix(preLower, "beta"):
			prerelease += 2000
		case strings.HasPrefix(preLower, "rc"):
			prerelease += 3000
		default:
			prerelease += 500
		}
	}
	result[3] = prerelease

	parts := strings.Split(v, ".")
	for i := 0; i < len(parts) && i < 3; i++ {
		numStr := regexp.MustCompile(`^\d+`).FindString(parts[i])
		if num, err := strconv.Atoi(numStr); err == nil {
			result[i] = num
		}
	}

	return result
}
