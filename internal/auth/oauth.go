package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// requestTimeout bounds each outbound call to GitHub. The OAuth callback
// makes up to three round trips (token exchange, /user, repo list); without
// a ceiling a slow provider would pin the request handler indefinitely.
const requestTimeout = 10 * time.Second

// GitHubUser is the slice of GitHub's /user response we consume.
// GitHub returns far more; we unmarshal only what feeds the profile upsert
// and connection metadata.
type GitHubUser struct {
	ID          int64   `json:"id"`         // stable numeric ID, never changes
	Login       string  `json:"login"`      // GitHub username
	Email       string  `json:"email"`      // empty if hidden in GitHub settings
	Name        string  `json:"name"`       // display name, e.g. "Ada Lovelace"
	Bio         *string `json:"bio"`
	Location    *string `json:"location"`
	Blog        *string `json:"blog"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// GitHubRepo is one entry of the recently-updated repository page fetched
// for connection display metadata.
type GitHubRepo struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	HTMLURL     string  `json:"html_url"`
	Stars       int     `json:"stargazers_count"`
	Language    *string `json:"language"`
	UpdatedAt   string  `json:"updated_at"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub authorization-code
// flow.
//
// THE FLOW:
//  1. We redirect the browser to GitHub's authorization page (AuthURL).
//  2. GitHub redirects back to our callback with a short-lived code.
//  3. Exchange trades the code for an access token — server-to-server, so
//     the ClientSecret and the token never touch the browser.
//  4. FetchUser and FetchRecentRepos call the GitHub API with that token.
type GitHubProvider struct {
	config *oauth2.Config
	client *http.Client // timeout-bounded; also used as oauth2's base client
}

// NewGitHubProvider creates a provider. callbackURL must exactly match the
// "Authorization callback URL" registered on the GitHub OAuth app.
//
// Scopes: "read:user" for the public profile, "user:email" for the primary
// email (which may still come back empty if the user hides it).
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		client: &http.Client{Timeout: requestTimeout},
	}
}

// AuthURL returns the GitHub authorization URL carrying the given state.
// The state is a single-use nonce the callback handler verifies against a
// cookie to reject forged callbacks.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for an access token.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	// oauth2 picks its HTTP client out of the context; this injects our
	// timeout-bounded one for the token-endpoint POST.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	return token, nil
}

// FetchUser calls GitHub's /user endpoint with the access token.
func (p *GitHubProvider) FetchUser(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	var ghUser GitHubUser
	if err := p.getJSON(ctx, token, "https://api.github.com/user", &ghUser); err != nil {
		return nil, err
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}
	return &ghUser, nil
}

// FetchRecentRepos returns up to limit of the user's most recently updated
// repositories. Callers treat a failure here as non-fatal — repo metadata is
// decoration, not part of the linking contract.
func (p *GitHubProvider) FetchRecentRepos(ctx context.Context, token *oauth2.Token, login string, limit int) ([]GitHubRepo, error) {
	endpoint := fmt.Sprintf(
		"https://api.github.com/users/%s/repos?sort=updated&per_page=%d",
		url.PathEscape(login), limit,
	)

	var repos []GitHubRepo
	if err := p.getJSON(ctx, token, endpoint, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// getJSON performs an authenticated GET against the GitHub API and decodes
// the JSON body into out.
func (p *GitHubProvider) getJSON(ctx context.Context, token *oauth2.Token, endpoint string, out any) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	// config.Client returns an *http.Client that attaches the bearer token
	// to every request, layered on top of our timeout-bounded base client.
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("auth: building GitHub API request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("auth: calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub API %s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding GitHub API response: %w", err)
	}
	return nil
}
