package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/stockdiary/internal/config"
	"github.com/TobiSchelling/stockdiary/internal/metrics"
	"github.com/TobiSchelling/stockdiary/internal/observation"
)

// GitHub stores the journal as a file in a GitHub repository through the
// contents API. The revision is the file's blob sha.
type GitHub struct {
	http     *resty.Client
	repo     config.Repository
	token    string
	log      zerolog.Logger
	endpoint string
}

type contentsResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
}

type updateRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type updateResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// NewGitHub creates a store for the configured repository file. The token
// is optional for public reads and required for writes.
func NewGitHub(repo config.Repository, token string, log zerolog.Logger) (*GitHub, error) {
	if repo.Owner == "" || repo.Name == "" {
		return nil, fmt.Errorf("repository owner and name must be set")
	}
	if repo.Path == "" {
		return nil, fmt.Errorf("repository path must be set")
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(repo.APIURL, "/"))
	client.SetHeader("Accept", "application/vnd.github+json")
	client.SetHeader("X-GitHub-Api-Version", "2022-11-28")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &GitHub{
		http:     client,
		repo:     repo,
		token:    token,
		log:      log.With().Str("repo", repo.Owner+"/"+repo.Name).Str("path", repo.Path).Logger(),
		endpoint: fmt.Sprintf("/repos/%s/%s/contents/%s", repo.Owner, repo.Name, strings.TrimLeft(repo.Path, "/")),
	}, nil
}

func (g *GitHub) Read(ctx context.Context) (*Snapshot, error) {
	snap, err := g.read(ctx)
	metrics.StoreOperations.WithLabelValues("read", metrics.Result(err)).Inc()
	return snap, err
}

func (g *GitHub) read(ctx context.Context) (*Snapshot, error) {
	req := g.http.R().SetContext(ctx)
	if g.repo.Branch != "" {
		req.SetQueryParam("ref", g.repo.Branch)
	}
	resp, err := req.Get(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		g.log.Info().Msg("journal file not found; starting empty")
		return &Snapshot{Observations: []observation.Observation{}}, nil
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}

	var body contentsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("parsing contents response: %w", err)
	}

	var raw []byte
	if body.Content == "" && body.Size > 0 {
		// Files over 1 MB come back without inline content.
		raw, err = g.readRaw(ctx)
	} else {
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding journal content: %w", err)
	}

	obs, err := observation.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	g.log.Debug().Int("observations", len(obs)).Str("sha", body.SHA).Msg("journal read")
	return &Snapshot{Observations: obs, Revision: body.SHA}, nil
}

func (g *GitHub) readRaw(ctx context.Context) ([]byte, error) {
	req := g.http.R().SetContext(ctx).SetHeader("Accept", "application/vnd.github.raw+json")
	if g.repo.Branch != "" {
		req.SetQueryParam("ref", g.repo.Branch)
	}
	resp, err := req.Get(g.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError(resp)
	}
	return resp.Body(), nil
}

func (g *GitHub) Write(ctx context.Context, obs []observation.Observation, revision string) (string, error) {
	sha, err := g.write(ctx, obs, revision)
	result := metrics.Result(err)
	if err == ErrConflict {
		result = "conflict"
	}
	metrics.StoreOperations.WithLabelValues("write", result).Inc()
	return sha, err
}

func (g *GitHub) write(ctx context.Context, obs []observation.Observation, revision string) (string, error) {
	if g.token == "" {
		return "", ErrNoToken
	}

	var buf bytes.Buffer
	if err := observation.Encode(&buf, obs); err != nil {
		return "", err
	}

	message := g.repo.CommitMessage
	if message == "" {
		message = "Update stock data from website"
	}
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(updateRequest{
			Message: message,
			Content: base64.StdEncoding.EncodeToString(buf.Bytes()),
			SHA:     revision,
			Branch:  g.repo.Branch,
		}).
		Put(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("writing journal: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusConflict:
		return "", ErrConflict
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		apiErr := apiError(resp)
		if strings.Contains(strings.ToLower(apiErr.Message), "sha") {
			return "", ErrConflict
		}
		return "", apiErr
	case resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated:
		return "", apiError(resp)
	}

	var body updateResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("parsing update response: %w", err)
	}
	g.log.Info().Int("observations", len(obs)).Str("sha", body.Content.SHA).Msg("journal written")
	return body.Content.SHA, nil
}

func apiError(resp *resty.Response) *APIError {
	var body errorResponse
	_ = json.Unmarshal(resp.Body(), &body)
	return &APIError{Status: resp.StatusCode(), Message: body.Message}
}
