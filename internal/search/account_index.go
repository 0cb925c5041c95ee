package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"citizen-auth/internal/client"
	"citizen-auth/internal/models"
	"citizen-auth/internal/util"
)

// AccountDocument is the projection of an account stored in the search index.
// It deliberately carries no FIN, phone, or password material.
type AccountDocument struct {
	AccountID     string     `json:"account_id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// ListQuery describes an admin account listing request.
type ListQuery struct {
	Role   string
	Search string
	Page   int
	Size   int
}

// ListResult is one page of accounts plus the total hit count.
type ListResult struct {
	Accounts []AccountDocument `json:"accounts"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}

// AccountIndex maintains the Elasticsearch projection the admin listing reads.
// Index writes are best-effort: the store remains the source of truth.
type AccountIndex struct {
	es     *client.ESClient
	logger *zap.Logger
}

func NewAccountIndex(es *client.ESClient, logger *zap.Logger) *AccountIndex {
	return &AccountIndex{
		es:     es,
		logger: logger,
	}
}

// Index upserts the account's projection document.
func (a *AccountIndex) Index(ctx context.Context, account *models.Account) {
	if a == nil || a.es == nil {
		return
	}

	doc := AccountDocument{
		AccountID:     account.AccountID,
		Email:         account.Email,
		FullName:      account.FullName,
		Role:          account.Role,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
		LastLogin:     account.LastLogin,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		util.Error("Failed to marshal account document", zap.Error(err))
		return
	}

	req := esapi.IndexRequest{
		Index:      a.es.AccountsIndex(),
		DocumentID: account.AccountID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, a.es.Client)
	if err != nil {
		util.Warn("Failed to index account",
			zap.String("account_id", account.AccountID),
			zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		util.Warn("Account index request rejected",
			zap.String("account_id", account.AccountID),
			zap.String("status", res.Status()))
	}
}

// List runs a paged search over the account index.
func (a *AccountIndex) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Size < 1 || query.Size > 100 {
		query.Size = 20
	}

	body, err := json.Marshal(buildListQuery(query))
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	res, err := a.es.Client.Search(
		a.es.Client.Search.WithContext(ctx),
		a.es.Client.Search.WithIndex(a.es.AccountsIndex()),
		a.es.Client.Search.WithBody(bytes.NewReader(body)),
		a.es.Client.Search.WithFrom((query.Page-1)*query.Size),
		a.es.Client.Search.WithSize(query.Size),
		a.es.Client.Search.WithSort("created_at:desc"),
		a.es.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("account search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("account search failed: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source AccountDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &ListResult{
		Accounts: make([]AccountDocument, 0, len(parsed.Hits.Hits)),
		Total:    parsed.Hits.Total.Value,
		Page:     query.Page,
		Size:     query.Size,
	}
	for _, hit := range parsed.Hits.Hits {
		result.Accounts = append(result.Accounts, hit.Source)
	}
	return result, nil
}

func buildListQuery(query ListQuery) map[string]interface{} {
	must := []map[string]interface{}{}

	if query.Role != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"role": query.Role},
		})
	}
	if query.Search != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query.Search,
				"fields": []string{"email", "full_name"},
				"type":   "best_fields",
			},
		})
	}

	if len(must) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
}

// HealthCheck verifies the index is reachable.
func (a *AccountIndex) HealthCheck(ctx context.Context) error {
	res, err := a.es.Client.Indices.Exists(
		[]string{a.es.AccountsIndex()},
		a.es.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index check failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != 200 && res.StatusCode != 404 {
		return fmt.Errorf("index check failed: status %d", res.StatusCode)
	}
	return nil
}
