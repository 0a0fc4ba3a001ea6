// Package embedding 提供向量化服务客户端
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"novel-journey-api/internal/config"
)

const (
	defaultBatchSize = 32
	defaultModel     = "BAAI/bge-m3"
	defaultDimension = 768
)

// Client 自建向量化服务的 HTTP 客户端
type Client struct {
	embedURL   string
	model      string
	dimension  int
	batchSize  int
	httpClient *http.Client
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	TokensUsed int         `json:"tokens_used"`
}

// NewClient 创建 HTTP 向量化客户端
func NewClient(cfg *config.EmbeddingConfig) *Client {
	c := &Client{
		embedURL:  resolveEmbedURL(cfg.Endpoint),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultBatchSize
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.dimension <= 0 {
		c.dimension = defaultDimension
	}
	return c
}

// resolveEmbedURL 裸主机地址补上 /embed 路径；解析失败留空，首次调用时报错
func resolveEmbedURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/embed"
	}
	return u.String()
}

// Dimension 返回向量维度
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed 按批向量化文本，保持输入顺序
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.embedURL == "" {
		return nil, fmt.Errorf("embedding endpoint is not configured")
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		batch := texts[i:end]

		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(batch))
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(&embedRequest{Texts: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.embedURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding request failed: status=%d", httpResp.StatusCode)
	}

	var resp embedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	return resp.Embeddings, nil
}
