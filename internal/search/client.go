package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
)

// Client is the Elasticsearch-backed Engine.
type Client struct {
	es    *elasticsearch.Client
	index string
	prom  *observability.Prom
}

func NewClient(cfg config.SearchConfig, prom *observability.Prom) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Node},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	return &Client{es: es, index: cfg.Index, prom: prom}, nil
}

func (c *Client) observe(op string, fn func() error) error {
	if c.prom != nil {
		return c.prom.ObserveSearch(op, fn)
	}
	return fn()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.observe("ping", func() error {
		res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("%w: ping %s", ErrUnavailable, res.Status())
		}
		return nil
	})
}

func (c *Client) EnsureIndex(ctx context.Context) error {
	return c.observe("ensure_index", func() error {
		res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		res.Body.Close()

		switch res.StatusCode {
		case http.StatusOK:
			return nil
		case http.StatusNotFound:
			return c.createIndex(ctx)
		default:
			return fmt.Errorf("%w: index exists check %s", ErrUnavailable, res.Status())
		}
	})
}

func (c *Client) RecreateIndex(ctx context.Context) error {
	err := c.observe("delete_index", func() error {
		res, err := c.es.Indices.Delete(
			[]string{c.index},
			c.es.Indices.Delete.WithContext(ctx),
			c.es.Indices.Delete.WithIgnoreUnavailable(true),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()

		if res.IsError() && res.StatusCode != http.StatusNotFound {
			return responseError(ErrIndexFailed, "delete index", res)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.observe("create_index", func() error {
		return c.createIndex(ctx)
	})
}

func (c *Client) createIndex(ctx context.Context) error {
	body, err := json.Marshal(indexBody)
	if err != nil {
		return err
	}

	res, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body := readBody(res)
		// another process created it first
		if res.StatusCode == http.StatusBadRequest && strings.Contains(body, "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("%w: create index: %s %s", ErrIndexFailed, res.Status(), body)
	}
	return nil
}

// IndexProduct writes with refresh=wait_for so a following search observes it.
func (c *Client) IndexProduct(ctx context.Context, p product.Product) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return c.observe("index", func() error {
		res, err := c.es.Index(
			c.index,
			bytes.NewReader(body),
			c.es.Index.WithDocumentID(p.ID),
			c.es.Index.WithRefresh("wait_for"),
			c.es.Index.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return responseError(ErrIndexFailed, "index "+p.ID, res)
		}
		return nil
	})
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
	} `json:"items"`
}

func (c *Client) BulkIndex(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range products {
		meta := map[string]any{"index": map[string]any{"_index": c.index, "_id": p.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(p); err != nil {
			return err
		}
	}

	return c.observe("bulk", func() error {
		res, err := c.es.Bulk(
			&buf,
			c.es.Bulk.WithContext(ctx),
			c.es.Bulk.WithRefresh("wait_for"),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return responseError(ErrIndexFailed, "bulk", res)
		}

		var out bulkResponse
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode bulk response: %w", err)
		}
		if !out.Errors {
			return nil
		}

		failed := 0
		for _, item := range out.Items {
			for _, r := range item {
				if r.Status >= 300 {
					failed++
				}
			}
		}
		return fmt.Errorf("%w: bulk rejected %d of %d documents", ErrIndexFailed, failed, len(products))
	})
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source product.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// MaxResultWindow is Elasticsearch's default index.max_result_window.
const MaxResultWindow = 10000

// Search runs the query. Pages beyond the result window are answered with
// the total only, as an empty page.
func (c *Client) Search(ctx context.Context, params Params) (Result, error) {
	body := BuildQuery(params)
	if params.From()+params.Limit > MaxResultWindow {
		body["from"] = 0
		body["size"] = 0
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return Result{}, err
	}

	var out searchResponse
	err := c.observe("search", func() error {
		res, err := c.es.Search(
			c.es.Search.WithContext(ctx),
			c.es.Search.WithIndex(c.index),
			c.es.Search.WithBody(&buf),
			c.es.Search.WithTrackTotalHits(true),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return responseError(ErrUnavailable, "search", res)
		}
		return json.NewDecoder(res.Body).Decode(&out)
	})
	if err != nil {
		return Result{}, err
	}

	products := make([]product.Product, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		p := h.Source
		if p.ID == "" {
			p.ID = h.ID
		}
		products = append(products, p)
	}

	return Result{Total: out.Hits.Total.Value, Products: products}, nil
}

func responseError(kind error, op string, res *esapi.Response) error {
	return fmt.Errorf("%w: %s: %s %s", kind, op, res.Status(), readBody(res))
}

func readBody(res *esapi.Response) string {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	return strings.TrimSpace(string(b))
}
