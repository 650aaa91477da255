// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bigquery implements warehouse.Executor on the BigQuery REST
// API. All queries run through jobs.query in standard SQL with a
// maximum-bytes-billed guard; cost enforcement itself lives upstream.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
	"github.com/ekonugroho98/cortex-ai/warehouse"
)

const defaultTimeoutMS = 30_000

// Config carries the connection settings for one project.
type Config struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
	// Endpoint overrides the API endpoint, used against emulators.
	Endpoint string
}

// Client is a warehouse.Executor backed by BigQuery.
type Client struct {
	svc       *bq.Service
	projectID string
	log       *logger.Logger
}

var _ warehouse.Executor = (*Client)(nil)

// New connects to BigQuery. Credentials fall back to application
// default credentials when the config names none.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("bigquery: project ID is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := bq.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: create service: %w", err)
	}

	return &Client{
		svc:       svc,
		projectID: cfg.ProjectID,
		log:       logger.New("bigquery"),
	}, nil
}

// Execute runs one query synchronously and shapes the response into
// column-keyed rows.
func (c *Client) Execute(ctx context.Context, req warehouse.QueryRequest) (*warehouse.QueryResult, error) {
	timeout := req.TimeoutMS
	if timeout <= 0 {
		timeout = defaultTimeoutMS
	}

	useLegacy := false
	qr := &bq.QueryRequest{
		Query:        req.SQL,
		UseLegacySql: &useLegacy,
		TimeoutMs:    timeout,
		DryRun:       req.DryRun,
		// UseLegacySql defaults to true on the wire; force the field
		// so standard SQL is always selected.
		ForceSendFields: []string{"UseLegacySql"},
	}
	if req.MaxBytesBilled > 0 {
		qr.MaximumBytesBilled = req.MaxBytesBilled
	}

	start := time.Now()
	resp, err := c.svc.Jobs.Query(c.projectID, qr).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}

	result := &warehouse.QueryResult{
		BytesProcessed: resp.TotalBytesProcessed,
		CacheHit:       resp.CacheHit,
		DurationMS:     time.Since(start).Milliseconds(),
	}
	if resp.JobReference != nil {
		result.JobID = resp.JobReference.JobId
	}
	if resp.Schema != nil {
		for _, f := range resp.Schema.Fields {
			result.Columns = append(result.Columns, f.Name)
		}
	}
	result.Rows = shapeRows(result.Columns, resp.Rows)

	c.log.InfoWithDuration("", "", "query completed", float64(time.Since(start).Milliseconds()), map[string]interface{}{
		"bytes_processed": resp.TotalBytesProcessed,
		"cache_hit":       resp.CacheHit,
		"dry_run":         req.DryRun,
	})
	return result, nil
}

// ListDatasets returns the dataset IDs visible in the project.
func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Datasets.List(c.projectID).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}
	ids := make([]string, 0, len(resp.Datasets))
	for _, d := range resp.Datasets {
		if d.DatasetReference != nil {
			ids = append(ids, d.DatasetReference.DatasetId)
		}
	}
	return ids, nil
}

// ListTables returns the table IDs in one dataset.
func (c *Client) ListTables(ctx context.Context, dataset string) ([]string, error) {
	resp, err := c.svc.Tables.List(c.projectID, dataset).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}
	ids := make([]string, 0, len(resp.Tables))
	for _, t := range resp.Tables {
		if t.TableReference != nil {
			ids = append(ids, t.TableReference.TableId)
		}
	}
	return ids, nil
}

// GetTableSchema returns the column layout of one table.
func (c *Client) GetTableSchema(ctx context.Context, dataset, table string) (*warehouse.TableSchema, error) {
	resp, err := c.svc.Tables.Get(c.projectID, dataset, table).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}
	schema := &warehouse.TableSchema{Dataset: dataset, Table: table}
	if resp.Schema != nil {
		for _, f := range resp.Schema.Fields {
			schema.Fields = append(schema.Fields, warehouse.SchemaField{
				Name: f.Name,
				Type: f.Type,
				Mode: f.Mode,
			})
		}
	}
	return schema, nil
}

// Healthy reports whether the project answers a dataset listing.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.svc.Datasets.List(c.projectID).MaxResults(1).Context(ctx).Do()
	return err == nil
}

// shapeRows converts positional BigQuery cells into column-keyed maps.
func shapeRows(columns []string, rows []*bq.TableRow) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		shaped := make(map[string]interface{}, len(columns))
		for i, cell := range row.F {
			if i >= len(columns) {
				break
			}
			shaped[columns[i]] = cell.V
		}
		out = append(out, shaped)
	}
	return out
}

// classifyError maps API failures onto the warehouse sentinels so the
// gateway can emit stable error codes.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %s", warehouse.ErrNotFound, apiErr.Message)
		case apiErr.Code == http.StatusBadRequest && isSyntaxMessage(apiErr.Message):
			return fmt.Errorf("%w: %s", warehouse.ErrSyntax, apiErr.Message)
		}
	}
	if isSyntaxMessage(err.Error()) {
		return fmt.Errorf("%w: %v", warehouse.ErrSyntax, err)
	}
	return err
}

func isSyntaxMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "syntax error") || strings.Contains(lower, "invalid query")
}
