package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gohan/vcf/models"
	"gohan/vcf/models/indexes"
	"gohan/vcf/utils"

	"github.com/Jeffail/gabs"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"go.uber.org/zap"
)

// DefaultPageSize stays within the default max_result_window.
const DefaultPageSize = 10000

var (
	ErrStoreUnavailable = errors.New("document store unavailable")
	ErrRequestRejected  = errors.New("document store rejected the request")
)

// Repository reads and writes variants and source files.
type Repository struct {
	Client        *elasticsearch.Client
	VariantsIndex string
	FilesIndex    string

	// concurrent bulk workers per flushed batch
	BulkWorkers int

	// hits or buckets fetched per request when listing
	PageSize int

	Debug  bool
	Logger *zap.Logger
}

func NewRepository(es *elasticsearch.Client, cfg *models.Config, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}

	//see: https://www.elastic.co/blog/why-am-i-seeing-bulk-rejections-in-my-elasticsearch-cluster
	workers := cfg.BulkCapacity() / 1000
	if workers < 1 {
		workers = 1
	}

	return &Repository{
		Client:        es,
		VariantsIndex: cfg.Elasticsearch.VariantsIndex,
		FilesIndex:    cfg.Elasticsearch.FilesIndex,
		BulkWorkers:   workers,
		PageSize:      DefaultPageSize,
		Debug:         cfg.Debug,
		Logger:        logger,
	}
}

// EnsureIndices creates the variants and files indices, with their
// mappings, when they don't exist yet.
func (r *Repository) EnsureIndices(ctx context.Context) error {
	for index, mapping := range map[string]map[string]interface{}{
		r.VariantsIndex: indexes.VARIANT_INDEX_MAPPING,
		r.FilesIndex:    indexes.FILE_INDEX_MAPPING,
	} {
		res, err := r.Client.Indices.Exists([]string{index}, r.Client.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("%w: check index %s: %v", ErrStoreUnavailable, index, err)
		}
		res.Body.Close()

		if res.StatusCode == http.StatusOK {
			continue
		}
		if res.StatusCode != http.StatusNotFound {
			return fmt.Errorf("%w: check index %s: got '%s'", ErrStoreUnavailable, index, res.Status())
		}

		body, err := r.encode(map[string]interface{}{"mappings": mapping})
		if err != nil {
			return err
		}

		createRes, err := r.Client.Indices.Create(index,
			r.Client.Indices.Create.WithContext(ctx),
			r.Client.Indices.Create.WithBody(body))
		if err != nil {
			return fmt.Errorf("%w: create index %s: %v", ErrStoreUnavailable, index, err)
		}
		// a concurrent creation is fine
		if _, err := r.readResult(createRes, "create index "+index); err != nil &&
			!strings.Contains(err.Error(), "resource_already_exists_exception") {
			return err
		}
		r.Logger.Info("created index", zap.String("index", index))
	}
	return nil
}

func (r *Repository) encode(body interface{}) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	if r.Debug {
		// view the outbound elasticsearch query
		r.Logger.Debug("elasticsearch request", zap.String("body", buf.String()))
	}
	return &buf, nil
}

// readResult closes the response and returns its json body, failing
// on anything but a 200.
func (r *Repository) readResult(res *esapi.Response, action string) ([]byte, error) {
	defer res.Body.Close()

	resultString := res.String()
	if r.Debug {
		r.Logger.Debug("elasticsearch response", zap.String("action", action), zap.String("body", resultString))
	}

	// response comes back with a preceding '[200 OK] ' which needs trimming
	bracketString, jsonBodyString := utils.GetLeadingStringInBetweenSquareBrackets(resultString)
	if res.StatusCode != http.StatusOK {
		return nil, statusError(res.StatusCode, action, fmt.Sprintf("got '%s' %s", bracketString, jsonBodyString))
	}
	return []byte(jsonBodyString), nil
}

// statusError sorts a failed response: requests the store refuses to
// run are rejected, anything else means the store is unavailable.
func statusError(status int, action string, detail string) error {
	cause := ErrStoreUnavailable
	switch {
	case status == http.StatusNotFound,
		status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests:
	case status >= 400 && status < 500:
		cause = ErrRequestRejected
	}
	return fmt.Errorf("%w: failed to %s: %s", cause, action, detail)
}

// search runs body against index and parses the response.
func (r *Repository) search(ctx context.Context, index string, body interface{}, action string) (*gabs.Container, error) {
	buf, err := r.encode(body)
	if err != nil {
		return nil, err
	}

	res, err := r.Client.Search(
		r.Client.Search.WithContext(ctx),
		r.Client.Search.WithIndex(index),
		r.Client.Search.WithBody(buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, action, err)
	}

	resBody, err := r.readResult(res, action)
	if err != nil {
		return nil, err
	}

	parsed, err := gabs.ParseJSON(resBody)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	return parsed, nil
}

func drain(res *esapi.Response) {
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
