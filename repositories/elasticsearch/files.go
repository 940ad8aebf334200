package elasticsearch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gohan/vcf/models/indexes"

	"github.com/Jeffail/gabs"
	"go.uber.org/zap"
)

// CreateSourceFile stores the file document under its own id. The
// write is refreshed so the file is visible before its variants are.
func (r *Repository) CreateSourceFile(ctx context.Context, file *indexes.SourceFile) error {
	buf, err := r.encode(file)
	if err != nil {
		return err
	}

	res, err := r.Client.Index(
		r.FilesIndex,
		buf,
		r.Client.Index.WithContext(ctx),
		r.Client.Index.WithDocumentID(file.Id),
		r.Client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: create source file %s: %v", ErrStoreUnavailable, file.Filename, err)
	}

	if res.IsError() {
		defer res.Body.Close()
		return statusError(res.StatusCode, "create source file "+file.Filename, fmt.Sprintf("got '%s'", res.String()))
	}
	drain(res)

	r.Logger.Info("created source file", zap.String("fileId", file.Id), zap.String("filename", file.Filename))
	return nil
}

func (r *Repository) GetSourceFile(ctx context.Context, fileId string) (*indexes.SourceFile, error) {
	res, err := r.Client.Get(r.FilesIndex, fileId, r.Client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: get source file %s: %v", ErrStoreUnavailable, fileId, err)
	}

	if res.StatusCode == http.StatusNotFound {
		drain(res)
		return nil, fmt.Errorf("%w: %s", indexes.ErrSourceFileNotFound, fileId)
	}

	body, err := r.readResult(res, "get source file "+fileId)
	if err != nil {
		return nil, err
	}

	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode source file %s: %w", fileId, err)
	}
	if found, _ := parsed.Path("found").Data().(bool); !found {
		return nil, fmt.Errorf("%w: %s", indexes.ErrSourceFileNotFound, fileId)
	}

	source := parsed.Path("_source")
	file := &indexes.SourceFile{Id: fileId}
	file.Filename, _ = source.Path("filename").Data().(string)
	file.ArchiveKey, _ = source.Path("archiveKey").Data().(string)

	compressed, ok := source.Path("compressedHeaderBlock").Data().(string)
	if !ok {
		return nil, fmt.Errorf("source file %s has no header block", fileId)
	}
	file.CompressedHeaderBlock = compressed

	if created, ok := source.Path("createdTime").Data().(string); ok {
		file.CreatedTime, _ = time.Parse(time.RFC3339Nano, created)
	}

	return file, nil
}

// SetArchiveKey records where the raw file was archived.
func (r *Repository) SetArchiveKey(ctx context.Context, fileId string, key string) error {
	buf, err := r.encode(map[string]interface{}{
		"doc": map[string]interface{}{"archiveKey": key},
	})
	if err != nil {
		return err
	}

	res, err := r.Client.Update(r.FilesIndex, fileId, buf, r.Client.Update.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: set archive key of %s: %v", ErrStoreUnavailable, fileId, err)
	}
	_, err = r.readResult(res, "set archive key of "+fileId)
	return err
}

// GetSourceFileIds lists the ids of every stored source file, a page
// at a time, ordered by id.
func (r *Repository) GetSourceFileIds(ctx context.Context) ([]string, error) {
	ids := []string{}
	var after interface{}
	for {
		body := map[string]interface{}{
			"size":    r.PageSize,
			"_source": false,
			"query": map[string]interface{}{
				"match_all": map[string]interface{}{},
			},
			"sort": []map[string]string{{"id": "asc"}},
		}
		if after != nil {
			body["search_after"] = after
		}

		parsed, err := r.search(ctx, r.FilesIndex, body, "list source files")
		if err != nil {
			return nil, err
		}

		hits, _ := parsed.Path("hits.hits").Children()
		for _, hit := range hits {
			if id, ok := hit.Path("_id").Data().(string); ok {
				ids = append(ids, id)
			}
		}

		if len(hits) < r.PageSize {
			return ids, nil
		}
		after = hits[len(hits)-1].Path("sort").Data()
		if after == nil {
			return nil, fmt.Errorf("list source files: page of %d hits without sort values", len(hits))
		}
	}
}
