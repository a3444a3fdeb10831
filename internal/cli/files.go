package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/btgraph/pkg/document"
	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/pipeline"
	"github.com/matzehuels/btgraph/pkg/storage"
)

// openFile reads and opens a document file.
func openFile(ctx context.Context, r *pipeline.Runner, path string) (*pipeline.Result, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "file not found: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return r.Open(ctx, data)
}

// openTreeFile opens a document file that must hold a behavior tree.
func openTreeFile(ctx context.Context, r *pipeline.Runner, path string) (*pipeline.Result, error) {
	res, err := openFile(ctx, r, path)
	if err != nil {
		return nil, err
	}
	if res.Graph == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s is a %s document, not a behavior tree", path, res.Document.Kind)
	}
	return res, nil
}

// writeDocument writes doc to path. When original is non-nil it is kept as
// the pre-migration backup next to path first.
func writeDocument(path string, doc *document.Document, original []byte) error {
	out, err := document.Marshal(doc)
	if err != nil {
		return err
	}
	if original != nil {
		if err := storage.WriteFileAtomic(storage.BackupPath(path), original); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	}
	return storage.WriteFileAtomic(path, out)
}

// forEachFile runs fn for every path concurrently and returns the per-path
// errors in input order. One failing file does not stop the others.
func forEachFile(ctx context.Context, paths []string, fn func(ctx context.Context, i int, path string) error) []error {
	errs := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(gctx, i, path)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
