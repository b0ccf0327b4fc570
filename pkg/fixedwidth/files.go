package fixedwidth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaplayout/internal/charset"
)

// FileResult is the outcome of decoding one file. Err carries a decode abort
// (fail-fast or strict structure); Result is set even then.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// DecodeFile decodes the file at path read in the given encoding.
func (d *Decoder) DecodeFile(path, encoding string, opts Options) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	r, err := charset.NewReader(f, encoding)
	if err != nil {
		return nil, err
	}
	return d.Decode(r, opts)
}

// DecodeFiles decodes every path with at most workers files in flight. The
// decoder is shared; results keep the order of paths. An input that cannot be
// opened cancels the remaining work and is returned as the error.
func (d *Decoder) DecodeFiles(ctx context.Context, paths []string, encoding string, workers int, opts Options) ([]FileResult, error) {
	if _, err := charset.Lookup(encoding); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("failed to open input %s: %w", path, err)
			}
			res, err := d.DecodeFile(path, encoding, opts)
			results[i] = FileResult{Path: path, Result: res, Err: err}
			if opts.Logger != nil && res != nil {
				opts.Logger.Debug("decoded file", "path", path, "records", len(res.Records), "issues", len(res.Issues))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
