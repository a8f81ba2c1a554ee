package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects as files under a root directory.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates root if needed. baseURL is the path the files are served under, e.g. "/images".
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimSuffix(key, "/")))
}

func (l *Local) Put(_ context.Context, key string, data []byte, _ string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (l *Local) CopyPrefix(ctx context.Context, src, dst string) (int, error) {
	if err := checkKey(src); err != nil {
		return 0, err
	}
	if err := checkKey(dst); err != nil {
		return 0, err
	}

	srcRoot := l.path(src)
	copied := 0
	err := filepath.WalkDir(srcRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcRoot, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		target := filepath.Join(l.path(dst), rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		copied++
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) && copied == 0 {
		return 0, nil
	}
	if err != nil {
		return copied, fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return copied, nil
}

func (l *Local) DeletePrefix(_ context.Context, prefix string) error {
	if err := checkKey(prefix); err != nil {
		return err
	}
	if err := os.RemoveAll(l.path(prefix)); err != nil {
		return fmt.Errorf("deleting %s: %w", prefix, err)
	}
	return nil
}

func (l *Local) URL(key string) string {
	return l.baseURL + "/" + key
}

// Handler serves the stored files. Mount it at baseURL + "/".
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(l.baseURL+"/", http.FileServer(http.Dir(l.root)))
}
