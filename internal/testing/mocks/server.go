// Package mocks provides in-memory stand-ins for the FTP session pool.
package mocks

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dl-alexandre/ftpfetch/internal/sync/scanner"
)

// FTPServer is an in-memory remote tree that implements scanner.Lister and
// executor.Fetcher. It is safe for concurrent use.
type FTPServer struct {
	mu      sync.Mutex
	dirs    map[string]map[string]scanner.Item
	files   map[string][]byte
	fail    map[string]error
	fetched []string
	lists   int
	closed  bool
}

// NewFTPServer returns a server whose only directory is root.
func NewFTPServer(root string) *FTPServer {
	s := &FTPServer{
		dirs:  map[string]map[string]scanner.Item{},
		files: map[string][]byte{},
		fail:  map[string]error{},
	}
	s.dirs[clean(root)] = map[string]scanner.Item{}
	return s
}

// AddDir creates a directory and any missing parents.
func (s *FTPServer) AddDir(p string, modTime time.Time) *FTPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addDir(clean(p), modTime)
	return s
}

// AddFile creates a file with the given content and any missing parents.
func (s *FTPServer) AddFile(p, content string, modTime time.Time) *FTPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = clean(p)
	parent := path.Dir(p)
	s.addDir(parent, modTime)
	s.dirs[parent][path.Base(p)] = scanner.Item{
		Name:    path.Base(p),
		Kind:    scanner.ItemFile,
		Size:    int64(len(content)),
		ModTime: modTime,
	}
	s.files[p] = []byte(content)
	return s
}

// Fail makes every List or Fetch of p return err.
func (s *FTPServer) Fail(p string, err error) *FTPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[clean(p)] = err
	return s
}

func (s *FTPServer) addDir(p string, modTime time.Time) {
	if _, ok := s.dirs[p]; ok {
		return
	}
	s.dirs[p] = map[string]scanner.Item{}
	if p == "/" {
		return
	}
	parent := path.Dir(p)
	s.addDir(parent, modTime)
	s.dirs[parent][path.Base(p)] = scanner.Item{Name: path.Base(p), Kind: scanner.ItemDir, ModTime: modTime}
}

func (s *FTPServer) List(ctx context.Context, remotePath string) ([]scanner.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	p := clean(remotePath)
	if err, ok := s.fail[p]; ok {
		return nil, err
	}
	children, ok := s.dirs[p]
	if !ok {
		return nil, fmt.Errorf("550 %s: no such directory", p)
	}
	items := make([]scanner.Item, 0, len(children))
	for _, item := range children {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *FTPServer) Fetch(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	p := clean(remotePath)
	s.fetched = append(s.fetched, p)
	err, failed := s.fail[p]
	data, ok := s.files[p]
	s.mu.Unlock()

	if failed {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("550 %s: no such file", p)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Close marks the server closed.
func (s *FTPServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Fetched returns the fetched paths, sorted.
func (s *FTPServer) Fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.fetched...)
	sort.Strings(out)
	return out
}

// Lists returns how many List calls were made.
func (s *FTPServer) Lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *FTPServer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func clean(p string) string {
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}
