// Package objectstore implements storage.Storage over a pair of backing
// services, modeling the deployment shell's durable-object-plus-SQLite-metadata
// pairing named in spec.md §1 as an external collaborator: an S3-compatible
// bucket holds blob bytes, and a SQL metadata table tracks the path→key,
// size, and modified-time rows needed for directory listing. Only the
// storage.Storage contract is implemented here; repository/edge-worker
// routing is out of scope.
package objectstore

import (
	"context"
	"database/sql"
	"errors"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/chr33s/git/storage"
)

// BlobClient is the subset of the S3 API objectstore needs. Satisfied by
// *s3.Client.
type BlobClient interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage is a storage.Storage backend keyed by an opaque object-store key
// per path, with a SQL table (see Schema) tracking the path namespace.
type Storage struct {
	ctx    context.Context
	blobs  BlobClient
	bucket string
	db     *sql.DB
	repo   string
}

// Schema is the metadata table DDL this backend uses; OpenMySQL executes it
// (CREATE TABLE IF NOT EXISTS) when it opens the connection.
const Schema = `
CREATE TABLE IF NOT EXISTS git_storage_objects (
	repo       VARCHAR(255) NOT NULL,
	path       VARCHAR(1024) NOT NULL,
	blob_key   VARCHAR(64) NOT NULL,
	size       BIGINT NOT NULL,
	modified   DATETIME NOT NULL,
	PRIMARY KEY (repo, path)
)`

// New returns an objectstore Storage backed by an S3-compatible client and a
// SQL metadata database (e.g. MySQL via github.com/go-sql-driver/mysql).
func New(ctx context.Context, blobs BlobClient, bucket string, db *sql.DB) *Storage {
	return &Storage{ctx: ctx, blobs: blobs, bucket: bucket, db: db}
}

func (s *Storage) Init(repo string) error {
	s.repo = repo
	return nil
}

func clean(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

func (s *Storage) Exists(p string) (bool, error) {
	p = clean(p)
	var n int
	row := s.db.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM git_storage_objects WHERE repo = ? AND (path = ? OR path LIKE ?)`,
		s.repo, p, p+"/%")
	if err := row.Scan(&n); err != nil {
		return false, &storage.Error{Op: "exists", Path: p, Err: err}
	}
	return n > 0, nil
}

func (s *Storage) ReadFile(p string) ([]byte, error) {
	p = clean(p)
	var key string
	row := s.db.QueryRowContext(s.ctx,
		`SELECT blob_key FROM git_storage_objects WHERE repo = ? AND path = ?`, s.repo, p)
	if err := row.Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storage.Error{Op: "read", Path: p, Err: storage.ErrNotFound}
		}
		return nil, &storage.Error{Op: "read", Path: p, Err: err}
	}

	out, err := s.blobs.GetObject(s.ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, &storage.Error{Op: "read", Path: p, Err: err}
	}
	defer out.Body.Close()
	buf := make([]byte, 0, out.ContentLength)
	tmp := make([]byte, 32*1024)
	for {
		n, rerr := out.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

func (s *Storage) WriteFile(p string, data []byte) error {
	p = clean(p)
	key := uuid.NewString()

	if _, err := s.blobs.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytesReader(data),
	}); err != nil {
		return &storage.Error{Op: "write", Path: p, Err: err}
	}

	_, err := s.db.ExecContext(s.ctx, `
		INSERT INTO git_storage_objects (repo, path, blob_key, size, modified)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE blob_key = VALUES(blob_key), size = VALUES(size), modified = VALUES(modified)`,
		s.repo, p, key, len(data), time.Now())
	if err != nil {
		return &storage.Error{Op: "write", Path: p, Err: err}
	}
	return nil
}

func (s *Storage) DeleteFile(p string) error {
	p = clean(p)
	var key string
	row := s.db.QueryRowContext(s.ctx,
		`SELECT blob_key FROM git_storage_objects WHERE repo = ? AND path = ?`, s.repo, p)
	if err := row.Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &storage.Error{Op: "delete", Path: p, Err: storage.ErrNotFound}
		}
		return &storage.Error{Op: "delete", Path: p, Err: err}
	}

	if _, err := s.blobs.DeleteObject(s.ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return &storage.Error{Op: "delete", Path: p, Err: err}
	}
	_, err := s.db.ExecContext(s.ctx, `DELETE FROM git_storage_objects WHERE repo = ? AND path = ?`, s.repo, p)
	if err != nil {
		return &storage.Error{Op: "delete", Path: p, Err: err}
	}
	return nil
}

// CreateDirectory is a no-op: directories are implicit, derived from path
// prefixes of existing rows.
func (s *Storage) CreateDirectory(p string) error { return nil }

func (s *Storage) ListDirectory(p string) ([]string, error) {
	dir := clean(p)
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}
	rows, err := s.db.QueryContext(s.ctx,
		`SELECT path FROM git_storage_objects WHERE repo = ? AND path LIKE ?`, s.repo, prefix+"%")
	if err != nil {
		return nil, &storage.Error{Op: "list", Path: p, Err: err}
	}
	defer rows.Close()

	seen := map[string]bool{}
	var names []string
	for rows.Next() {
		var full string
		if err := rows.Scan(&full); err != nil {
			return nil, &storage.Error{Op: "list", Path: p, Err: err}
		}
		rest := strings.TrimPrefix(full, prefix)
		if rest == "" {
			continue
		}
		child := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			child = rest[:i]
		}
		if !seen[child] {
			seen[child] = true
			names = append(names, child)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) DeleteDirectory(p string) error {
	dir := clean(p)
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}

	rows, err := s.db.QueryContext(s.ctx,
		`SELECT path, blob_key FROM git_storage_objects WHERE repo = ? AND (path = ? OR path LIKE ?)`,
		s.repo, dir, prefix+"%")
	if err != nil {
		return &storage.Error{Op: "delete-dir", Path: p, Err: err}
	}
	var paths, keys []string
	for rows.Next() {
		var fp, key string
		if err := rows.Scan(&fp, &key); err != nil {
			rows.Close()
			return &storage.Error{Op: "delete-dir", Path: p, Err: err}
		}
		paths = append(paths, fp)
		keys = append(keys, key)
	}
	rows.Close()

	for _, key := range keys {
		if _, err := s.blobs.DeleteObject(s.ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
			return &storage.Error{Op: "delete-dir", Path: p, Err: err}
		}
	}
	for _, fp := range paths {
		if _, err := s.db.ExecContext(s.ctx, `DELETE FROM git_storage_objects WHERE repo = ? AND path = ?`, s.repo, fp); err != nil {
			return &storage.Error{Op: "delete-dir", Path: p, Err: err}
		}
	}
	return nil
}

func (s *Storage) FileInfo(p string) (storage.FileInfo, error) {
	p = clean(p)
	var size int64
	var modified time.Time
	row := s.db.QueryRowContext(s.ctx,
		`SELECT size, modified FROM git_storage_objects WHERE repo = ? AND path = ?`, s.repo, p)
	if err := row.Scan(&size, &modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.FileInfo{}, &storage.Error{Op: "stat", Path: p, Err: storage.ErrNotFound}
		}
		return storage.FileInfo{}, &storage.Error{Op: "stat", Path: p, Err: err}
	}
	return storage.FileInfo{Size: size, Modified: modified}, nil
}
