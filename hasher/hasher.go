// Package hasher cuts the content of a torrent into pieces and computes the
// SHA-1 digest of every piece.
//
// The files are read in order as one continuous stream, so a piece can start
// in one file and end in another. Reading happens on a single goroutine while
// a pool of workers hashes the pieces that were already read; digests are
// placed by piece index so the result doesn't depend on scheduling.
package hasher

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/givxl33t/metatorrent/bitfield"
	"github.com/givxl33t/metatorrent/content"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HashLen is the size of one piece digest
const HashLen = sha1.Size

// maxBuffered bounds the piece data held by queued jobs and by busy workers
const maxBuffered = 64 << 20

// Progress is reported while hashing
type Progress struct {
	PiecesDone  int
	PiecesTotal int
	BytesDone   int64
	BytesTotal  int64
}

type options struct {
	workers  int
	progress func(Progress)
	interval time.Duration
}

// Option configures Hash and Verify
type Option func(*options)

// WithWorkers sets the number of hashing goroutines, runtime.NumCPU() by default
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithProgress calls fn at most once per interval while hashing and always
// once after the last piece. An interval of 0 reports every piece.
func WithProgress(fn func(Progress), interval time.Duration) Option {
	return func(o *options) {
		o.progress = fn
		o.interval = interval
	}
}

// pieceJob includes a single piece read from the content stream
type pieceJob struct {
	Index int
	Data  []byte
	buf   *[]byte
}

// pieceResult contains the digest of a piece and its index
type pieceResult struct {
	Index  int
	Length int
	Hash   [HashLen]byte
}

// PieceCount returns how many pieces of pieceLength it takes to hold size bytes
func PieceCount(size, pieceLength int64) int {
	if size <= 0 || pieceLength <= 0 {
		return 0
	}
	return int((size + pieceLength - 1) / pieceLength)
}

// Hash returns the concatenated SHA-1 digests of all pieces of files.
//
// Any read error aborts hashing and is returned as a *content.ReadError; no
// partial table is ever returned. Cancelling ctx stops reading and returns
// ctx.Err().
func Hash(ctx context.Context, files []content.File, pieceLength int64, opts ...Option) ([]byte, error) {
	if pieceLength <= 0 {
		return nil, fmt.Errorf("invalid piece length: %d", pieceLength)
	}

	o := options{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	var depth int
	o.workers, depth = limits(o.workers, pieceLength)

	total := content.TotalSize(files)
	count := PieceCount(total, pieceLength)

	logger := log.WithFields(log.Fields{
		"files":        len(files),
		"size":         total,
		"piece_length": pieceLength,
		"pieces":       count,
		"workers":      o.workers,
		"queue":        depth,
	})
	logger.Debug("hashing pieces")
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := sync.Pool{New: func() interface{} {
		buf := make([]byte, pieceLength)
		return &buf
	}}

	// bounded so the reader can only get a few pieces ahead of the workers
	jobQueue := make(chan pieceJob, depth)
	results := make(chan pieceResult, 2*o.workers)

	readErr := make(chan error, 1)
	go func() {
		defer close(jobQueue)
		readErr <- readPieces(ctx, files, &pool, jobQueue)
	}()

	var wg sync.WaitGroup
	wg.Add(o.workers)
	for i := 0; i < o.workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobQueue {
				results <- pieceResult{
					Index:  job.Index,
					Length: len(job.Data),
					Hash:   sha1.Sum(job.Data),
				}
				pool.Put(job.buf)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var limiter *rate.Limiter
	if o.progress != nil && o.interval > 0 {
		limiter = rate.NewLimiter(rate.Every(o.interval), 1)
	}

	table := make([]byte, count*HashLen)
	var done int
	var bytesDone int64
	for res := range results {
		copy(table[res.Index*HashLen:], res.Hash[:])
		done++
		bytesDone += int64(res.Length)

		if o.progress != nil && (limiter == nil || limiter.Allow() || done == count) {
			o.progress(Progress{
				PiecesDone:  done,
				PiecesTotal: count,
				BytesDone:   bytesDone,
				BytesTotal:  total,
			})
		}
	}

	if err := <-readErr; err != nil {
		logger.WithError(err).Debug("hashing aborted")
		return nil, err
	}
	if done != count {
		return nil, fmt.Errorf("hashed %d pieces, expected %d", done, count)
	}

	logger.WithField("elapsed", time.Since(start)).Debug("hashed pieces")
	return table, nil
}

// limits returns the worker count and job queue depth for pieceLength. Both
// shrink for large pieces so that about maxBuffered bytes of piece data are
// held at a time, but never below one.
func limits(workers int, pieceLength int64) (int, int) {
	fit := int(maxBuffered / pieceLength)
	if fit < 1 {
		fit = 1
	}
	depth := 2 * workers
	if workers > fit {
		workers = fit
	}
	if depth > fit {
		depth = fit
	}
	return workers, depth
}

// Verify hashes files and compares every piece with the matching digest in
// expected. Pieces that match are set in the returned bitfield.
func Verify(ctx context.Context, files []content.File, pieceLength int64, expected []byte, opts ...Option) (bitfield.Bitfield, error) {
	table, err := Hash(ctx, files, pieceLength, opts...)
	if err != nil {
		return nil, err
	}

	count := len(table) / HashLen
	good := bitfield.New(count)
	for i := 0; i < count; i++ {
		lo, hi := i*HashLen, (i+1)*HashLen
		if hi > len(expected) {
			break
		}
		if string(table[lo:hi]) == string(expected[lo:hi]) {
			good.SetPiece(i)
		}
	}
	return good, nil
}

// readPieces fills piece buffers from the content stream and queues them in
// order. The final piece holds whatever is left.
func readPieces(ctx context.Context, files []content.File, pool *sync.Pool, jobs chan<- pieceJob) error {
	s := &stream{files: files}
	defer s.Close()

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		buf := pool.Get().(*[]byte)
		n, err := io.ReadFull(s, *buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		if n == 0 {
			pool.Put(buf)
			return nil
		}

		select {
		case jobs <- pieceJob{Index: index, Data: (*buf)[:n], buf: buf}:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err != nil {
			// short read, that was the last piece
			return nil
		}
	}
}

// ErrSizeChanged is wrapped by the *content.ReadError returned when a file no
// longer has the size it was listed with
var ErrSizeChanged = errors.New("file size changed")

// stream reads files back to back, each exactly as long as it was listed
type stream struct {
	files []content.File
	idx   int
	cur   *os.File
	left  int64
}

func (s *stream) Read(p []byte) (int, error) {
	for {
		if s.cur == nil {
			if s.idx >= len(s.files) {
				return 0, io.EOF
			}
			f := s.files[s.idx]
			fh, err := os.Open(f.Path)
			if err != nil {
				return 0, &content.ReadError{Path: f.Path, Err: err}
			}
			fi, err := fh.Stat()
			if err != nil {
				fh.Close()
				return 0, &content.ReadError{Path: f.Path, Err: err}
			}
			if fi.Size() != f.Size {
				fh.Close()
				return 0, &content.ReadError{
					Path: f.Path,
					Err:  fmt.Errorf("size changed from %d to %d bytes: %w", f.Size, fi.Size(), ErrSizeChanged),
				}
			}
			s.cur = fh
			s.left = f.Size
		}

		if s.left == 0 {
			s.cur.Close()
			s.cur = nil
			s.idx++
			continue
		}

		if int64(len(p)) > s.left {
			p = p[:s.left]
		}
		n, err := s.cur.Read(p)
		s.left -= int64(n)

		path := s.files[s.idx].Path
		if err == io.EOF {
			if s.left > 0 {
				return n, &content.ReadError{
					Path: path,
					Err:  fmt.Errorf("file is %d bytes shorter than expected: %w", s.left, io.ErrUnexpectedEOF),
				}
			}
			err = nil
		}
		if err != nil {
			return n, &content.ReadError{Path: path, Err: err}
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (s *stream) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	return err
}
