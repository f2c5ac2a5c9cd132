// Package filedb is an append-only JSON-lines file, used as the matcher's pass journal.
package filedb

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hybrix/pkg/xlog"

	"github.com/nxadm/tail"
)

var logger = xlog.GetLogger()

type Filedb struct {
	File     *os.File
	FilePath string

	mu sync.Mutex
}

func New(filePath string) (fdb *Filedb, err error) {
	fdb = &Filedb{
		FilePath: filePath,
	}
	err = fdb.Open()

	return
}

func (f *Filedb) Open() (err error) {
	err = os.MkdirAll(filepath.Dir(f.FilePath), 0755)
	if err != nil {
		return
	}

	f.File, err = os.OpenFile(f.FilePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	return
}

func (f *Filedb) Close() (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.File == nil {
		return
	}
	err = f.File.Close()
	f.File = nil
	return
}

// WriteLine appends s followed by a newline and syncs the file.
func (f *Filedb) WriteLine(s string) (err error) {
	if strings.ContainsRune(s, '\n') {
		return errors.New("filedb: line contains newline")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.File == nil {
		return os.ErrClosed
	}
	_, err = f.File.WriteString(s + "\n")
	if err != nil {
		return
	}
	return f.File.Sync()
}

// Append writes v as one JSON line.
func (f *Filedb) Append(v interface{}) (err error) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	return f.WriteLine(string(b))
}

const readChunk = 1024

// ReadLastLine reads the last non-empty line of the file, or "" for an empty file.
func (f *Filedb) ReadLastLine() (s string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stat, err := f.File.Stat()
	if err != nil {
		return
	}

	// read backwards until a newline precedes some content
	var buf []byte
	for end := stat.Size(); end > 0; {
		off := end - readChunk
		if off < 0 {
			off = 0
		}
		chunk := make([]byte, end-off)
		_, err = f.File.ReadAt(chunk, off)
		if err != nil {
			return
		}
		buf = append(chunk, buf...)
		end = off

		trimmed := bytes.TrimRight(buf, " \n")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return string(trimmed[i+1:]), nil
		}
	}

	return string(bytes.TrimRight(buf, " \n")), nil
}

// ReadFirstLine reads the first non-empty line of the file.
func (f *Filedb) ReadFirstLine() (s string, err error) {
	fh, err := os.Open(f.FilePath)
	if err != nil {
		return
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	return "", io.EOF
}

// Tailf follows the file from its beginning and sends every complete line to
// ch until ctx is done or the tail fails.
func (f *Filedb) Tailf(ctx context.Context, ch chan<- string) (err error) {
	ta, err := tail.TailFile(f.FilePath, tail.Config{
		Follow:        true,
		ReOpen:        true,
		CompleteLines: true,
		Logger:        tail.DiscardingLogger,
	})
	if err != nil {
		return
	}

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-tctx.Done()
		_ = ta.Stop()
	}()

	// keep draining Lines after a stop so the tail goroutine can exit
	for line := range ta.Lines {
		if tctx.Err() != nil {
			continue
		}
		if line.Err != nil {
			// a broken line aborts the follow rather than being skipped, to keep order
			err = line.Err
			cancel()
			continue
		}
		select {
		case ch <- line.Text:
		case <-tctx.Done():
		}
	}

	if err == nil {
		err = ctx.Err()
	}
	return
}

// Drain reads lines from ch in batches of up to batchSize and hands them to
// handler until ch is closed or handler fails.
func Drain(ch <-chan string, batchSize int, handler func([]string) error) (err error) {
	var (
		total int
		first time.Time
	)
	defer func() {
		rate := 0.0
		if elapsed := time.Since(first).Seconds(); total > 0 && elapsed > 0 {
			rate = float64(total) / elapsed
		}
		if err != nil {
			logger.Errorf("filedb Drain failed after %d lines with err:%s", total, err)
		} else {
			logger.Infof("filedb Drain done with %d lines at %.1f/sec", total, rate)
		}
	}()

	if batchSize < 1 {
		batchSize = 1
	}
	batch := make([]string, 0, batchSize)
	for {
		s, ok := <-ch
		if !ok {
			return
		}
		batch = append(batch[:0], s)

		// take whatever is already buffered without waiting
	fill:
		for len(batch) < batchSize {
			select {
			case s, ok := <-ch:
				if !ok {
					break fill
				}
				batch = append(batch, s)
			default:
				break fill
			}
		}

		if first.IsZero() {
			first = time.Now()
		}
		err = handler(batch)
		if err != nil {
			return
		}
		total += len(batch)
	}
}
