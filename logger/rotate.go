package logger

import (
	"bufio"
	"io"
)

// MaxLines defines the maximum number of lines to keep in the log file
const MaxLines = 5000

// seekable is the subset of *os.File the rotation helpers need
type seekable interface {
	io.ReadWriteSeeker
	Truncate(size int64) error
}

// countLines counts the lines currently in the file, leaving the offset at the
// end for appending
func countLines(f seekable) int {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0
	}
	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		count++
	}
	f.Seek(0, io.SeekEnd)
	return count
}

// trimFile drops all but the last keep lines, returning the new line count.
// Scans backwards from the end so the whole file is never held in memory.
func trimFile(f seekable, keep int) int {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil || size == 0 {
		return 0
	}

	cut := int64(0)
	buf := make([]byte, min(int(size), 64*1024))
	seen := 0

scan:
	for pos := size; pos > 0; {
		readSize := min(int64(len(buf)), pos)
		pos -= readSize
		f.Seek(pos, io.SeekStart)
		n, err := f.Read(buf[:readSize])
		if err != nil || n == 0 {
			break
		}
		for i := n - 1; i >= 0; i-- {
			if buf[i] == '\n' {
				seen++
				if seen == keep+1 {
					cut = pos + int64(i) + 1
					break scan
				}
			}
		}
	}

	f.Seek(cut, io.SeekStart)
	kept, err := io.ReadAll(f)
	if err != nil {
		return keep
	}

	f.Truncate(0)
	f.Seek(0, io.SeekStart)
	f.Write(kept)

	count := 0
	for _, b := range kept {
		if b == '\n' {
			count++
		}
	}
	return count
}
