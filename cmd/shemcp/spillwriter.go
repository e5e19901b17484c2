package main

import "os"

// spillWriter lazily creates its backing file on the first write, so that a
// stream that never produces output leaves no file on disk.
type spillWriter struct {
	path string
	file *os.File
}

func newSpillWriter(path string) (*spillWriter, error) {
	return &spillWriter{path: path}, nil
}

func (w *spillWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if w.file == nil {
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return 0, err
		}
		w.file = f
	}

	return w.file.Write(p)
}

func (w *spillWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}

	return nil
}
