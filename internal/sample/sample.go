package sample

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrBadExtension = errors.New("unrecognized source extension")

// Sample is one source program used as a test case.
type Sample struct {
	Name       string // file name, e.g. loop.mbt
	Base       string // name without extension, e.g. loop
	Path       string
	AnswerPath string
}

// New describes the sample at path. Its answer lives in answersDir under the
// sample's base name with answerExt.
func New(path, answersDir, answerExt string) Sample {
	name := filepath.Base(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return Sample{
		Name:       name,
		Base:       base,
		Path:       path,
		AnswerPath: filepath.Join(answersDir, base+answerExt),
	}
}

// Open validates a single user-supplied sample file.
func Open(path, sourceExt, answersDir, answerExt string) (Sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Sample{}, fmt.Errorf("sample %s: %w", path, err)
	}
	if info.IsDir() {
		return Sample{}, fmt.Errorf("sample %s: is a directory", path)
	}
	if filepath.Ext(path) != sourceExt {
		return Sample{}, fmt.Errorf("sample %s: %w (want %s)", path, ErrBadExtension, sourceExt)
	}
	return New(path, answersDir, answerExt), nil
}

// Discover lists every sourceExt file directly under dir in lexicographic
// order.
func Discover(dir, sourceExt, answersDir, answerExt string) ([]Sample, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+sourceExt))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)
	samples := make([]Sample, 0, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		samples = append(samples, New(p, answersDir, answerExt))
	}
	return samples, nil
}

// HasAnswer reports whether the answer file exists.
func (s Sample) HasAnswer() bool {
	_, err := os.Stat(s.AnswerPath)
	return err == nil
}
