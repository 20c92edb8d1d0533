package kestrel

import (
	"path/filepath"
	"time"
)

type options struct {
	modelDir  string
	modelPath string
	vocabPath string
	workers   int
	timeout   time.Duration
}

// Option configures a Kestrel instance.
type Option func(*options)

// WithModelDir sets the directory containing model files.
// Expects: model_quantized.onnx, vocab.txt.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithModelPaths sets explicit paths for each model file.
// Use this when model files aren't in the default directory layout.
func WithModelPaths(model, vocab string) Option {
	return func(o *options) {
		o.modelPath = model
		o.vocabPath = vocab
	}
}

// WithWorkers sets how many log entries are analyzed concurrently.
// Default: 8.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTimeout bounds each sentiment or classification call.
// Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func defaultOptions() options {
	return options{
		workers: 8,
		timeout: 10 * time.Second,
	}
}

// resolvePaths determines the model and vocab file paths from the
// configured options. Explicit paths take precedence over modelDir.
func resolvePaths(o options) (model, vocab string) {
	if o.modelPath != "" {
		return o.modelPath, o.vocabPath
	}
	dir := o.modelDir
	if dir == "" {
		dir = "models"
	}
	return filepath.Join(dir, "model_quantized.onnx"), filepath.Join(dir, "vocab.txt")
}
