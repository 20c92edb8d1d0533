// Package embedding implements the secondary anomaly classifier on top of
// a local ONNX sentence-embedding model. Each candidate category is
// described by a short prose prompt; at construction the prompts are
// embedded once, and classification reduces to cosine similarity between
// the entry embedding and each label embedding, softmax-normalized into a
// confidence distribution.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/ashmont/kestrel/internal/capability"
	"github.com/ashmont/kestrel/internal/model"
)

// softmaxScale sharpens the similarity distribution before normalization;
// raw cosine similarities of embedding models cluster in a narrow band.
const softmaxScale = 10.0

// labelPrompts describes each category in the vocabulary the embedding
// model understands. Classification quality lives here, not in code.
var labelPrompts = map[model.Category]string{
	model.CategoryPerformance:  "slow operations, long JVM garbage collection pauses, degraded throughput, high latency",
	model.CategorySecurity:     "failed logins, authentication errors, delegation token problems, unauthorized access",
	model.CategoryAvailability: "services shutting down, failed startups, lost leadership, nodes becoming unavailable",
	model.CategoryData:         "corrupted blocks, checksum mismatches, replica placement failures, data loss",
	model.CategoryNetwork:      "connection timeouts, refused connections, socket errors, unreachable hosts",
	model.CategoryResource:     "exhausted disk space, out of memory errors, capacity exceeded, excessive load",
}

// Classifier is an ONNX-backed capability.CategoryClassifier. Safe for
// concurrent use: the underlying ONNX session serializes inference
// internally and all other state is read-only after construction.
type Classifier struct {
	session *onnxSession
	tok     *tokenizer
	labels  map[model.Category][]float32
}

// NewClassifier loads the ONNX model and vocabulary and pre-embeds the
// label prompts. Expensive (~100-300ms): create once, reuse across batches.
func NewClassifier(modelPath, vocabPath string) (*Classifier, error) {
	sess, err := newONNXSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedding: %w", err)
	}

	c := &Classifier{session: sess, tok: tok, labels: make(map[model.Category][]float32, len(labelPrompts))}
	for cat, prompt := range labelPrompts {
		vec, err := c.embed(prompt)
		if err != nil {
			sess.close()
			return nil, fmt.Errorf("embedding: pre-embed label %s: %w", cat, err)
		}
		c.labels[cat] = vec
	}
	return c, nil
}

// Classify embeds the entry text and scores it against each candidate
// label. Labels without a pre-embedded prompt score zero.
func (c *Classifier) Classify(ctx context.Context, text string, labels []model.Category) (capability.Classification, error) {
	if err := ctx.Err(); err != nil {
		return capability.Classification{Category: model.CategoryUnknown}, err
	}

	vec, err := c.embed(text)
	if err != nil {
		return capability.Classification{Category: model.CategoryUnknown}, err
	}

	sims := make([]float64, len(labels))
	for i, label := range labels {
		sims[i] = cosineSimilarity(vec, c.labels[label])
	}

	probs := softmax(sims)
	out := capability.Classification{
		Category: model.CategoryUnknown,
		Scores:   make(map[model.Category]float64, len(labels)),
	}
	for i, label := range labels {
		out.Scores[label] = probs[i]
		if probs[i] > out.Confidence {
			out.Category = label
			out.Confidence = probs[i]
		}
	}
	return out, nil
}

// Close releases ONNX Runtime resources.
func (c *Classifier) Close() error {
	if c.session != nil {
		return c.session.close()
	}
	return nil
}

// embed runs tokenize → inference → mean pool for one text.
func (c *Classifier) embed(text string) ([]float32, error) {
	batch := c.tok.tokenizeBatch([]string{text})

	hidden, err := c.session.infer(
		batch.inputIDs, batch.attentionMask, batch.tokenTypeIDs,
		batch.batchSize, batch.seqLen,
	)
	if err != nil {
		return nil, err
	}
	return meanPool(hidden, batch.attentionMask, 1, batch.seqLen, c.session.embedDim), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func softmax(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	maxV := vals[0]
	for _, v := range vals[1:] {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float64, len(vals))
	var sum float64
	for i, v := range vals {
		out[i] = math.Exp((v - maxV) * softmaxScale)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
