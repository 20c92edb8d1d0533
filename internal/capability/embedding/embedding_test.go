package embedding

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeTestVocab creates a tiny WordPiece vocabulary on disk.
func writeTestVocab(t *testing.T) string {
	t.Helper()
	tokens := []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]",
		"connection", "timed", "out", "error", "data", "##node",
		"slow", "io", "block",
	}
	path := filepath.Join(t.TempDir(), "vocab.txt")
	var content string
	for _, tok := range tokens {
		content += tok + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func TestLoadVocabSpecials(t *testing.T) {
	v, err := loadVocab(writeTestVocab(t))
	if err != nil {
		t.Fatalf("loadVocab: %v", err)
	}
	if v.padID != 0 || v.unkID != 1 || v.clsID != 2 || v.sepID != 3 {
		t.Errorf("unexpected special IDs: pad=%d unk=%d cls=%d sep=%d",
			v.padID, v.unkID, v.clsID, v.sepID)
	}
	if got := v.lookup("connection"); got != 4 {
		t.Errorf("lookup(connection) = %d, want 4", got)
	}
	if got := v.lookup("nonexistent"); got != v.unkID {
		t.Errorf("lookup miss = %d, want [UNK] %d", got, v.unkID)
	}
}

func TestLoadVocabMissingSpecial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte("just\nwords\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadVocab(path); err == nil {
		t.Error("expected error for vocab missing special tokens")
	}
}

func TestTokenize(t *testing.T) {
	tok, err := newTokenizer(writeTestVocab(t))
	if err != nil {
		t.Fatalf("newTokenizer: %v", err)
	}

	ids, mask := tok.tokenize("Connection timed out")
	want := []int64{2, 4, 5, 6, 3} // [CLS] connection timed out [SEP]
	if !reflect.DeepEqual(ids[:5], want) {
		t.Errorf("ids = %v, want %v", ids[:5], want)
	}
	for i := 0; i < 5; i++ {
		if mask[i] != 1 {
			t.Errorf("mask[%d] = %d, want 1", i, mask[i])
		}
	}
	if mask[5] != 0 || ids[5] != 0 {
		t.Error("expected padding after [SEP]")
	}
}

func TestTokenizeWordpieceDecomposition(t *testing.T) {
	tok, err := newTokenizer(writeTestVocab(t))
	if err != nil {
		t.Fatalf("newTokenizer: %v", err)
	}

	// "datanode" = data + ##node via greedy longest-match.
	ids, _ := tok.tokenize("datanode")
	want := []int64{2, 8, 9, 3}
	if !reflect.DeepEqual(ids[:4], want) {
		t.Errorf("ids = %v, want %v", ids[:4], want)
	}

	// Fully unknown words collapse to [UNK].
	ids, _ = tok.tokenize("zzzzz")
	if ids[1] != 1 {
		t.Errorf("expected [UNK] for unknown word, got %d", ids[1])
	}
}

func TestTokenizeBatchPadding(t *testing.T) {
	tok, err := newTokenizer(writeTestVocab(t))
	if err != nil {
		t.Fatalf("newTokenizer: %v", err)
	}

	batch := tok.tokenizeBatch([]string{"connection timed out", "error"})
	if batch.batchSize != 2 {
		t.Fatalf("batchSize = %d, want 2", batch.batchSize)
	}
	// Longest sequence is [CLS] connection timed out [SEP] = 5.
	if batch.seqLen != 5 {
		t.Fatalf("seqLen = %d, want 5", batch.seqLen)
	}
	// Second sequence is [CLS] error [SEP] + 2 padding.
	second := batch.attentionMask[5:]
	wantMask := []int64{1, 1, 1, 0, 0}
	if !reflect.DeepEqual(second, wantMask) {
		t.Errorf("second mask = %v, want %v", second, wantMask)
	}
}

func TestMeanPool(t *testing.T) {
	// 1 sample, seqLen=3, dim=2; third token is padding.
	hidden := []float32{1, 2, 3, 4, 5, 6}
	mask := []int64{1, 1, 0}

	out := meanPool(hidden, mask, 1, 3, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 values, got %d", len(out))
	}
	if !closeEnough(out[0], 2.0) || !closeEnough(out[1], 3.0) {
		t.Errorf("expected [2, 3], got %v", out)
	}
}

func TestMeanPoolAllPadding(t *testing.T) {
	out := meanPool([]float32{1, 2, 3, 4}, []int64{0, 0}, 1, 2, 2)
	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %f, want 0", i, v)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	c := []float32{0, 1}

	if got := cosineSimilarity(a, b); !closeEnough64(got, 1) {
		t.Errorf("identical vectors: %v, want 1", got)
	}
	if got := cosineSimilarity(a, c); !closeEnough64(got, 0) {
		t.Errorf("orthogonal vectors: %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths: %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{0, 0}); got != 0 {
		t.Errorf("zero vector: %v, want 0", got)
	}
}

func TestSoftmax(t *testing.T) {
	probs := softmax([]float64{0.9, 0.1, 0.1})

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if !closeEnough64(sum, 1) {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
	if probs[0] <= probs[1] {
		t.Errorf("higher similarity must get higher probability: %v", probs)
	}
	if probs[1] != probs[2] {
		t.Errorf("equal similarities must get equal probability: %v", probs)
	}
}

func closeEnough(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func closeEnough64(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
