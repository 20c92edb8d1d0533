package embedding

// meanPool computes attention-mask-weighted mean pooling over the sequence
// dimension. hidden is flat [batchSize * seqLen * dim], mask is flat
// [batchSize * seqLen]; the result is flat [batchSize * dim].
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) []float32 {
	out := make([]float32, batchSize*dim)

	for b := int64(0); b < batchSize; b++ {
		maskOff := b * seqLen
		hiddenOff := b * seqLen * dim
		outOff := b * dim

		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] == 1 {
				count++
			}
		}
		if count == 0 {
			continue
		}

		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] != 1 {
				continue
			}
			tokOff := hiddenOff + s*dim
			for d := int64(0); d < dim; d++ {
				out[outOff+d] += hidden[tokOff+d]
			}
		}
		for d := int64(0); d < dim; d++ {
			out[outOff+d] /= count
		}
	}
	return out
}
