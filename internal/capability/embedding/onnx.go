package embedding

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession wraps a dynamic session for BERT-style encoder models.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	embedDim   int64
}

// newONNXSession loads the model, validates its tensor layout, and creates
// an inference session. The ONNX Runtime shared library is expected next
// to the model file.
func newONNXSession(modelPath string) (*onnxSession, error) {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}

	inputNames, err := validateInputs(inputs)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx: expected [batch, seq, dim] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputNames: inputNames,
		outputName: outputs[0].Name,
		embedDim:   dims[2],
	}, nil
}

func validateInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	nameSet := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		nameSet[inp.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !nameSet[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return required, nil
}

// infer runs one inference call over flat [batchSize * seqLen] input
// slices and returns the hidden states as a flat
// [batchSize * seqLen * embedDim] slice.
func (s *onnxSession) infer(inputIDs, attentionMask, tokenTypeIDs []int64, batchSize, seqLen int64) ([]float32, error) {
	shape := ort.NewShape(batchSize, seqLen)

	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(batchSize, seqLen, s.embedDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
