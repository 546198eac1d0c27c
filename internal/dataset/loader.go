package dataset

import (
	"os"

	"github.com/cyclopcam/logs"
	"gorgonia.org/tensor"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/imgproc"
)

// Loader decodes samples into normalized tensors, caching the decoded
// base tensor per file so repeated augmentation draws don't re-decode.
type Loader struct {
	log  logs.Log
	size int

	cache map[string]*tensor.Dense
}

func NewLoader(log logs.Log, inputSize int) *Loader {
	return &Loader{
		log:   log,
		size:  inputSize,
		cache: map[string]*tensor.Dense{},
	}
}

// Base returns the preprocessed (but un-augmented) tensor of a sample.
func (l *Loader) Base(s Sample) (*tensor.Dense, error) {
	if t, ok := l.cache[s.Path]; ok {
		return t, nil
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	t, err := imgproc.Preprocess(raw, l.size)
	if err != nil {
		return nil, err
	}
	l.cache[s.Path] = t
	return t, nil
}

// Stack assembles per-sample [H, W, C] tensors into one [N, H, W, C]
// batch tensor.
func Stack(tensors []*tensor.Dense) *tensor.Dense {
	n := len(tensors)
	shape := tensors[0].Shape()
	h, w, c := shape[0], shape[1], shape[2]
	data := make([]float32, n*h*w*c)
	stride := h * w * c
	for i, t := range tensors {
		copy(data[i*stride:(i+1)*stride], t.Data().([]float32))
	}
	return tensor.New(tensor.WithShape(n, h, w, c), tensor.WithBacking(data))
}
