package classifier

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/pkg/errors"
)

// FormatVersion identifies the artifact encoding.
const FormatVersion = "light.v1"

// maxHeaderLen bounds the JSON header of an artifact. A real header is
// a few KB; anything larger means the file is corrupt, and we must not
// trust its length field for an allocation.
const maxHeaderLen = 4 << 20

// ArtifactNotFoundError means no trained model exists at the given
// path. Fatal for any process that depends on predictions.
type ArtifactNotFoundError struct {
	Path string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("model artifact not found at '%v'", e.Path)
}

// artifactHeader is the JSON header at the front of an artifact file.
// Variable payloads follow in header order as little-endian float32.
type artifactHeader struct {
	Version   string            `json:"version"`
	InputSize int               `json:"input_size"`
	Variables []encodedVariable `json:"variables"`
}

type encodedVariable struct {
	Name      string `json:"name"`
	Shape     []int  `json:"shape"`
	Trainable bool   `json:"trainable"`
}

// Save writes the model weights to path. The file is written to a
// temporary sibling and renamed into place, so a prior artifact is
// never clobbered by a partial write.
func (m *Model) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "create artifact %v", tmp)
	}
	defer os.Remove(tmp)

	if err := m.write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write artifact %v", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close artifact %v", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "rename artifact into %v", path)
	}
	return nil
}

func (m *Model) write(f *os.File) error {
	params := m.Params()
	header := artifactHeader{
		Version:   FormatVersion,
		InputSize: m.InputSize,
	}
	for _, p := range params {
		header.Variables = append(header.Variables, encodedVariable{
			Name:      p.Name,
			Shape:     []int(p.Value.Shape()),
			Trainable: p.Trainable,
		})
	}
	headerJSON, err := json.Marshal(&header)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(headerJSON))); err != nil {
		return err
	}
	if _, err := w.Write(headerJSON); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.Value.Data().([]float32)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readArtifact(path string) (*artifactHeader, map[string][]float32, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, &ArtifactNotFoundError{Path: path}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open artifact %v", path)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, nil, errors.Wrapf(err, "read artifact header length from %v", path)
	}
	if headerLen == 0 || headerLen > maxHeaderLen {
		return nil, nil, fmt.Errorf("artifact %v is corrupt: header length %v", path, headerLen)
	}
	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, errors.Wrapf(err, "read artifact header from %v", path)
	}
	header := &artifactHeader{}
	if err := json.Unmarshal(headerJSON, header); err != nil {
		return nil, nil, errors.Wrapf(err, "parse artifact header from %v", path)
	}
	if header.Version != FormatVersion {
		return nil, nil, fmt.Errorf("artifact %v has unsupported version '%v'", path, header.Version)
	}

	values := map[string][]float32{}
	for _, v := range header.Variables {
		n := 1
		for _, d := range v.Shape {
			n *= d
		}
		data := make([]float32, n)
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return nil, nil, errors.Wrapf(err, "read variable %v from %v", v.Name, path)
		}
		values[v.Name] = data
	}
	return header, values, nil
}

// Load reads a persisted artifact and reconstructs the model.
// Returns *ArtifactNotFoundError if path does not exist.
func Load(path string, rng *rand.Rand) (*Model, error) {
	header, values, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	m, err := New(header.InputSize, rng)
	if err != nil {
		return nil, err
	}
	for _, p := range m.Params() {
		data, ok := values[p.Name]
		if !ok {
			return nil, fmt.Errorf("artifact %v is missing variable %v", path, p.Name)
		}
		dst := p.Value.Data().([]float32)
		if len(data) != len(dst) {
			return nil, fmt.Errorf("artifact %v: variable %v has %v values, expected %v", path, p.Name, len(data), len(dst))
		}
		copy(dst, data)
	}
	return m, nil
}

// LoadBackboneCheckpoint copies pretrained feature-extractor weights
// into the model. Only variables under the features prefix are read;
// the head keeps its fresh initialization.
func (m *Model) LoadBackboneCheckpoint(path string) error {
	_, values, err := readArtifact(path)
	if err != nil {
		return err
	}
	for _, l := range m.backbone {
		for _, p := range l.Params() {
			data, ok := values[p.Name]
			if !ok {
				return fmt.Errorf("backbone checkpoint %v is missing variable %v", path, p.Name)
			}
			dst := p.Value.Data().([]float32)
			if len(data) != len(dst) {
				return fmt.Errorf("backbone checkpoint %v: variable %v has %v values, expected %v", path, p.Name, len(data), len(dst))
			}
			copy(dst, data)
		}
	}
	return nil
}
