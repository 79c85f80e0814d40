package seqmodel

// #region imports
import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// #endregion

// #region artifact-format

// The artifact is data-only: a magic tag, a JSON header with the dimensions,
// the weight matrices as little-endian float32 rows, and a trailing SHA-256
// over everything before it. There is nothing executable to deserialize, and
// a checksum mismatch fails closed.
var artifactMagic = []byte("PFSG1\n")

// ErrModelLoad reports a missing, corrupt, or incompatible model artifact.
// Callers degrade to heuristic-only behavior on it; they never crash.
var ErrModelLoad = errors.New("model artifact unusable")

type artifactHeader struct {
	VocabSize  int `json:"vocab_size"`
	ContextDim int `json:"context_dim"`
	EmbedDim   int `json:"embed_dim"`
	HiddenDim  int `json:"hidden_dim"`
}

// #endregion

// #region save

// Save writes the model artifact to path.
func (m *Model) Save(path string) error {
	var buf bytes.Buffer
	buf.Write(artifactMagic)

	header, err := json.Marshal(artifactHeader{
		VocabSize:  m.VocabSize,
		ContextDim: m.ContextDim,
		EmbedDim:   m.EmbedDim,
		HiddenDim:  m.HiddenDim,
	})
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(header))); err != nil {
		return fmt.Errorf("write header length: %w", err)
	}
	buf.Write(header)

	for _, mat := range m.weights() {
		for _, row := range mat {
			for _, v := range row {
				if err := binary.Write(&buf, binary.LittleEndian, math.Float32bits(v)); err != nil {
					return fmt.Errorf("write weights: %w", err)
				}
			}
		}
	}

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// weights returns every matrix in serialization order; vectors are single
// rows. Order must never change without bumping the magic.
func (m *Model) weights() [][][]float32 {
	return [][][]float32{
		m.Wenc, {m.Benc},
		m.Emb,
		m.Wxh, m.Whh, {m.Bh},
		m.Wout, {m.Bout},
	}
}

// #endregion

// #region load

// Load reads and verifies a model artifact. Any structural or checksum
// problem returns an error wrapping ErrModelLoad.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if len(data) < len(artifactMagic)+4+sha256.Size {
		return nil, fmt.Errorf("%w: artifact truncated", ErrModelLoad)
	}
	if !bytes.HasPrefix(data, artifactMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrModelLoad)
	}

	body, trailer := data[:len(data)-sha256.Size], data[len(data)-sha256.Size:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrModelLoad)
	}

	r := bytes.NewReader(body[len(artifactMagic):])
	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("%w: header length: %v", ErrModelLoad, err)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := r.Read(headerBytes); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrModelLoad, err)
	}
	var h artifactHeader
	if err := json.Unmarshal(headerBytes, &h); err != nil {
		return nil, fmt.Errorf("%w: header parse: %v", ErrModelLoad, err)
	}
	if h.VocabSize <= 4 || h.ContextDim <= 0 || h.EmbedDim <= 0 || h.HiddenDim <= 0 {
		return nil, fmt.Errorf("%w: implausible dimensions %+v", ErrModelLoad, h)
	}

	m := &Model{
		VocabSize:  h.VocabSize,
		ContextDim: h.ContextDim,
		EmbedDim:   h.EmbedDim,
		HiddenDim:  h.HiddenDim,
	}
	m.Wenc = zeros(h.HiddenDim, h.ContextDim)
	m.Benc = make([]float32, h.HiddenDim)
	m.Emb = zeros(h.VocabSize, h.EmbedDim)
	m.Wxh = zeros(h.HiddenDim, h.EmbedDim)
	m.Whh = zeros(h.HiddenDim, h.HiddenDim)
	m.Bh = make([]float32, h.HiddenDim)
	m.Wout = zeros(h.VocabSize, h.HiddenDim)
	m.Bout = make([]float32, h.VocabSize)

	for _, mat := range m.weights() {
		for _, row := range mat {
			for i := range row {
				var bits uint32
				if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
					return nil, fmt.Errorf("%w: weights truncated: %v", ErrModelLoad, err)
				}
				row[i] = math.Float32frombits(bits)
			}
		}
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrModelLoad, r.Len())
	}
	return m, nil
}

// #endregion
