package predictor

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// #endregion

// #region save

// SaveArtifact persists the forest and writes the metadata sidecar with the
// model checksum filled in. The trainer is the only writer; the predictor
// only ever reads.
func SaveArtifact(f *Forest, meta Metadata, modelPath, metaPath string) error {
	modelBytes, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal forest: %w", err)
	}
	sum := sha256.Sum256(modelBytes)
	meta.ModelSHA256 = hex.EncodeToString(sum[:])

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := os.WriteFile(modelPath, modelBytes, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// #endregion
