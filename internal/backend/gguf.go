package backend

import (
	"fmt"
	"path"
	"strings"

	"chatd/pkg/types"
)

// ArtifactChecker is implemented by loaders that can reject a repository from its file listing,
// before any file is transferred.
type ArtifactChecker interface {
	CheckArtifacts(files []string, arch types.Architecture) error
}

// CheckGGUF requires at least one GGUF weights file in files and, for vision models, a
// multimodal projector (mmproj*.gguf). Paths use forward slashes as listed by the hub.
func CheckGGUF(files []string, arch types.Architecture) error {
	var weights, projectors int
	for _, f := range files {
		name := strings.ToLower(path.Base(f))
		if !strings.HasSuffix(name, ".gguf") {
			continue
		}
		if strings.HasPrefix(name, "mmproj") {
			projectors++
		} else {
			weights++
		}
	}
	if weights == 0 {
		return fmt.Errorf("repository has no GGUF weights (%d files listed); point the catalog at a GGUF repository", len(files))
	}
	if arch == types.VisionLanguage && projectors == 0 {
		return fmt.Errorf("vision repository has no mmproj projector")
	}
	return nil
}
