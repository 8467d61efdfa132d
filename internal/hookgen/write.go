package hookgen

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"hookweave/internal/action"
)

// WriteModule writes the generated source below artifactDir at the
// predictable module path and drops an empty assembly stub next to it so the
// toolchain does not demand a complete package and linkname binding works.
// It returns the path of the written module file.
func WriteModule(artifactDir, source string) (string, error) {
	path := filepath.Join(artifactDir, ModuleFileName)
	if err := checkCanWrite(path); err != nil {
		return "", err
	}
	if err := action.WriteFileAtomic(path, []byte(source)); err != nil {
		return "", err
	}

	stub := filepath.Join(filepath.Dir(path), "hooks.s")
	if err := os.WriteFile(stub, []byte("// empty .s file to allow go:linkname binding\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write assembly stub: %w", err)
	}
	return path, nil
}

// checkCanWrite allows writing when the file does not exist or starts with
// the generated-code magic. A hand-written file at the module path is never
// overwritten.
func checkCanWrite(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	defer f.Close()

	headline, err := bufio.NewReader(f).ReadString('\n')
	if err != nil || headline != magic {
		return fmt.Errorf("refusing to overwrite %s: not generated by hookweave", path)
	}
	return nil
}
