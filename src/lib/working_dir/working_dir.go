package working_dir

import (
	"audio-separator-worker/src/lib/cerr"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
)

type WorkingDir struct {
	root string
}

func NewWorkingDir(root string) (WorkingDir, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return WorkingDir{}, cerr.Wrap(err).Error("Failed to generate absolute path for working directory")
	}

	_ = os.MkdirAll(absRoot, os.ModePerm)
	_ = os.MkdirAll(filepath.Join(absRoot, "tmp"), os.ModePerm)

	return WorkingDir{
		root: absRoot,
	}, nil
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, "tmp")
}

// MakeScratchDir creates a run-scoped directory under the temp dir
// and returns a function that tears it down, files and all
func (w WorkingDir) MakeScratchDir(prefix string) (string, func(), error) {
	scratchDir, err := os.MkdirTemp(w.TempDir(), fmt.Sprintf("%s-*", prefix))
	if err != nil {
		return "", nil, cerr.Field("prefix", prefix).
			Wrap(err).Error("Failed to create a scratch directory")
	}

	removeScratchDirFn := func() {
		err := os.RemoveAll(scratchDir)
		if err != nil {
			log.WithField("scratchDir", scratchDir).Error("Failed to remove scratch dir")
		}
	}

	return scratchDir, removeScratchDirFn, nil
}
